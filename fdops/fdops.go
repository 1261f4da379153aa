// Package fdops defines the file-system interface the VM core consumes
// (spec §6: open/close/reopen/length/read/write/read_at/write_at/seek/
// tell). The real on-disk file system is out of scope (spec §1); this
// package only fixes the boundary biscuit's vm package assumes of its
// own fdops.Fdops_i (biscuit/src/vm/as.go imports "fdops" and stores a
// Fdops_i in every file-backed Vminfo_t), generalized here to the much
// narrower read/write/seek surface the demand-pager actually needs.
package fdops

import "pintosvm/defs"

// / File is the per-descriptor operations a backing file must support.
// / FILE and MMAP supplemental-page-table entries hold a File; the
// / frame table's write-back path and the SPT's install_load path call
// / into it directly.
type File interface {
	// ReadAt reads len(p) bytes starting at off, like io.ReaderAt.
	ReadAt(p []byte, off int64) (int, error)
	// WriteAt writes len(p) bytes starting at off, like io.WriterAt.
	WriteAt(p []byte, off int64) (int, error)
	// Length reports the current size of the file in bytes.
	Length() int64
	// Reopen returns an independent handle sharing the same
	// underlying storage, used when mmap takes its own reference to
	// an already-open fd (syscall.c's file_reopen) and when a
	// descriptor is duplicated.
	Reopen() (File, defs.Err_t)
	// Close releases the descriptor.
	Close() defs.Err_t
}
