// Package fd wraps an open file descriptor. Adapted from biscuit's
// fd.Fd_t (biscuit/src/fd/fd.go): the Fops/Perms pair and Copyfd/
// Close_panic helpers survive unchanged in shape; Cwd_t and the path
// helpers (Fullpath, Canonicalpath, MkRootCwd) are dropped because they
// exist only to support chdir, which spec §6 explicitly stubs out as an
// unimplemented directory syscall.
package fd

import "pintosvm/defs"
import "pintosvm/fdops"

/// File descriptor permission bits.
const (
	FD_READ    = 0x1 /// read permission
	FD_WRITE   = 0x2 /// write permission
	FD_CLOEXEC = 0x4 /// close-on-exec flag
)

/// Fd_t represents an open file descriptor slot in a process's file
/// table. Offset is this open description's own read/write cursor
/// (SEEK/TELL operate on it); Reopen gives a duplicate its own
/// independent Offset starting at zero, matching Pintos's
/// file_reopen returning a new struct file with pos 0.
type Fd_t struct {
	// Fops is an interface implemented via a pointer receiver, thus
	// Fops is a reference, not a value.
	Fops   fdops.File /// descriptor operations
	Perms  int        /// permission bits
	Offset int64      /// current read/write position
}

/// Copyfd duplicates an open file descriptor by reopening it.
func Copyfd(fd *Fd_t) (*Fd_t, defs.Err_t) {
	nf, err := fd.Fops.Reopen()
	if err != 0 {
		return nil, err
	}
	return &Fd_t{Fops: nf, Perms: fd.Perms}, 0
}

/// Close_panic closes the descriptor and panics on failure; used at
/// process exit, where a close failure indicates fd-table corruption
/// rather than a recoverable condition.
func Close_panic(f *Fd_t) {
	if f.Fops.Close() != 0 {
		panic("must succeed")
	}
}
