// Package mem implements the physical frame table and page-size
// constants for the VM core. Grounded on biscuit/src/mem/mem.go for
// naming (PGSIZE, PGSHIFT, PGOFFSET, Pa_t) and on biscuit/src/vm/as.go
// for the shape of the frame/page-directory relationship, but the
// reference-counted, COW-capable allocator biscuit needs (Physmem_t,
// with its percpu free lists and unsafe direct-map trick) is not
// reproduced: spec.md's Non-goals explicitly exclude copy-on-write and
// shared memory, so every frame in this core is owned by exactly one
// supplemental-page-table entry at a time (spec §3's frame invariant)
// and a plain free list suffices.
package mem

// / PGSHIFT is the base-2 exponent for the page size.
const PGSHIFT uint = 12

// / PGSIZE is the size of a single page in bytes.
const PGSIZE int = 1 << PGSHIFT

// / PGOFFSET masks offsets within a page.
const PGOFFSET uintptr = uintptr(PGSIZE - 1)

// / PGMASK masks the page number of an address.
const PGMASK uintptr = ^PGOFFSET

// / USERMIN is the lowest user-mappable virtual address; grounded on
// / biscuit's mem.USERMIN.
const USERMIN uintptr = 1 << 22

// / MaxFiles bounds the size of a process's fixed file/mmap descriptor
// / tables (spec §6).
const MaxFiles = 128

// / Pa_t is an opaque page-aligned virtual address used as an SPT key
// / and frame identity. In this simulated core there is no physical/
// / virtual distinction to preserve (biscuit's Pa_t is a true physical
// / address); Pa_t here just names "the page-aligned address a Frame is
// / installed at" so call sites read the same as the teacher's.
type Pa_t = uintptr

// / PageRoundDown aligns addr down to the start of its page.
func PageRoundDown(addr uintptr) uintptr {
	return addr &^ PGOFFSET
}

// / PageRoundUp aligns addr up to the start of the next page (addr itself
// / if already aligned).
func PageRoundUp(addr uintptr) uintptr {
	return PageRoundDown(addr + PGOFFSET)
}

// / PageTable is the hardware page-directory interface the VM core
// / consumes (spec §6); install_page/get_page/clear_page and the
// / dirty/accessed-bit accessors. Out of scope to implement for real
// / hardware (spec §1); SoftMMU below is the in-process stand-in used
// / by every test and by the demo harness.
type PageTable interface {
	InstallPage(upage uintptr, kpage []byte, writable bool) bool
	GetPage(upage uintptr) (kpage []byte, ok bool)
	ClearPage(upage uintptr)
	IsDirty(upage uintptr) bool
	IsAccessed(upage uintptr) bool
	SetDirty(upage uintptr, v bool)
	SetAccessed(upage uintptr, v bool)
}

// / FrameFlags mirrors Pintos's palloc_flags (PAL_USER/PAL_ZERO),
// / passed to GetFrame to select a zeroed frame for anonymous pages
// / versus an uninitialized one for file-backed pages about to be
// / overwritten wholesale.
type FrameFlags uint

const (
	PAL_USER FrameFlags = 1 << iota
	PAL_ZERO
)
