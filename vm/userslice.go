package vm

import (
	"pintosvm/defs"
	"pintosvm/mem"
)

// / UserSlice is a pinned span of user memory: every page it covers is
// / resident and excluded from eviction for the lifetime of the value.
// / Grounded on design note §9's RAII packaging of the teacher source's
// / scattered manual validate()/unpin_buffer() call pairs, and on
// / biscuit's Userbuf_t/Fakeubuf_t (vm/userbuf.go), which plays the
// / same "addr+len -> page-at-a-time access" role without the pinning
// / (biscuit has no eviction to guard against).
type UserSlice struct {
	as       *AddressSpace
	addr     uintptr
	n        int
	forWrite bool
	pages    []uintptr
}

// / AcquireUserSlice validates and pins every page covering
// / [ptr, ptr+n), in order, returning EFAULT on a null pointer, an
// / unmapped page, or (when forWrite) a read-only page. Grounded on
// / original_source/src/userprog/syscall.c's validate/valid_up/
// / is_writable sequence, each page faulted in via InstallLoad and then
// / pinned.
// /
// / PinLock is only held long enough to flip a frame's Pinned flag,
// / never across InstallLoad's EvictLock acquisition: spec.md §5's
// / ordering (evict_lock -> pin_lock) bars acquiring EvictLock while
// / PinLock is held, and InstallLoad can block on file/swap I/O, which
// / must not happen under PinLock either.
func AcquireUserSlice(as *AddressSpace, ptr uintptr, n int, forWrite bool) (*UserSlice, defs.Err_t) {
	if ptr == 0 {
		return nil, defs.EFAULT
	}
	if n == 0 {
		return &UserSlice{as: as, addr: ptr, forWrite: forWrite}, 0
	}
	if n < 0 {
		return nil, defs.EINVAL
	}

	start := mem.PageRoundDown(ptr)
	last := mem.PageRoundDown(ptr + uintptr(n) - 1)

	var pages []uintptr
	rollback := func() {
		for _, up := range pages {
			as.unpinPage(up)
		}
	}

	for p := start; ; p += uintptr(mem.PGSIZE) {
		e, ok := as.lookup(p)
		if !ok {
			rollback()
			return nil, defs.EFAULT
		}
		if forWrite && !e.Writable {
			rollback()
			return nil, defs.EFAULT
		}
		if !e.Present {
			if err := as.InstallLoad(p); err != 0 {
				rollback()
				return nil, err
			}
		}
		as.pinPage(p)
		pages = append(pages, p)
		if p == last {
			break
		}
	}
	return &UserSlice{as: as, addr: ptr, n: n, forWrite: forWrite, pages: pages}, 0
}

// / CopyIn copies the slice's contents into dst, which must be no
// / larger than the slice.
func (u *UserSlice) CopyIn(dst []byte) defs.Err_t {
	if len(dst) > u.n {
		panic("CopyIn: dst larger than pinned slice")
	}
	return u.as.readPinned(dst, u.addr)
}

// / CopyOut writes src into the slice's user memory, which must be no
// / larger than the slice. Panics if the slice was not acquired for
// / writing.
func (u *UserSlice) CopyOut(src []byte) defs.Err_t {
	if len(src) > u.n {
		panic("CopyOut: src larger than pinned slice")
	}
	if !u.forWrite {
		panic("CopyOut: slice not acquired for writing")
	}
	return u.as.writePinned(u.addr, src)
}

// / Release unpins every page this slice covers. Safe to call multiple
// / times and on a zero-length slice. Callers invoke it via defer on
// / every exit path, including error paths, exactly as design note §9
// / prescribes to replace the teacher source's easy-to-miss manual
// / unpin_buffer calls.
func (u *UserSlice) Release() {
	if u == nil || u.as == nil || len(u.pages) == 0 {
		return
	}
	for _, p := range u.pages {
		u.as.unpinPage(p)
	}
	u.pages = nil
}

// / pinPage marks upage's resident frame pinned, under PinLock only.
func (as *AddressSpace) pinPage(upage uintptr) {
	as.LockPin()
	defer as.UnlockPin()
	if e, ok := as.lookup(upage); ok && e.Frame != nil {
		e.Frame.Pinned = true
	}
}

// / unpinPage clears upage's resident frame's pin, under PinLock only.
func (as *AddressSpace) unpinPage(upage uintptr) {
	as.LockPin()
	defer as.UnlockPin()
	if e, ok := as.lookup(upage); ok && e.Frame != nil {
		e.Frame.Pinned = false
	}
}
