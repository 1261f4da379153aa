package vm

import (
	"pintosvm/defs"
	"pintosvm/fdops"
	"pintosvm/hashtable"
	"pintosvm/mem"
)

// / AddressSpace is one process's virtual memory: its supplemental page
// / table, its hardware page directory handle, and a reference to the
// / kernel-wide Subsystem it shares with every other process. Grounded
// / on biscuit's Vm_t (embeds *Pmap_t and shares the allocator and its
// / locks across all Vm_t instances via package-level state); here the
// / sharing is explicit via the *Subsystem pointer instead of package
// / globals.
type AddressSpace struct {
	*Subsystem
	Owner defs.Tid_t
	PT    mem.PageTable
	Cfg   Config

	spt *hashtable.Table[uintptr, *Spte]
}

// / NewAddressSpace creates an empty address space for owner, sharing
// / sub's frame pool and swap device.
func NewAddressSpace(sub *Subsystem, owner defs.Tid_t, pt mem.PageTable, cfg Config) *AddressSpace {
	return &AddressSpace{
		Subsystem: sub,
		Owner:     owner,
		PT:        pt,
		Cfg:       cfg,
		spt:       hashtable.New[uintptr, *Spte](64),
	}
}

func (as *AddressSpace) lookup(upage uintptr) (*Spte, bool) {
	return as.spt.Get(mem.PageRoundDown(upage))
}

func (as *AddressSpace) insert(e *Spte) bool {
	e.as = as
	return as.spt.Set(e.Upage, e)
}

// / CreateCode registers a demand-paged executable code/data page.
// / readBytes+zeroBytes must equal mem.PGSIZE, matching
// / original_source/src/vm/page.c's create_spte_code precondition.
func (as *AddressSpace) CreateCode(upage uintptr, file fdops.File, ofs int64, readBytes, zeroBytes int, writable bool) defs.Err_t {
	upage = mem.PageRoundDown(upage)
	if readBytes+zeroBytes != mem.PGSIZE {
		return defs.EINVAL
	}
	e := &Spte{Kind: KindCode, Upage: upage, Writable: writable, File: file, FileOfs: ofs, ReadBytes: readBytes, ZeroBytes: zeroBytes}
	if !as.insert(e) {
		return defs.EINVAL
	}
	return 0
}

// / CreateFile registers one FILE page: readBytes of file at ofs, the
// / rest of the page zero-filled on load (never written back past what
// / was read).
func (as *AddressSpace) CreateFile(upage uintptr, file fdops.File, ofs int64, readBytes int, writable bool) defs.Err_t {
	upage = mem.PageRoundDown(upage)
	if readBytes <= 0 || readBytes > mem.PGSIZE {
		return defs.EINVAL
	}
	e := &Spte{Kind: KindFile, Upage: upage, Writable: writable, File: file, FileOfs: ofs, ReadBytes: readBytes}
	if !as.insert(e) {
		return defs.EINVAL
	}
	return 0
}

// / CreateMmap registers one page of a memory-mapped file region.
// / Overlap with an existing entry is reported to the caller (MMAP's
// / per-page loop rolls back everything it has inserted so far, per
// / spec.md §7's "mmap overlap ... return -1, roll back partial
// / entries").
func (as *AddressSpace) CreateMmap(upage uintptr, file fdops.File, ofs int64, readBytes int) defs.Err_t {
	upage = mem.PageRoundDown(upage)
	if readBytes <= 0 || readBytes > mem.PGSIZE {
		return defs.EINVAL
	}
	e := &Spte{Kind: KindMmap, Upage: upage, Writable: true, File: file, FileOfs: ofs, ReadBytes: readBytes}
	if !as.insert(e) {
		return defs.EINVAL
	}
	return 0
}

// / InstallLoad brings upage into physical memory on demand: the
// / page-fault handler's core. Held under EvictLock for atomicity with
// / concurrent eviction, exactly as original_source's
// / install_load_file/install_load_swap bracket themselves with
// / lock_acquire(&evict_lock).
func (as *AddressSpace) InstallLoad(upage uintptr) defs.Err_t {
	upage = mem.PageRoundDown(upage)

	as.LockEvict()
	defer as.UnlockEvict()

	e, ok := as.lookup(upage)
	if !ok {
		return defs.EFAULT
	}
	if e.Present {
		return 0
	}

	var flags mem.FrameFlags
	if e.Kind == KindCode && e.ReadBytes == 0 {
		flags = mem.PAL_ZERO
	}

	fr, errn := as.FrameTable.GetFrame(flags, as.Owner, upage, as.PT, e)
	if errn != 0 {
		return errn
	}

	switch {
	case e.InSwap:
		if err := as.Swap.SwapIn(e.SwapSlot, fr.Kpage); err != nil {
			as.FrameTable.FreeFrame(fr)
			return defs.ENOMEM
		}
		e.InSwap = false
	case e.ReadBytes > 0:
		as.FileLock.Lock()
		n, err := e.File.ReadAt(fr.Kpage[:e.ReadBytes], e.FileOfs)
		as.FileLock.Unlock()
		if err != nil || n != e.ReadBytes {
			as.FrameTable.FreeFrame(fr)
			return defs.EFAULT
		}
		for i := e.ReadBytes; i < mem.PGSIZE; i++ {
			fr.Kpage[i] = 0
		}
	}

	if !as.PT.InstallPage(upage, fr.Kpage, e.Writable) {
		as.FrameTable.FreeFrame(fr)
		return defs.ENOMEM
	}
	e.Present = true
	e.Frame = fr
	return 0
}

// / FreeMmap tears down one mapped page of an mmap region: writes it
// / back if dirty and resident, frees its frame, and removes the SPT
// / entry. Grounded on original_source/src/vm/page.c's free_spte_mmap.
func (as *AddressSpace) FreeMmap(upage uintptr) defs.Err_t {
	upage = mem.PageRoundDown(upage)

	as.LockEvict()
	defer as.UnlockEvict()

	e, ok := as.lookup(upage)
	if !ok || e.Kind != KindMmap {
		return defs.EINVAL
	}
	if e.Present {
		fr := e.Frame
		if err := e.Evict(as.PT, upage); err != nil {
			return defs.EFAULT
		}
		as.FrameTable.FreeFrame(fr)
	}
	as.spt.Del(upage)
	return 0
}

// / Destroy tears down every SPT entry in the address space: resident
// / pages are freed (CODE/FILE pages are simply discarded, MMAP pages
// / written back first), and any outstanding swap slot is released.
// / Grounded on original_source/src/vm/page.c's free_spte, invoked once
// / per entry at process exit.
func (as *AddressSpace) Destroy() {
	as.LockEvict()
	defer as.UnlockEvict()

	var upages []uintptr
	as.spt.Iter(func(upage uintptr, e *Spte) bool {
		upages = append(upages, upage)
		return true
	})

	for _, upage := range upages {
		e, ok := as.lookup(upage)
		if !ok {
			continue
		}
		if e.Present {
			fr := e.Frame
			if e.Kind == KindMmap {
				e.Evict(as.PT, upage)
			} else {
				as.PT.ClearPage(upage)
			}
			as.FrameTable.FreeFrame(fr)
		} else if e.InSwap {
			as.Swap.Free(e.SwapSlot)
		}
		as.spt.Del(upage)
	}
}
