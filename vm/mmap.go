package vm

import (
	"pintosvm/defs"
	"pintosvm/fdops"
	"pintosvm/mem"
)

// / MmapRegion tracks every page a single mmap call registered, so
// / munmap can tear the whole region down as one unit. Grounded on
// / original_source/src/userprog/syscall.c's mmap/munmap, which keep a
// / struct mmap_file per call recording its page range.
type MmapRegion struct {
	Upages []uintptr
	File   fdops.File
}

// / Mmap registers length bytes of file starting at file offset 0,
// / mapped at addr, one SPT entry per page. addr must be non-null and
// / page-aligned (original_source's is_valid_page check); any overlap
// / with an existing mapping rolls back everything this call has
// / inserted so far and fails, per spec.md §7.
func (as *AddressSpace) Mmap(addr uintptr, file fdops.File, length int) (*MmapRegion, defs.Err_t) {
	if addr == 0 || addr != mem.PageRoundDown(addr) {
		return nil, defs.EINVAL
	}
	if length <= 0 {
		return nil, defs.EINVAL
	}

	npages := (length + mem.PGSIZE - 1) / mem.PGSIZE
	var upages []uintptr
	for i := 0; i < npages; i++ {
		upage := addr + uintptr(i*mem.PGSIZE)
		readBytes := mem.PGSIZE
		if rem := length - i*mem.PGSIZE; rem < mem.PGSIZE {
			readBytes = rem
		}
		if err := as.CreateMmap(upage, file, int64(i*mem.PGSIZE), readBytes); err != 0 {
			for _, up := range upages {
				as.spt.Del(up)
			}
			return nil, defs.EINVAL
		}
		upages = append(upages, upage)
	}
	return &MmapRegion{Upages: upages, File: file}, 0
}

// / Munmap writes back and tears down every page of r. Grounded on
// / original_source/src/userprog/syscall.c's munmap, which calls
// / free_spte_mmap once per page of the region.
func (as *AddressSpace) Munmap(r *MmapRegion) defs.Err_t {
	for _, upage := range r.Upages {
		if err := as.FreeMmap(upage); err != 0 {
			return err
		}
	}
	return 0
}
