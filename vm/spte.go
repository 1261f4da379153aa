package vm

import (
	"pintosvm/fdops"
	"pintosvm/mem"
	"pintosvm/swap"
)

// / Kind tags what an Spte is backed by. Grounded on
// / original_source/src/vm/page.h's enum spte_type (FILE_PAGE,
// / MMAP_PAGE, swap/anon handled via the same record) and on design
// / note §9's observation that the three SPT variants are naturally a
// / tagged sum rather than one struct with unused fields per variant.
type Kind int

const (
	KindCode Kind = iota /// demand-paged executable code/data segment, reloadable from its ELF-like file or swap
	KindFile             /// a plain demand-paged file read, never written back past EOF
	KindMmap             /// a memory-mapped file region, written back to its file on eviction/unmap if dirty
)

// / Spte is one supplemental page table entry: everything needed to
// / either find a page already resident, or reconstruct it on demand.
// / Same fields and invariants as spec.md §3.
type Spte struct {
	Kind     Kind
	Upage    uintptr
	Writable bool

	Present bool
	Frame   *mem.Frame

	InSwap   bool
	SwapSlot swap.SlotID

	File      fdops.File
	FileOfs   int64
	ReadBytes int
	ZeroBytes int

	as *AddressSpace
}

// / Anonymous implements mem.Victim: only CODE has no separate backing
// / store, so only CODE is exempt from the phase-1 write-behind pass.
func (s *Spte) Anonymous() bool {
	return s.Kind == KindCode
}

// / WriteBack implements mem.Victim's phase-1 write-behind: a dirty
// / FILE or MMAP page is flushed to its backing file at its recorded
// / offset and its hardware dirty bit is cleared, without evicting it.
// / Grounded on original_source/src/vm/page.c's write_to_disk, called
// / from frame.c's get_victim_frame phase 1 for any non-CODE frame.
func (s *Spte) WriteBack(pt mem.PageTable, upage uintptr) error {
	s.as.LockassertEvict()
	if s.Kind == KindCode || !pt.IsDirty(upage) {
		return nil
	}
	kpage, _ := pt.GetPage(upage)
	s.as.FileLock.Lock()
	_, err := s.File.WriteAt(kpage[:s.ReadBytes], s.FileOfs)
	s.as.FileLock.Unlock()
	if err != nil {
		return err
	}
	pt.SetDirty(upage, false)
	return nil
}

// / Evict implements mem.Victim: it is invoked by the frame table
// / (holding its own internal lock, serving as FrameTableLock) once
// / this entry's frame has actually been chosen as victim. Grounded on
// / original_source/src/vm/frame.c's evict_frame, which dispatches on
// / spte->type: MMAP writes back to its file if still dirty then
// / discards (reloadable from the same file offset); FILE is promoted
// / to CODE (it has become anonymous) and falls through to the CODE
// / case, which swaps the frame's contents out unconditionally, since
// / an evicted FILE page is never trusted to still match its origin
// / file bytes once chosen as victim.
func (s *Spte) Evict(pt mem.PageTable, upage uintptr) error {
	s.as.LockassertEvict()
	kpage, _ := pt.GetPage(upage)

	switch s.Kind {
	case KindMmap:
		if pt.IsDirty(upage) && s.File != nil {
			s.as.FileLock.Lock()
			_, err := s.File.WriteAt(kpage[:s.ReadBytes], s.FileOfs)
			s.as.FileLock.Unlock()
			if err != nil {
				return err
			}
		}
	case KindFile:
		s.Kind = KindCode
		fallthrough
	case KindCode:
		slot, err := s.as.Swap.SwapOut(kpage)
		if err != nil {
			return err
		}
		s.SwapSlot = slot
		s.InSwap = true
	}

	pt.ClearPage(upage)
	s.Present = false
	s.Frame = nil
	return nil
}
