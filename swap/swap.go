// Package swap implements a bitmap-backed pool of fixed-size slots on
// a block device, used by the frame table to page out CODE-kind frames
// (dirty or not) under memory pressure. Grounded on
// original_source/src/vm/frame.c's swap_out/swap_in (a bitmap of
// PGSIZE-sized slots guarded by a single lock) and, for the Go
// locking/allocation idiom, on biscuit/src/mem/mem.go's Physmem_t free
// list (take-from-pool-or-fail pattern under one mutex).
package swap

import (
	"errors"
	"sync"

	"pintosvm/mem"
)

// / ErrNoSlots is returned when every slot is occupied. Grounded on
// / frame.c's PANIC("Not able to swap out") — the frame table's caller
// / treats this as fatal, matching Pintos's own behavior when swap is
// / exhausted.
var ErrNoSlots = errors.New("swap: no free slots")

// / SlotID identifies one swap slot.
type SlotID int

// / BlockDevice is the storage a swap allocator writes to and reads
// / from, in PGSIZE-sized units. The out-of-scope real disk (spec §1)
// / is consumed through this interface; MemDevice below is the
// / in-memory stand-in every test uses, and fdops.OSFile can also
// / satisfy it directly.
type BlockDevice interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
}

// / Allocator hands out and reclaims swap slots, backed by a word-
// / packed free bitmap exactly as Pintos's <bitmap.h> usage in
// / frame.c/swap_out.
type Allocator struct {
	mu     sync.Mutex
	dev    BlockDevice
	bitmap []uint64 // bit set => slot in use
	nslots int
}

// / NewAllocator creates an allocator over nslots PGSIZE-sized regions
// / of dev.
func NewAllocator(dev BlockDevice, nslots int) *Allocator {
	words := (nslots + 63) / 64
	return &Allocator{dev: dev, bitmap: make([]uint64, words), nslots: nslots}
}

func (a *Allocator) testBit(i int) bool {
	return a.bitmap[i/64]&(1<<uint(i%64)) != 0
}

func (a *Allocator) setBit(i int) {
	a.bitmap[i/64] |= 1 << uint(i%64)
}

func (a *Allocator) clearBit(i int) {
	a.bitmap[i/64] &^= 1 << uint(i%64)
}

// / SwapOut writes src (exactly mem.PGSIZE bytes) to a freshly
// / allocated slot and returns its ID.
func (a *Allocator) SwapOut(src []byte) (SlotID, error) {
	if len(src) != mem.PGSIZE {
		return 0, errors.New("swap: page must be PGSIZE bytes")
	}
	a.mu.Lock()
	idx := -1
	for i := 0; i < a.nslots; i++ {
		if !a.testBit(i) {
			idx = i
			a.setBit(i)
			break
		}
	}
	a.mu.Unlock()
	if idx == -1 {
		return 0, ErrNoSlots
	}
	if _, err := a.dev.WriteAt(src, int64(idx*mem.PGSIZE)); err != nil {
		a.mu.Lock()
		a.clearBit(idx)
		a.mu.Unlock()
		return 0, err
	}
	return SlotID(idx), nil
}

// / SwapIn reads slot's contents into dst (exactly mem.PGSIZE bytes)
// / and frees the slot.
func (a *Allocator) SwapIn(slot SlotID, dst []byte) error {
	if len(dst) != mem.PGSIZE {
		return errors.New("swap: page must be PGSIZE bytes")
	}
	if _, err := a.dev.ReadAt(dst, int64(int(slot)*mem.PGSIZE)); err != nil {
		return err
	}
	a.mu.Lock()
	a.clearBit(int(slot))
	a.mu.Unlock()
	return nil
}

// / Free releases slot without reading it back, used when a swapped
// / page's owning SPT entry is destroyed outright (process exit).
func (a *Allocator) Free(slot SlotID) {
	a.mu.Lock()
	a.clearBit(int(slot))
	a.mu.Unlock()
}

// / InUse reports how many slots are currently occupied.
func (a *Allocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for i := 0; i < a.nslots; i++ {
		if a.testBit(i) {
			n++
		}
	}
	return n
}
