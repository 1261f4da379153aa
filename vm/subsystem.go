// Package vm implements the per-process supplemental page table, the
// stack-growth heuristic, and user-pointer validation/pinning that sit
// on top of the frame table (package mem) and swap allocator (package
// swap). Grounded throughout on biscuit's vm package
// (biscuit/src/vm/as.go, userbuf.go) for Go idiom and on
// original_source/src/vm/page.c and src/userprog/syscall.c for exact
// replacement-policy and validation semantics.
package vm

import (
	"sync"

	"pintosvm/mem"
	"pintosvm/swap"
)

// / Config holds the tunables spec.md leaves as constants: the stack
// / heuristic margin, the maximum stack size, and the top of the user
// / address range stacks grow down from. Grounded on
// / original_source/src/userprog/syscall.c's STACK_HEURISTIC and
// / page.c's MAX_STACK_SIZE/PHYS_BASE, made configurable rather than
// / `#define`d since biscuit's own Phys_init-style explicit
// / initialization takes its sizes as parameters rather than compiling
// / them in.
type Config struct {
	StackHeuristicMargin uintptr // bytes below esp still treated as a plausible PUSH/PUSHA stack-growth fault
	MaxStackSize         uintptr // bytes; total stack growth budget
	StackTop             uintptr // PHYS_BASE equivalent: top of the user stack region, growth proceeds downward from here
}

// / DefaultConfig mirrors Pintos's actual constants: a 32-byte
// / heuristic margin (covers PUSHA's 32-byte range) and an 8MB stack.
func DefaultConfig() Config {
	return Config{
		StackHeuristicMargin: 32,
		MaxStackSize:         8 * 1024 * 1024,
		StackTop:             0xC0000000,
	}
}

// / Subsystem is the set of kernel-wide singletons every address space
// / shares: the frame pool, the swap allocator, and the locks ordered
// / EvictLock -> PinLock -> FrameTableLock -> FileLock (spec.md §5).
// / FrameTableLock is mem.FrameTable's own internal mutex; it is not
// / re-exposed here; callers acquire it implicitly by calling
// / FrameTable methods after already holding EvictLock/PinLock in the
// / correct order, exactly as original_source's frame_alloc takes
// / pin_lock then frame_table_lock internally.
// /
// / Grounded on design note §9 ("global singletons centralized behind
// / an explicit handle") and on biscuit's Vm_t.Lock_pmap/Unlock_pmap/
// / Lockassert_pmap pattern. Only EvictLock gets a Lockassert: it is
// / the one lock genuinely assumed pre-held by a nested helper
// / (Spte.Evict/WriteBack, invoked from inside FrameTable eviction
// / while the caller already holds EvictLock). PinLock has no such
// / nested caller — pinPage/unpinPage always acquire and release it
// / themselves rather than assuming it held — so it carries no
// / Lockassert.
type Subsystem struct {
	FrameTable *mem.FrameTable
	Swap       *swap.Allocator

	EvictLock sync.Mutex
	PinLock   sync.Mutex
	FileLock  sync.Mutex

	// Held only while the owning goroutine holds EvictLock; used solely
	// by LockassertEvict below, the same boolean-flag trick as
	// Vm_t.pgfltaken.
	evictHeld bool
}

// / NewSubsystem builds a Subsystem with a frame pool of frameCap
// / frames and a swap device of nSwapSlots PGSIZE slots.
func NewSubsystem(frameCap int, swapDev swap.BlockDevice, nSwapSlots int) *Subsystem {
	return &Subsystem{
		FrameTable: mem.NewFrameTable(frameCap),
		Swap:       swap.NewAllocator(swapDev, nSwapSlots),
	}
}

func (s *Subsystem) LockEvict() {
	s.EvictLock.Lock()
	s.evictHeld = true
}

func (s *Subsystem) UnlockEvict() {
	s.evictHeld = false
	s.EvictLock.Unlock()
}

// / LockassertEvict panics if EvictLock is not held by the caller.
func (s *Subsystem) LockassertEvict() {
	if !s.evictHeld {
		panic("evict lock must be held")
	}
}

func (s *Subsystem) LockPin() {
	s.PinLock.Lock()
}

func (s *Subsystem) UnlockPin() {
	s.PinLock.Unlock()
}
