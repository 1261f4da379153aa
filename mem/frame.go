package mem

import (
	"errors"
	"fmt"
	"sync"

	"pintosvm/caller"
	"pintosvm/defs"
	"pintosvm/oommsg"
	"pintosvm/stats"
)

// / errEmptyFramePool is evict()'s only non-panicking failure: there is
// / nothing in ft.inuse at all, so eviction has nothing to sweep. With a
// / nonzero frame pool this is unreachable (GetFrame only evicts once
// / the free list is empty, which means capacity frames are already in
// / ft.inuse), but it is kept as a soft, caller-visible defs.ENOMEM
// / instead of a panic in case a zero-capacity FrameTable is ever
// / constructed.
var errEmptyFramePool = errors.New("mem: frame pool has no in-use frames to evict")

// / Victim is the eviction hook a frame's occupant must implement so the
// / frame table can reclaim it without knowing anything about
// / supplemental-page-table entries. Implemented by *vm.Spte; kept here
// / rather than imported from vm to avoid a mem<->vm import cycle (vm
// / already needs mem.PageTable and mem.Frame).
// /
// / Anonymous reports whether the occupant has no separate backing
// / store to lazily flush in phase 1 of eviction (true only for CODE).
// / Grounded on original_source/src/vm/frame.c's get_victim_frame,
// / which branches its phase-1 test on "spte->type != CODE".
// /
// / WriteBack performs the phase-1 write-behind: if the occupant is
// / dirty, flush it to its backing file and clear the hardware dirty
// / bit, without evicting it. A no-op for CODE and for clean pages.
// /
// / Evict is called once the occupant has actually been chosen as
// / victim. It must write the frame's contents back to wherever they
// / belong (a file, a swap slot, or nowhere at all if the page is
// / clean and reloadable from its backing file) and clear the
// / hardware mapping via pt.ClearPage. Grounded on
// / original_source/src/vm/frame.c's evict_frame, which dispatches on
// / spte->type (MMAP -> write back if dirty then discard; FILE ->
// / promote to CODE and fall through; CODE -> swap out unconditionally).
type Victim interface {
	Anonymous() bool
	WriteBack(pt PageTable, upage uintptr) error
	Evict(pt PageTable, upage uintptr) error
}

// / Frame is one physical page frame, owned by at most one supplemental
// / page table entry at a time (spec.md's Non-goals exclude COW and
// / shared memory, so there is no refcount to maintain here the way
// / biscuit's Physmem_t needs one).
type Frame struct {
	Kpage  []byte
	Owner  defs.Tid_t
	Upage  uintptr
	PT     PageTable
	V      Victim
	Pinned bool
}

// / FrameTable is the physical frame pool: a fixed number of frames,
// / handed out on demand and reclaimed by enhanced second-chance
// / eviction when the pool is exhausted. Grounded on
// / original_source/src/vm/frame.c's frame_table (a doubly linked list
// / guarded by a single lock) rather than biscuit's percpu Physmem_t,
// / since there is no multi-core frame pool to shard here.
type FrameTable struct {
	mu       sync.Mutex
	capacity int
	free     []*Frame
	inuse    []*Frame // clock order: oldest-installed first

	Evictions stats.Counter_t
	oomSites  caller.Distinct_caller_t
}

// / NewFrameTable preallocates capacity zero-filled frames of PGSIZE
// / bytes each.
func NewFrameTable(capacity int) *FrameTable {
	ft := &FrameTable{capacity: capacity}
	for i := 0; i < capacity; i++ {
		ft.free = append(ft.free, &Frame{Kpage: make([]byte, PGSIZE), Owner: defs.NoTid})
	}
	ft.oomSites.Enabled = true
	return ft
}

// / GetFrame returns a frame for upage, evicting a victim if the pool is
// / exhausted. owner is the requesting thread, pt is its page table, and
// / v is the Victim the new occupant presents to future evictors; v may
// / be nil only if the caller immediately overwrites it before the frame
// / table lock is released elsewhere (callers in this core always pass a
// / real Victim before unlocking, per the vm package's Spte lifecycle).
// /
// / The only recoverable failure is the degenerate errEmptyFramePool
// / case (reported as defs.ENOMEM); swap exhaustion and an all-pinned
// / pool are unrecoverable and panic from inside evict/reclaim instead
// / of surfacing here, matching frame.c's own PANIC-on-those-conditions
// / behavior.
func (ft *FrameTable) GetFrame(flags FrameFlags, owner defs.Tid_t, upage uintptr, pt PageTable, v Victim) (*Frame, defs.Err_t) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	var fr *Frame
	if n := len(ft.free); n > 0 {
		fr = ft.free[n-1]
		ft.free = ft.free[:n-1]
	} else {
		var err error
		fr, err = ft.evict()
		if err != nil {
			if novel, trace := ft.oomSites.Distinct(); novel {
				fmt.Printf("frame pool exhausted: %v\n%s", err, trace)
			}
			resume := make(chan bool, 1)
			select {
			case oommsg.OomCh <- oommsg.Oommsg_t{Need: 1, Resume: resume}:
			default:
			}
			return nil, defs.ENOMEM
		}
		ft.Evictions.Inc()
	}

	if flags&PAL_ZERO != 0 {
		for i := range fr.Kpage {
			fr.Kpage[i] = 0
		}
	}
	fr.Owner = owner
	fr.Upage = upage
	fr.PT = pt
	fr.V = v
	ft.inuse = append(ft.inuse, fr)
	return fr, 0
}

// / FreeFrame returns fr to the free list. The caller must have already
// / cleared fr's hardware mapping; FreeFrame only updates frame-table
// / bookkeeping (grounded on frame.c's free_frame / clear_frame_entry
// / split: clear_frame_entry detaches the spte, free_frame releases the
// / physical page).
func (ft *FrameTable) FreeFrame(fr *Frame) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	for i, c := range ft.inuse {
		if c == fr {
			ft.inuse = append(ft.inuse[:i], ft.inuse[i+1:]...)
			break
		}
	}
	fr.Owner = defs.NoTid
	fr.Upage = 0
	fr.PT = nil
	fr.V = nil
	ft.free = append(ft.free, fr)
}

// / evict runs the enhanced second-chance, three-phase sweep over every
// / in-use frame (FIFO order) and reclaims the chosen victim. Must be
// / called with ft.mu held. Grounded on frame.c's get_victim_frame,
// / translated statement-for-statement: phase 1 flushes easy
// / write-behind candidates and picks the first clean, unaccessed
// / frame (CODE only qualifies if also undirtied); phase 2 clears
// / accessed bits and picks the first unaccessed frame regardless of
// / dirty state; phase 3 forces the first unpinned frame in the list.
// / If phase 3 finds every frame pinned, that is a pin-leak bug, not a
// / recoverable condition, and this panics instead of returning an
// / error, exactly as frame_alloc's "Not able to evict" PANIC does.
func (ft *FrameTable) evict() (*Frame, error) {
	if len(ft.inuse) == 0 {
		return nil, errEmptyFramePool
	}

	// Phase 1: write-behind and easy victims.
	for _, fr := range ft.inuse {
		if fr.Pinned {
			continue
		}
		dirty := fr.PT.IsDirty(fr.Upage)
		accessed := fr.PT.IsAccessed(fr.Upage)
		if !fr.V.Anonymous() {
			if dirty {
				// Best-effort write-behind: get_victim_frame only
				// conditionally clears the dirty bit on
				// write_to_disk's success and otherwise leaves this
				// frame in place for a later phase, rather than
				// aborting the sweep on a write failure.
				fr.V.WriteBack(fr.PT, fr.Upage)
				continue
			}
			if !accessed {
				return ft.reclaim(fr), nil
			}
		} else if !dirty && !accessed {
			return ft.reclaim(fr), nil
		}
	}

	// Phase 2: ageing.
	for _, fr := range ft.inuse {
		if fr.Pinned {
			continue
		}
		if !fr.PT.IsAccessed(fr.Upage) {
			return ft.reclaim(fr), nil
		}
		fr.PT.SetAccessed(fr.Upage, false)
	}

	// Phase 3: forced FIFO.
	for _, fr := range ft.inuse {
		if !fr.Pinned {
			return ft.reclaim(fr), nil
		}
	}

	panic("mem: frame table exhausted: every frame is pinned (pin leak)")
}

// / reclaim finalizes eviction of fr: runs its occupant's Evict hook,
// / removes fr from the in-use list, and clears its bookkeeping fields.
// / Must be called with ft.mu held. A failure from Evict (the backing
// / file write failed, or the swap device is full) is fatal and panics
// / rather than returning an error: grounded on evict_frame's own
// / "Not able to write out" / "Not able to swap out" PANICs, since once
// / a frame has been chosen as victim there is no fallback storage left
// / to try.
func (ft *FrameTable) reclaim(fr *Frame) *Frame {
	if err := fr.V.Evict(fr.PT, fr.Upage); err != nil {
		panic(fmt.Sprintf("mem: unable to evict frame: %v", err))
	}
	for i, c := range ft.inuse {
		if c == fr {
			ft.inuse = append(ft.inuse[:i], ft.inuse[i+1:]...)
			break
		}
	}
	fr.Owner = defs.NoTid
	fr.Upage = 0
	fr.PT = nil
	fr.V = nil
	return fr
}

// / InUseCount reports the number of frames currently handed out; used
// / by tests to assert on eviction pressure without reaching into
// / FrameTable internals.
func (ft *FrameTable) InUseCount() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.inuse)
}

// / FreeCount reports the number of frames immediately available
// / without eviction.
func (ft *FrameTable) FreeCount() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.free)
}
