package vm

import (
	"pintosvm/defs"
	"pintosvm/mem"
)

// / IsStackGrowth reports whether a fault at addr with stack pointer
// / esp looks like legitimate stack growth rather than a bad access.
// / Grounded on original_source/src/userprog/syscall.c's valid_up
// / (`ptr >= esp - STACK_HEURISTIC`) combined with page.c's grow_stack
// / rejection (`PHYS_BASE - uaddr > MAX_STACK_SIZE`): addr must be
// / within the heuristic margin below esp, and the resulting stack
// / must not exceed its configured maximum size.
func (as *AddressSpace) IsStackGrowth(addr, esp uintptr) bool {
	if addr+as.Cfg.StackHeuristicMargin < esp {
		return false
	}
	if as.Cfg.StackTop-mem.PageRoundDown(addr) > as.Cfg.MaxStackSize {
		return false
	}
	return true
}

// / GrowStack installs a fresh zero-filled page at addr's page and
// / loads it, used once IsStackGrowth has approved the fault. Grounded
// / on page.c's grow_stack, which calls create_spte_code with
// / read_bytes=0 for the new page (it has no backing file) and
// / immediately installs it, rather than waiting for a second fault.
func (as *AddressSpace) GrowStack(addr uintptr) defs.Err_t {
	upage := mem.PageRoundDown(addr)
	if _, ok := as.lookup(upage); ok {
		return defs.EFAULT
	}
	if err := as.CreateCode(upage, nil, 0, 0, mem.PGSIZE, true); err != 0 {
		return err
	}
	return as.InstallLoad(upage)
}
