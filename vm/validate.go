package vm

import "pintosvm/defs"
import "pintosvm/mem"

// / Validate is the syscall entry point's user-pointer check: it grows
// / the stack for any covered page that looks like legitimate stack
// / growth relative to esp, then pins the whole range. Grounded on
// / original_source/src/userprog/syscall.c's validate(), which calls
// / grow_stack() before falling through to the ordinary
// / validate/pin path. On failure the syscall handler terminates the
// / caller (spec.md §7: "Invalid pointer / write-to-read-only ->
// / terminate -1").
func (as *AddressSpace) Validate(ptr uintptr, n int, forWrite bool, esp uintptr) (*UserSlice, defs.Err_t) {
	if ptr != 0 && n > 0 {
		start := mem.PageRoundDown(ptr)
		last := mem.PageRoundDown(ptr + uintptr(n) - 1)
		for p := start; ; p += uintptr(mem.PGSIZE) {
			// The first page is judged by ptr itself, not its page start,
			// so an access just below esp is not rejected by the margin.
			addr := p
			if addr < ptr {
				addr = ptr
			}
			if _, ok := as.lookup(p); !ok && as.IsStackGrowth(addr, esp) {
				as.GrowStack(p)
			}
			if p == last {
				break
			}
		}
	}
	return AcquireUserSlice(as, ptr, n, forWrite)
}

// / ValidateString is Validate's counterpart for NUL-terminated
// / strings. Unlike Validate, the range being walked isn't known in
// / advance, so the stack-growth check is performed page-by-page as
// / the walk reaches each new page rather than once up front; see
// / userstr.
func (as *AddressSpace) ValidateString(ptr uintptr, maxlen int, esp uintptr) (string, defs.Err_t) {
	return as.userstr(ptr, maxlen, &esp)
}
