// Package vmsyscall implements the twenty-entry syscall dispatch table
// that sits on top of package vm's user-pointer validation/pinning and
// package proc's per-process file/mmap tables. Named distinctly (not
// `syscall`) to avoid shadowing the standard library package. Grounded
// on original_source/src/userprog/syscall.c for every handler's
// semantics; the dispatch-table shape itself is grounded on biscuit's
// own `Sys_pgfault`-style single-purpose handlers wrapped by one
// locking entry point (biscuit/src/vm/as.go's Sys_pgfault switches on
// fault kind the same way this table switches on syscall number).
package vmsyscall

import (
	"pintosvm/proc"
)

// Syscall numbers, matching spec.md §6's table exactly.
const (
	SYS_HALT = iota
	SYS_EXIT
	SYS_EXEC
	SYS_WAIT
	SYS_CREATE
	SYS_REMOVE
	SYS_OPEN
	SYS_FILESIZE
	SYS_READ
	SYS_WRITE
	SYS_SEEK
	SYS_TELL
	SYS_CLOSE
	SYS_MMAP
	SYS_MUNMAP
	SYS_CHDIR
	SYS_MKDIR
	SYS_READDIR
	SYS_ISDIR
	SYS_INUMBER
	numSyscalls
)

// / HaltPanic is the sentinel value HALT panics with, recovered by the
// / demo harness or test driver instead of actually powering off a
// / machine (design note §9, Open Question 4).
type HaltPanic struct{}

// / Args are the three word-sized syscall arguments read from the
// / user stack at esp+4, esp+8, esp+12, matching Pintos's cdecl-style
// / syscall ABI.
type Args struct {
	A0, A1, A2 int
}

// / Handler implements one syscall number. esp is the caller's user
// / stack pointer at syscall entry, needed by the stack-growth
// / heuristic when validating pointer arguments.
type Handler func(ctx *Context, p *proc.Proc, esp uintptr, args Args) int

// / Table is the fixed twenty-entry dispatch table; index i implements
// / syscall number i.
type Table [numSyscalls]Handler

// / NewTable builds the dispatch table: the first 15 entries are the
// / required surface, the remaining 5 are directory-syscall stubs that
// / terminate the caller, matching Pintos's exit(NULL) stub bodies
// / (design note §9, Open Question 3).
func NewTable() Table {
	var t Table
	t[SYS_HALT] = sysHalt
	t[SYS_EXIT] = sysExit
	t[SYS_EXEC] = sysExec
	t[SYS_WAIT] = sysWait
	t[SYS_CREATE] = sysCreate
	t[SYS_REMOVE] = sysRemove
	t[SYS_OPEN] = sysOpen
	t[SYS_FILESIZE] = sysFilesize
	t[SYS_READ] = sysRead
	t[SYS_WRITE] = sysWrite
	t[SYS_SEEK] = sysSeek
	t[SYS_TELL] = sysTell
	t[SYS_CLOSE] = sysClose
	t[SYS_MMAP] = sysMmap
	t[SYS_MUNMAP] = sysMunmap
	for i := SYS_CHDIR; i <= SYS_INUMBER; i++ {
		t[i] = sysDirStub
	}
	return t
}

// / Dispatch reads the syscall number and its three arguments off the
// / user stack at esp and invokes the matching handler. An unmapped
// / argument address terminates the process (spec.md §7: invalid
// / pointer -> terminate); an out-of-range or nil-handler syscall
// / number returns -1 without terminating (spec.md §7: unknown syscall
// / number -> return -1, do not terminate).
func (t Table) Dispatch(ctx *Context, p *proc.Proc, esp uintptr) int {
	num, err := p.AS.Userreadn(esp, 4)
	if err != 0 {
		p.Exit(-1)
		return -1
	}
	var a Args
	if a0, err := p.AS.Userreadn(esp+4, 4); err == 0 {
		a.A0 = a0
	} else {
		p.Exit(-1)
		return -1
	}
	// a1/a2 are read best-effort: several syscalls (HALT, EXIT, WAIT,
	// ...) take fewer than three words, and the bytes beyond a
	// syscall's real argument count may legitimately sit outside the
	// mapped stack page. Each handler below validates the specific
	// buffers it actually uses via AS.Validate/AS.ValidateString, matching
	// original_source/src/userprog/syscall.c's per-argument validate()
	// calls instead of this eager 3-word prefetch.
	if a1, err := p.AS.Userreadn(esp+8, 4); err == 0 {
		a.A1 = a1
	}
	if a2, err := p.AS.Userreadn(esp+12, 4); err == 0 {
		a.A2 = a2
	}

	if num < 0 || num >= int(numSyscalls) || t[num] == nil {
		return -1
	}
	return t[num](ctx, p, esp, a)
}

func sysHalt(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	panic(HaltPanic{})
}

func sysExit(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	p.Exit(a.A0)
	return a.A0
}

func sysDirStub(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	p.Exit(-1)
	return -1
}
