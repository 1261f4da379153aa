package vmsyscall

import (
	"sync"

	"pintosvm/defs"
	"pintosvm/fd"
	"pintosvm/fdops"
	"pintosvm/proc"
)

// / Loader is the consumed process-loading interface (spec §1/§6: out
// / of scope to implement here). EXEC hands it a command line and gets
// / back a freshly constructed child Proc already running in its own
// / address space; this core has no ELF loader of its own, matching
// / Pintos's process_execute boundary.
type Loader interface {
	Load(cmdline string) (*proc.Proc, error)
}

// / Context bundles the collaborators a dispatch table call needs
// / beyond the calling Proc itself: the file system and process loader
// / (both consumed interfaces, spec §6), and the EXEC/WAIT child
// / registry.
type Context struct {
	FS     fdops.FileSystem
	Loader Loader

	mu       sync.Mutex
	children map[defs.Pid_t]*proc.Proc
	nextPid  defs.Pid_t
}

// / NewContext builds a Context over fs and loader.
func NewContext(fs fdops.FileSystem, loader Loader) *Context {
	return &Context{FS: fs, Loader: loader, children: make(map[defs.Pid_t]*proc.Proc)}
}

func (ctx *Context) registerChild(child *proc.Proc) defs.Pid_t {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	pid := ctx.nextPid
	ctx.nextPid++
	ctx.children[pid] = child
	return pid
}

func (ctx *Context) takeChild(pid defs.Pid_t) (*proc.Proc, bool) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	c, ok := ctx.children[pid]
	if ok {
		delete(ctx.children, pid)
	}
	return c, ok
}

func sysExec(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	cmdline, err := p.AS.ValidateString(uintptr(a.A0), 128, esp)
	if err != 0 {
		p.Exit(-1)
		return -1
	}
	child, lerr := ctx.Loader.Load(cmdline)
	if lerr != nil {
		return -1
	}
	return int(ctx.registerChild(child))
}

func sysWait(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	child, ok := ctx.takeChild(defs.Pid_t(a.A0))
	if !ok {
		return -1
	}
	return proc.Wait(child)
}

func sysCreate(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	name, err := p.AS.ValidateString(uintptr(a.A0), 512, esp)
	if err != 0 {
		p.Exit(-1)
		return -1
	}
	if ctx.FS.Create(name, int64(a.A1)) {
		return 1
	}
	return 0
}

func sysRemove(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	name, err := p.AS.ValidateString(uintptr(a.A0), 512, esp)
	if err != 0 {
		p.Exit(-1)
		return -1
	}
	if ctx.FS.Remove(name) {
		return 1
	}
	return 0
}

func sysOpen(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	name, err := p.AS.ValidateString(uintptr(a.A0), 512, esp)
	if err != 0 {
		p.Exit(-1)
		return -1
	}
	f, ok := ctx.FS.Open(name)
	if !ok {
		return -1
	}
	fdnum, aerr := p.AllocFd(f, fd.FD_READ|fd.FD_WRITE)
	if aerr != 0 {
		f.Close()
		return -1
	}
	return fdnum
}

func sysFilesize(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	fdv, err := p.GetFd(a.A0)
	if err != 0 {
		return -1
	}
	return int(fdv.Fops.Length())
}

func sysSeek(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	fdv, err := p.GetFd(a.A0)
	if err != 0 {
		return -1
	}
	fdv.Offset = int64(a.A1)
	return 0
}

func sysTell(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	fdv, err := p.GetFd(a.A0)
	if err != 0 {
		return -1
	}
	return int(fdv.Offset)
}

func sysClose(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	p.CloseFd(a.A0)
	return 0
}
