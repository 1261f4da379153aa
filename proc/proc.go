// Package proc is the per-process container tying a thread id, an
// address space, and its fixed file/mmap descriptor tables together.
// Grounded on biscuit's Tinfo_t/Proc_t split (hinted at by
// Vm_t.P_pmap mem.Pa_t carrying a back-reference to its owning
// process) and on design note §9's instruction to separate "free user
// memory" from "signal exit": AddressSpace.Destroy and Proc.Exit are
// two distinct steps, the former freeing frames/swap, the latter
// waking anyone blocked in Wait.
package proc

import (
	"fmt"
	"sync"

	"pintosvm/defs"
	"pintosvm/fd"
	"pintosvm/fdops"
	"pintosvm/mem"
	"pintosvm/ustr"
	"pintosvm/vm"
)

// / Proc is one process: a thread id, its address space, and the fixed-
// / size file/mmap tables spec.md §3 describes. Slots 0 and 1 of the
// / file table are reserved for the console, matching Pintos's
// / STDIN_FILENO/STDOUT_FILENO convention.
type Proc struct {
	Tid  defs.Tid_t
	Name string
	AS   *vm.AddressSpace

	mu     sync.Mutex
	fds    [mem.MaxFiles]*fd.Fd_t
	mmaps  [mem.MaxFiles]*vm.MmapRegion
	exited bool
	status int
	exitCh chan int
	cons   *fdops.ConsoleFile
}

// / New constructs a Proc named progname (the exit banner uses
// / ustr.FirstToken of this, matching spec §6's
// / "{progname}: exit({status})\n" convention), with console wired into
// / fd 0 and fd 1.
func New(tid defs.Tid_t, progname string, as *vm.AddressSpace, console *fdops.ConsoleFile) *Proc {
	p := &Proc{Tid: tid, Name: progname, AS: as, exitCh: make(chan int, 1), cons: console}
	p.fds[0] = &fd.Fd_t{Fops: console, Perms: fd.FD_READ}
	p.fds[1] = &fd.Fd_t{Fops: console, Perms: fd.FD_WRITE}
	return p
}

// / AllocFd installs f in the lowest free slot at or above 2, returning
// / EMFILE if the table is full.
func (p *Proc) AllocFd(f fdops.File, perms int) (int, defs.Err_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 2; i < mem.MaxFiles; i++ {
		if p.fds[i] == nil {
			p.fds[i] = &fd.Fd_t{Fops: f, Perms: perms}
			return i, 0
		}
	}
	return -1, defs.EMFILE
}

// / GetFd returns the descriptor at fdnum, or EBADF if it is unused or
// / out of range.
func (p *Proc) GetFd(fdnum int) (*fd.Fd_t, defs.Err_t) {
	if fdnum < 0 || fdnum >= mem.MaxFiles {
		return nil, defs.EBADF
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	f := p.fds[fdnum]
	if f == nil {
		return nil, defs.EBADF
	}
	return f, 0
}

// / CloseFd closes and clears fdnum's slot.
func (p *Proc) CloseFd(fdnum int) defs.Err_t {
	f, err := p.GetFd(fdnum)
	if err != 0 {
		return err
	}
	p.mu.Lock()
	p.fds[fdnum] = nil
	p.mu.Unlock()
	fd.Close_panic(f)
	return 0
}

// / AllocMmapID installs r in the lowest free mapid slot, returning
// / EMFILE if the table is full (mirrors the fd table's allocation
// / scheme since both are spec.md §3's "fixed [MaxFiles] table"
// / pattern).
func (p *Proc) AllocMmapID(r *vm.MmapRegion) (int, defs.Err_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < mem.MaxFiles; i++ {
		if p.mmaps[i] == nil {
			p.mmaps[i] = r
			return i, 0
		}
	}
	return -1, defs.EMFILE
}

// / GetMmap returns the region registered under mapid.
func (p *Proc) GetMmap(mapid int) (*vm.MmapRegion, defs.Err_t) {
	if mapid < 0 || mapid >= mem.MaxFiles {
		return nil, defs.EINVAL
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.mmaps[mapid]
	if r == nil {
		return nil, defs.EINVAL
	}
	return r, 0
}

// / FreeMmapID clears mapid's slot without unmapping (the caller is
// / expected to have already called AS.Munmap).
func (p *Proc) FreeMmapID(mapid int) {
	p.mu.Lock()
	p.mmaps[mapid] = nil
	p.mu.Unlock()
}

// / Exit tears down the address space, prints the exit banner, and
// / wakes exactly one pending Wait. Calling Exit more than once on the
// / same Proc is a no-op after the first call, matching Pintos's
// / "a thread exits exactly once" invariant.
func (p *Proc) Exit(status int) {
	p.mu.Lock()
	if p.exited {
		p.mu.Unlock()
		return
	}
	p.exited = true
	p.status = status
	p.mu.Unlock()

	progname := ustr.MkUstrSlice([]byte(p.Name)).FirstToken()
	banner := fmt.Sprintf("%s: exit(%d)\n", progname.String(), status)
	if p.cons != nil {
		p.cons.WriteAt([]byte(banner), 0)
	} else {
		fmt.Print(banner)
	}

	p.AS.Destroy()
	p.exitCh <- status
	close(p.exitCh)
}

// / Wait blocks until child exits and returns its status, or -1 if
// / child has already been waited for. Grounded on spec §6's
// / "load/ack/terminated handoff" semaphore description, implemented
// / here as a Go channel closed exactly once (see SPEC_FULL.md §6).
func Wait(child *Proc) int {
	status, ok := <-child.exitCh
	if !ok {
		return -1
	}
	return status
}
