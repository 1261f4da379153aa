package vmsyscall

import (
	"io"

	"pintosvm/fd"
	"pintosvm/proc"
)

func sysRead(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	fdv, ferr := p.GetFd(a.A0)
	if ferr != 0 || fdv.Perms&fd.FD_READ == 0 {
		return -1
	}
	us, verr := p.AS.Validate(uintptr(a.A1), a.A2, true, esp)
	if verr != 0 {
		p.Exit(-1)
		return -1
	}
	defer us.Release()

	buf := make([]byte, a.A2)
	n, rerr := fdv.Fops.ReadAt(buf, fdv.Offset)
	if rerr != nil && rerr != io.EOF {
		return -1
	}
	fdv.Offset += int64(n)
	if n > 0 {
		if cerr := us.CopyOut(buf[:n]); cerr != 0 {
			p.Exit(-1)
			return -1
		}
	}
	return n
}

func sysWrite(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	fdv, ferr := p.GetFd(a.A0)
	if ferr != 0 || fdv.Perms&fd.FD_WRITE == 0 {
		return -1
	}
	us, verr := p.AS.Validate(uintptr(a.A1), a.A2, false, esp)
	if verr != 0 {
		p.Exit(-1)
		return -1
	}
	defer us.Release()

	buf := make([]byte, a.A2)
	if cerr := us.CopyIn(buf); cerr != 0 {
		p.Exit(-1)
		return -1
	}
	n, werr := fdv.Fops.WriteAt(buf, fdv.Offset)
	if werr != nil {
		return -1
	}
	fdv.Offset += int64(n)
	return n
}

func sysMmap(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	fdnum := a.A0
	if fdnum == 0 || fdnum == 1 {
		return -1
	}
	fdv, ferr := p.GetFd(fdnum)
	if ferr != 0 {
		return -1
	}
	length := fdv.Fops.Length()
	if length == 0 {
		return -1
	}
	reopened, rerr := fdv.Fops.Reopen()
	if rerr != 0 {
		return -1
	}
	region, merr := p.AS.Mmap(uintptr(a.A1), reopened, int(length))
	if merr != 0 {
		reopened.Close()
		return -1
	}
	mapid, aerr := p.AllocMmapID(region)
	if aerr != 0 {
		p.AS.Munmap(region)
		return -1
	}
	return mapid
}

func sysMunmap(ctx *Context, p *proc.Proc, esp uintptr, a Args) int {
	region, err := p.GetMmap(a.A0)
	if err != 0 {
		return -1
	}
	p.AS.Munmap(region)
	p.FreeMmapID(a.A0)
	return 0
}
