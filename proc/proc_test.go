package proc

import (
	"bytes"
	"testing"

	"pintosvm/defs"
	"pintosvm/fdops"
	"pintosvm/mem"
	"pintosvm/swap"
	"pintosvm/vm"
)

func newTestProc(t *testing.T, name string) (*Proc, *bytes.Buffer) {
	t.Helper()
	dev := swap.NewMemDevice(4 * mem.PGSIZE)
	sub := vm.NewSubsystem(4, dev, 4)
	as := vm.NewAddressSpace(sub, defs.Tid_t(1), mem.NewSoftMMU(), vm.DefaultConfig())
	var out bytes.Buffer
	console := fdops.NewConsoleFile(&out)
	return New(defs.Tid_t(1), name, as, console), &out
}

func TestNewProcReservesConsoleSlots(t *testing.T) {
	p, _ := newTestProc(t, "prog")

	stdin, err := p.GetFd(0)
	if err != 0 {
		t.Fatalf("GetFd(0): %v", err)
	}
	if stdin.Perms&0x1 == 0 {
		t.Fatal("fd 0 should have read permission")
	}
	stdout, err := p.GetFd(1)
	if err != 0 {
		t.Fatalf("GetFd(1): %v", err)
	}
	if stdout.Perms&0x2 == 0 {
		t.Fatal("fd 1 should have write permission")
	}
}

func TestAllocFdStartsAtTwoAndCloseFrees(t *testing.T) {
	p, _ := newTestProc(t, "prog")
	f := fdops.NewMemFile([]byte("x"))

	fdnum, err := p.AllocFd(f, 0x3)
	if err != 0 {
		t.Fatalf("AllocFd: %v", err)
	}
	if fdnum != 2 {
		t.Fatalf("fdnum = %d, want 2", fdnum)
	}

	if err := p.CloseFd(fdnum); err != 0 {
		t.Fatalf("CloseFd: %v", err)
	}
	if _, err := p.GetFd(fdnum); err != defs.EBADF {
		t.Fatalf("expected EBADF after close, got %v", err)
	}

	// The freed slot should be reused.
	fdnum2, err := p.AllocFd(f, 0x3)
	if err != 0 || fdnum2 != 2 {
		t.Fatalf("expected slot 2 to be reused, got %d, err=%v", fdnum2, err)
	}
}

func TestAllocFdExhaustion(t *testing.T) {
	p, _ := newTestProc(t, "prog")
	f := fdops.NewMemFile([]byte("x"))

	for i := 2; i < mem.MaxFiles; i++ {
		if _, err := p.AllocFd(f, 0x3); err != 0 {
			t.Fatalf("AllocFd slot %d: %v", i, err)
		}
	}
	if _, err := p.AllocFd(f, 0x3); err != defs.EMFILE {
		t.Fatalf("expected EMFILE once the table is full, got %v", err)
	}
}

func TestExitPrintsBannerAndWakesWait(t *testing.T) {
	p, out := newTestProc(t, "myprog arg1 arg2")

	done := make(chan int)
	go func() { done <- Wait(p) }()

	p.Exit(7)

	if got := <-done; got != 7 {
		t.Fatalf("Wait returned %d, want 7", got)
	}
	if out.String() != "myprog: exit(7)\n" {
		t.Fatalf("exit banner = %q", out.String())
	}
}

func TestExitIsIdempotent(t *testing.T) {
	p, _ := newTestProc(t, "prog")
	p.Exit(1)
	p.Exit(2) // must not panic on double-close of exitCh

	if got := Wait(p); got != 1 {
		t.Fatalf("Wait = %d, want first exit status 1", got)
	}
}

func TestMmapIDAllocation(t *testing.T) {
	p, _ := newTestProc(t, "prog")
	region := &vm.MmapRegion{}

	id, err := p.AllocMmapID(region)
	if err != 0 {
		t.Fatalf("AllocMmapID: %v", err)
	}
	got, err := p.GetMmap(id)
	if err != 0 || got != region {
		t.Fatalf("GetMmap: got=%v err=%v", got, err)
	}

	p.FreeMmapID(id)
	if _, err := p.GetMmap(id); err != defs.EINVAL {
		t.Fatalf("expected EINVAL after FreeMmapID, got %v", err)
	}
}
