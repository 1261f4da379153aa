package vm

import (
	"bytes"
	"testing"

	"pintosvm/defs"
	"pintosvm/fdops"
	"pintosvm/mem"
	"pintosvm/swap"
)

func newTestSubsystem(frames int) *Subsystem {
	dev := swap.NewMemDevice(16 * mem.PGSIZE)
	return NewSubsystem(frames, dev, 16)
}

func newTestAS(t *testing.T, sub *Subsystem) *AddressSpace {
	t.Helper()
	pt := mem.NewSoftMMU()
	return NewAddressSpace(sub, defs.Tid_t(1), pt, DefaultConfig())
}

func TestCreateCodeZeroPage(t *testing.T) {
	sub := newTestSubsystem(4)
	as := newTestAS(t, sub)

	upage := uintptr(0x400000)
	if err := as.CreateCode(upage, nil, 0, 0, mem.PGSIZE, true); err != 0 {
		t.Fatalf("CreateCode: %v", err)
	}
	if err := as.InstallLoad(upage); err != 0 {
		t.Fatalf("InstallLoad: %v", err)
	}
	kpage, ok := as.PT.GetPage(upage)
	if !ok {
		t.Fatal("page not installed")
	}
	for i, b := range kpage {
		if b != 0 {
			t.Fatalf("zero page not zeroed at %d: %d", i, b)
		}
	}
}

func TestFileBackedDemandPaging(t *testing.T) {
	sub := newTestSubsystem(4)
	as := newTestAS(t, sub)

	data := append([]byte("hello"), make([]byte, 10)...)
	f := fdops.NewMemFile(data)

	upage := uintptr(0x400000)
	if err := as.CreateCode(upage, f, 0, len(data), mem.PGSIZE-len(data), true); err != 0 {
		t.Fatalf("CreateCode: %v", err)
	}
	if err := as.InstallLoad(upage); err != 0 {
		t.Fatalf("InstallLoad: %v", err)
	}
	kpage, _ := as.PT.GetPage(upage)
	if !bytes.Equal(kpage[:len(data)], data) {
		t.Fatalf("file contents not loaded: %v", kpage[:len(data)])
	}
	for i := len(data); i < mem.PGSIZE; i++ {
		if kpage[i] != 0 {
			t.Fatalf("tail not zeroed at %d", i)
		}
	}
}

func TestMmapRoundTrip(t *testing.T) {
	sub := newTestSubsystem(4)
	as := newTestAS(t, sub)

	orig := make([]byte, mem.PGSIZE)
	copy(orig, []byte("original contents"))
	f := fdops.NewMemFile(orig)

	region, err := as.Mmap(0x500000, f, mem.PGSIZE)
	if err != 0 {
		t.Fatalf("Mmap: %v", err)
	}
	if err := as.InstallLoad(region.Upages[0]); err != 0 {
		t.Fatalf("InstallLoad: %v", err)
	}

	newContents := make([]byte, mem.PGSIZE)
	copy(newContents, []byte("modified through mmap"))
	if err := as.K2user(region.Upages[0], newContents); err != 0 {
		t.Fatalf("K2user: %v", err)
	}

	if err := as.Munmap(region); err != 0 {
		t.Fatalf("Munmap: %v", err)
	}

	if !bytes.Equal(f.Snapshot(), newContents) {
		t.Fatalf("mmap write-back mismatch: got %q", f.Snapshot()[:30])
	}
}

func TestAcquireUserSliceRejectsReadOnlyWrite(t *testing.T) {
	sub := newTestSubsystem(4)
	as := newTestAS(t, sub)

	data := make([]byte, mem.PGSIZE)
	f := fdops.NewMemFile(data)
	upage := uintptr(0x400000)
	if err := as.CreateFile(upage, f, 0, mem.PGSIZE, false); err != 0 {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := as.InstallLoad(upage); err != 0 {
		t.Fatalf("InstallLoad: %v", err)
	}

	if _, err := AcquireUserSlice(as, upage, 4, true); err != defs.EFAULT {
		t.Fatalf("expected EFAULT writing a read-only page, got %v", err)
	}
	if _, err := AcquireUserSlice(as, upage, 4, false); err != 0 {
		t.Fatalf("expected read to succeed, got %v", err)
	}
}

func TestStackGrowthHeuristic(t *testing.T) {
	sub := newTestSubsystem(4)
	as := newTestAS(t, sub)

	esp := as.Cfg.StackTop - uintptr(mem.PGSIZE)

	if !as.IsStackGrowth(esp-4, esp) {
		t.Fatal("expected addr just below esp to look like stack growth")
	}
	if as.IsStackGrowth(esp-1000, esp) {
		t.Fatal("addr far below esp (outside heuristic margin) should not look like stack growth")
	}

	deepAddr := as.Cfg.StackTop - as.Cfg.MaxStackSize - uintptr(mem.PGSIZE)
	if as.IsStackGrowth(deepAddr, deepAddr+16) {
		t.Fatal("addr beyond MaxStackSize should not be allowed to grow")
	}
}

func TestGrowStackInstallsOnce(t *testing.T) {
	sub := newTestSubsystem(4)
	as := newTestAS(t, sub)

	upage := as.Cfg.StackTop - uintptr(mem.PGSIZE)
	if err := as.GrowStack(upage); err != 0 {
		t.Fatalf("GrowStack: %v", err)
	}
	if _, ok := as.PT.GetPage(upage); !ok {
		t.Fatal("stack page not installed")
	}
	if err := as.GrowStack(upage); err == 0 {
		t.Fatal("expected GrowStack on an already-present page to fail")
	}
}

func TestValidateGrowsStackOnDemand(t *testing.T) {
	sub := newTestSubsystem(4)
	as := newTestAS(t, sub)

	esp := as.Cfg.StackTop - uintptr(mem.PGSIZE) + 100
	us, err := as.Validate(esp-4, 4, true, esp)
	if err != 0 {
		t.Fatalf("Validate: %v", err)
	}
	defer us.Release()

	if _, ok := as.lookup(mem.PageRoundDown(esp - 4)); !ok {
		t.Fatal("expected stack page to have been grown and registered")
	}
}

func TestEvictionSwapsCodePageOutAndBackIn(t *testing.T) {
	sub := newTestSubsystem(1)
	as := newTestAS(t, sub)

	pageA := uintptr(0x400000)
	pageB := uintptr(0x401000)
	if err := as.CreateCode(pageA, nil, 0, 0, mem.PGSIZE, true); err != 0 {
		t.Fatalf("CreateCode A: %v", err)
	}
	if err := as.CreateCode(pageB, nil, 0, 0, mem.PGSIZE, true); err != 0 {
		t.Fatalf("CreateCode B: %v", err)
	}

	if err := as.InstallLoad(pageA); err != 0 {
		t.Fatalf("InstallLoad A: %v", err)
	}
	marker := make([]byte, 4)
	copy(marker, []byte("ABCD"))
	if err := as.K2user(pageA, marker); err != 0 {
		t.Fatalf("K2user A: %v", err)
	}

	// Only one physical frame exists; loading B must evict A, swapping
	// it out since CODE has no other backing store.
	if err := as.InstallLoad(pageB); err != 0 {
		t.Fatalf("InstallLoad B: %v", err)
	}
	if _, ok := as.PT.GetPage(pageA); ok {
		t.Fatal("expected page A's hardware mapping to have been cleared by eviction")
	}

	eA, ok := as.lookup(pageA)
	if !ok || !eA.InSwap {
		t.Fatal("expected page A to have been swapped out")
	}

	// Faulting A back in (forcing B out this time) should recover its
	// original contents from swap.
	if err := as.InstallLoad(pageA); err != 0 {
		t.Fatalf("InstallLoad A (reload): %v", err)
	}
	got := make([]byte, 4)
	if err := as.User2k(got, pageA); err != 0 {
		t.Fatalf("User2k: %v", err)
	}
	if !bytes.Equal(got, marker) {
		t.Fatalf("swapped-in contents mismatch: got %q, want %q", got, marker)
	}
}

func TestUserstrDoesNotFaultPastStringEnd(t *testing.T) {
	sub := newTestSubsystem(4)
	as := newTestAS(t, sub)

	data := make([]byte, mem.PGSIZE)
	msg := []byte("hi\x00")
	copy(data[mem.PGSIZE-len(msg):], msg)
	f := fdops.NewMemFile(data)

	upage := uintptr(0x400000)
	if err := as.CreateFile(upage, f, 0, mem.PGSIZE, false); err != 0 {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := as.InstallLoad(upage); err != 0 {
		t.Fatalf("InstallLoad: %v", err)
	}

	// No SPT entry exists past this one page, so a naive whole-span
	// pin covering maxlen+1 bytes from uva would fault on the
	// following, unmapped page even though the string terminates
	// well within the mapped one.
	uva := upage + uintptr(mem.PGSIZE-len(msg))
	got, err := as.Userstr(uva, 128)
	if err != 0 {
		t.Fatalf("Userstr: %v (should not fault past the string's own page)", err)
	}
	if got != "hi" {
		t.Fatalf("Userstr = %q, want %q", got, "hi")
	}
}

func TestUserstrTooLong(t *testing.T) {
	sub := newTestSubsystem(4)
	as := newTestAS(t, sub)

	data := make([]byte, mem.PGSIZE)
	copy(data, []byte("abcdef\x00"))
	f := fdops.NewMemFile(data)

	upage := uintptr(0x400000)
	if err := as.CreateFile(upage, f, 0, mem.PGSIZE, false); err != 0 {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := as.InstallLoad(upage); err != 0 {
		t.Fatalf("InstallLoad: %v", err)
	}

	if _, err := as.Userstr(upage, 3); err != defs.ENAMETOOLONG {
		t.Fatalf("expected ENAMETOOLONG, got %v", err)
	}
}

func TestSpteEvictRequiresEvictLockHeld(t *testing.T) {
	sub := newTestSubsystem(4)
	as := newTestAS(t, sub)

	data := make([]byte, mem.PGSIZE)
	f := fdops.NewMemFile(data)
	upage := uintptr(0x500000)
	if err := as.CreateMmap(upage, f, 0, mem.PGSIZE); err != 0 {
		t.Fatalf("CreateMmap: %v", err)
	}
	if err := as.InstallLoad(upage); err != 0 {
		t.Fatalf("InstallLoad: %v", err)
	}
	e, ok := as.lookup(upage)
	if !ok {
		t.Fatal("spte not found")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected Evict to panic when called without EvictLock held")
		}
	}()
	e.Evict(as.PT, upage)
}

func TestDestroyFreesResidentPages(t *testing.T) {
	sub := newTestSubsystem(2)
	as := newTestAS(t, sub)

	upage := uintptr(0x400000)
	if err := as.CreateCode(upage, nil, 0, 0, mem.PGSIZE, true); err != 0 {
		t.Fatalf("CreateCode: %v", err)
	}
	if err := as.InstallLoad(upage); err != 0 {
		t.Fatalf("InstallLoad: %v", err)
	}
	if got, want := sub.FrameTable.InUseCount(), 1; got != want {
		t.Fatalf("InUseCount = %d, want %d", got, want)
	}

	as.Destroy()

	if got, want := sub.FrameTable.InUseCount(), 0; got != want {
		t.Fatalf("after Destroy, InUseCount = %d, want %d", got, want)
	}
	if got, want := sub.FrameTable.FreeCount(), 2; got != want {
		t.Fatalf("after Destroy, FreeCount = %d, want %d", got, want)
	}
}
