package mem

import (
	"errors"
	"testing"
)

type fakePT struct {
	accessed map[uintptr]bool
	dirty    map[uintptr]bool
	pages    map[uintptr][]byte
}

func newFakePT() *fakePT {
	return &fakePT{
		accessed: make(map[uintptr]bool),
		dirty:    make(map[uintptr]bool),
		pages:    make(map[uintptr][]byte),
	}
}

func (f *fakePT) InstallPage(upage uintptr, kpage []byte, writable bool) bool {
	f.pages[upage] = kpage
	return true
}
func (f *fakePT) GetPage(upage uintptr) ([]byte, bool) { p, ok := f.pages[upage]; return p, ok }
func (f *fakePT) ClearPage(upage uintptr) {
	delete(f.pages, upage)
	delete(f.accessed, upage)
	delete(f.dirty, upage)
}
func (f *fakePT) IsDirty(upage uintptr) bool         { return f.dirty[upage] }
func (f *fakePT) IsAccessed(upage uintptr) bool      { return f.accessed[upage] }
func (f *fakePT) SetDirty(upage uintptr, v bool)     { f.dirty[upage] = v }
func (f *fakePT) SetAccessed(upage uintptr, v bool)  { f.accessed[upage] = v }

type fakeVictim struct {
	anon    bool
	evicted bool
	written bool
	fail    bool
}

func (v *fakeVictim) Anonymous() bool { return v.anon }

func (v *fakeVictim) WriteBack(pt PageTable, upage uintptr) error {
	if !pt.IsDirty(upage) {
		return nil
	}
	if v.fail {
		return errors.New("write-back failed")
	}
	pt.SetDirty(upage, false)
	v.written = true
	return nil
}

func (v *fakeVictim) Evict(pt PageTable, upage uintptr) error {
	if v.fail {
		return errors.New("write-back failed")
	}
	pt.ClearPage(upage)
	v.evicted = true
	return nil
}

func TestFrameTableGetFreeFrame(t *testing.T) {
	ft := NewFrameTable(2)
	pt := newFakePT()
	fr, err := ft.GetFrame(0, 1, 0x1000, pt, &fakeVictim{})
	if err != 0 {
		t.Fatalf("GetFrame: %v", err)
	}
	if len(fr.Kpage) != PGSIZE {
		t.Fatalf("frame size = %d, want %d", len(fr.Kpage), PGSIZE)
	}
	if ft.InUseCount() != 1 || ft.FreeCount() != 1 {
		t.Fatalf("pool accounting wrong: inuse=%d free=%d", ft.InUseCount(), ft.FreeCount())
	}
}

func TestFrameTablePreferClean(t *testing.T) {
	ft := NewFrameTable(1)
	pt := newFakePT()

	victimA := &fakeVictim{}
	fr, err := ft.GetFrame(0, 1, 0x1000, pt, victimA)
	if err != 0 {
		t.Fatalf("GetFrame first: %v", err)
	}
	pt.InstallPage(0x1000, fr.Kpage, true)
	pt.SetAccessed(0x1000, false)
	pt.SetDirty(0x1000, false)

	victimB := &fakeVictim{}
	_, err = ft.GetFrame(0, 2, 0x2000, pt, victimB)
	if err != 0 {
		t.Fatalf("GetFrame second (should evict): %v", err)
	}
	if !victimA.evicted {
		t.Fatal("expected the clean, unaccessed frame to be evicted")
	}
}

func TestFrameTableAllPinnedPanics(t *testing.T) {
	ft := NewFrameTable(1)
	pt := newFakePT()

	victimA := &fakeVictim{}
	fr, err := ft.GetFrame(0, 1, 0x1000, pt, victimA)
	if err != 0 {
		t.Fatalf("GetFrame: %v", err)
	}
	fr.Pinned = true

	defer func() {
		if recover() == nil {
			t.Fatal("expected GetFrame to panic when the only frame is pinned")
		}
	}()
	ft.GetFrame(0, 2, 0x2000, pt, &fakeVictim{})
	t.Fatal("expected GetFrame to panic before returning")
}

func TestFrameTableEvictFailurePanics(t *testing.T) {
	ft := NewFrameTable(1)
	pt := newFakePT()

	victimA := &fakeVictim{}
	fr, err := ft.GetFrame(0, 1, 0x1000, pt, victimA)
	if err != 0 {
		t.Fatalf("GetFrame: %v", err)
	}
	pt.InstallPage(0x1000, fr.Kpage, true)
	pt.SetAccessed(0x1000, false)
	pt.SetDirty(0x1000, false)
	victimA.fail = true

	defer func() {
		if recover() == nil {
			t.Fatal("expected GetFrame to panic when the chosen victim fails to evict")
		}
	}()
	ft.GetFrame(0, 2, 0x2000, pt, &fakeVictim{})
	t.Fatal("expected GetFrame to panic before returning")
}

func TestFrameTableEmptyPoolReturnsENOMEM(t *testing.T) {
	ft := NewFrameTable(0)
	pt := newFakePT()

	_, err := ft.GetFrame(0, 1, 0x1000, pt, &fakeVictim{})
	if err == 0 {
		t.Fatal("expected ENOMEM from a zero-capacity frame table")
	}
}

func TestFrameTablePalZero(t *testing.T) {
	ft := NewFrameTable(1)
	pt := newFakePT()
	fr, err := ft.GetFrame(PAL_ZERO, 1, 0x1000, pt, &fakeVictim{})
	if err != 0 {
		t.Fatalf("GetFrame: %v", err)
	}
	fr.Kpage[0] = 7
	ft.FreeFrame(fr)

	fr2, err := ft.GetFrame(PAL_ZERO, 1, 0x3000, pt, &fakeVictim{})
	if err != 0 {
		t.Fatalf("GetFrame reuse: %v", err)
	}
	for i, b := range fr2.Kpage {
		if b != 0 {
			t.Fatalf("PAL_ZERO frame not zeroed at %d: %d", i, b)
		}
	}
}
