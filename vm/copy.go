package vm

import (
	"pintosvm/defs"
	"pintosvm/mem"
)

// / readPinned copies from already-pinned user memory [uva, uva+len(dst))
// / into dst. The caller must hold a live UserSlice covering that range.
func (as *AddressSpace) readPinned(dst []byte, uva uintptr) defs.Err_t {
	off, addr := 0, uva
	for off < len(dst) {
		upage := mem.PageRoundDown(addr)
		kpage, ok := as.PT.GetPage(upage)
		if !ok {
			return defs.EFAULT
		}
		pageOff := int(addr - upage)
		n := mem.PGSIZE - pageOff
		if rem := len(dst) - off; n > rem {
			n = rem
		}
		copy(dst[off:off+n], kpage[pageOff:pageOff+n])
		as.PT.SetAccessed(upage, true)
		off += n
		addr += uintptr(n)
	}
	return 0
}

// / writePinned copies src into already-pinned user memory starting at
// / uva, marking every touched page dirty.
func (as *AddressSpace) writePinned(uva uintptr, src []byte) defs.Err_t {
	off, addr := 0, uva
	for off < len(src) {
		upage := mem.PageRoundDown(addr)
		kpage, ok := as.PT.GetPage(upage)
		if !ok {
			return defs.EFAULT
		}
		pageOff := int(addr - upage)
		n := mem.PGSIZE - pageOff
		if rem := len(src) - off; n > rem {
			n = rem
		}
		copy(kpage[pageOff:pageOff+n], src[off:off+n])
		as.PT.SetDirty(upage, true)
		as.PT.SetAccessed(upage, true)
		off += n
		addr += uintptr(n)
	}
	return 0
}

// / User2k copies len(dst) bytes from user address uva into dst,
// / pinning and unpinning the covered pages itself. Grounded on
// / biscuit/src/vm/as.go's Userdmap8_inner/Userreadn dmap-copy loop,
// / generalized here to arbitrary lengths instead of 1/2/4/8-byte
// / reads.
func (as *AddressSpace) User2k(dst []byte, uva uintptr) defs.Err_t {
	if len(dst) == 0 {
		return 0
	}
	us, err := AcquireUserSlice(as, uva, len(dst), false)
	if err != 0 {
		return err
	}
	defer us.Release()
	return as.readPinned(dst, uva)
}

// / K2user copies src into user memory starting at uva. Grounded on
// / biscuit/src/vm/as.go's K2user.
func (as *AddressSpace) K2user(uva uintptr, src []byte) defs.Err_t {
	if len(src) == 0 {
		return 0
	}
	us, err := AcquireUserSlice(as, uva, len(src), true)
	if err != 0 {
		return err
	}
	defer us.Release()
	return as.writePinned(uva, src)
}

// / Userreadn reads an n-byte (n in {1,2,4,8}) little-endian integer
// / from user memory. Grounded on biscuit/src/vm/as.go's Userreadn.
func (as *AddressSpace) Userreadn(uva uintptr, n int) (int, defs.Err_t) {
	if n != 1 && n != 2 && n != 4 && n != 8 {
		panic("userreadn: bad n")
	}
	var buf [8]byte
	if err := as.User2k(buf[:n], uva); err != 0 {
		return 0, err
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(buf[i]) << (8 * uint(i))
	}
	return int(v), 0
}

// / Userwriten writes the low n bytes of val as a little-endian integer
// / to user memory. Grounded on biscuit/src/vm/as.go's Userwriten.
func (as *AddressSpace) Userwriten(uva uintptr, val, n int) defs.Err_t {
	if n != 1 && n != 2 && n != 4 && n != 8 {
		panic("userwriten: bad n")
	}
	var buf [8]byte
	v := uint64(val)
	for i := 0; i < n; i++ {
		buf[i] = byte(v >> (8 * uint(i)))
	}
	return as.K2user(uva, buf[:n])
}

// / Userstr reads a NUL-terminated string of at most maxlen bytes
// / (excluding the terminator) from user memory. Grounded on
// / biscuit/src/vm/as.go's Userstr and on
// / original_source/src/userprog/syscall.c's validate_string, which
// / walks the string one byte at a time, faulting in and pinning only
// / the page the walk has actually reached rather than the whole
// / maxlen span: a valid string ending near a page boundary must not
// / fault on whatever unmapped page happens to follow it.
func (as *AddressSpace) Userstr(uva uintptr, maxlen int) (string, defs.Err_t) {
	return as.userstr(uva, maxlen, nil)
}

// / userstr is Userstr's implementation, parameterized on an optional
// / esp for ValidateString's stack-growth check: since the walk does
// / not know the string's length in advance, each page it reaches
// / must be checked for stack growth individually as it is reached,
// / not just the first one (unlike Validate, which knows the whole
// / range up front).
func (as *AddressSpace) userstr(uva uintptr, maxlen int, esp *uintptr) (string, defs.Err_t) {
	if maxlen <= 0 {
		return "", defs.EINVAL
	}
	var out []byte
	addr := uva
	for {
		upage := mem.PageRoundDown(addr)
		if esp != nil {
			if _, ok := as.lookup(upage); !ok && as.IsStackGrowth(upage, *esp) {
				as.GrowStack(upage)
			}
		}
		us, err := AcquireUserSlice(as, upage, mem.PGSIZE, false)
		if err != 0 {
			return "", err
		}
		kpage, _ := as.PT.GetPage(upage)
		for pageOff := int(addr - upage); pageOff < mem.PGSIZE; pageOff++ {
			b := kpage[pageOff]
			if b == 0 {
				us.Release()
				return string(out), 0
			}
			if len(out) >= maxlen {
				us.Release()
				return "", defs.ENAMETOOLONG
			}
			out = append(out, b)
		}
		us.Release()
		addr = upage + uintptr(mem.PGSIZE)
	}
}
