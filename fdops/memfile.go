package fdops

import "pintosvm/defs"

// / MemFile is an in-memory File, used by tests and by the demo harness
// / in place of a real on-disk file (the file system is out of scope,
// / spec §1). Reopen shares the same backing buffer, mirroring Pintos's
// / file_reopen semantics: an independent struct file referencing the
// / same inode, so writes through either handle are visible to both,
// / which is exactly what MMAP write-back and the FILE read path rely
// / on.
type MemFile struct {
	buf    *[]byte
	closed *bool
}

// / NewMemFile creates a MemFile whose initial contents are a copy of
// / data.
func NewMemFile(data []byte) *MemFile {
	b := make([]byte, len(data))
	copy(b, data)
	closed := false
	return &MemFile{buf: &b, closed: &closed}
}

func (f *MemFile) ReadAt(p []byte, off int64) (int, error) {
	if *f.closed {
		return 0, defs.EBADF
	}
	buf := *f.buf
	if off < 0 || off >= int64(len(buf)) {
		return 0, nil
	}
	n := copy(p, buf[off:])
	return n, nil
}

func (f *MemFile) WriteAt(p []byte, off int64) (int, error) {
	if *f.closed {
		return 0, defs.EBADF
	}
	buf := *f.buf
	need := off + int64(len(p))
	if need > int64(len(buf)) {
		grown := make([]byte, need)
		copy(grown, buf)
		buf = grown
		*f.buf = buf
	}
	n := copy(buf[off:], p)
	return n, nil
}

func (f *MemFile) Length() int64 {
	return int64(len(*f.buf))
}

func (f *MemFile) Reopen() (File, defs.Err_t) {
	if *f.closed {
		return nil, defs.EBADF
	}
	return &MemFile{buf: f.buf, closed: f.closed}, 0
}

func (f *MemFile) Close() defs.Err_t {
	*f.closed = true
	return 0
}

// / Snapshot returns a copy of the file's current contents, used by
// / tests to verify write-back (spec §8's mmap round-trip law).
func (f *MemFile) Snapshot() []byte {
	b := make([]byte, len(*f.buf))
	copy(b, *f.buf)
	return b
}
