package fdops

import (
	"os"
	"sync"

	"pintosvm/defs"
)

// / OSFile adapts a real *os.File to File. Grounded on biscuit's
// / ufs/driver.go ahci_disk_t, which simulates a disk by locking a
// / mutex around a seek-then-read/write pair on a host *os.File; here
// / the same shape backs a user file instead of a whole block device.
type OSFile struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// / OpenOSFile opens path for reading and writing, creating it if it
// / does not exist, and zero-extends it to createSize if it is shorter.
func OpenOSFile(path string, createSize int64) (*OSFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	if fi, err := f.Stat(); err == nil && fi.Size() < createSize {
		if err := f.Truncate(createSize); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &OSFile{f: f, path: path}, nil
}

func (o *OSFile) ReadAt(p []byte, off int64) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.f.ReadAt(p, off)
}

func (o *OSFile) WriteAt(p []byte, off int64) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.f.WriteAt(p, off)
}

func (o *OSFile) Length() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	fi, err := o.f.Stat()
	if err != nil {
		return 0
	}
	return fi.Size()
}

func (o *OSFile) Reopen() (File, defs.Err_t) {
	o.mu.Lock()
	defer o.mu.Unlock()
	f, err := os.OpenFile(o.path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, defs.ENOENT
	}
	return &OSFile{f: f, path: o.path}, 0
}

func (o *OSFile) Close() defs.Err_t {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.f.Close(); err != nil {
		return defs.EBADF
	}
	return 0
}
