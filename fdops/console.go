package fdops

import (
	"io"
	"os"
	"sync"

	"pintosvm/defs"
)

// / ConsoleFile is the File backing the reserved stdin/stdout
// / descriptor slots (defs.D_CONSOLE); it is the only device this core
// / still has after dropping biscuit's socket/raw-disk/profiling device
// / table (defs/device.go). Writes go to an io.Writer (os.Stdout by
// / default, swappable for tests); reads always report EOF since there
// / is no real keyboard input to simulate.
type ConsoleFile struct {
	mu sync.Mutex
	w  io.Writer
}

// / NewConsoleFile wraps w (os.Stdout if nil) as a console device.
func NewConsoleFile(w io.Writer) *ConsoleFile {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleFile{w: w}
}

func (c *ConsoleFile) ReadAt(p []byte, off int64) (int, error) {
	return 0, io.EOF
}

func (c *ConsoleFile) WriteAt(p []byte, off int64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

func (c *ConsoleFile) Length() int64 {
	return 0
}

func (c *ConsoleFile) Reopen() (File, defs.Err_t) {
	return c, 0
}

func (c *ConsoleFile) Close() defs.Err_t {
	return 0
}
