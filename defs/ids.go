package defs

// / Tid_t identifies a thread; Pid_t identifies a process. Mirrors
// / biscuit's defs.Tid_t (referenced throughout vm/as.go's Pgfault) and
// / the thread-id type Pintos passes to grow_stack/validate.
type Tid_t int
type Pid_t int

// / NoTid is used where no owning thread applies yet (a freshly
// / constructed, not-yet-scheduled frame).
const NoTid Tid_t = -1
