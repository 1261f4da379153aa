// Package stats provides a zero-cost-when-disabled counter type for
// the VM core's internal instrumentation. Adapted from biscuit's
// stats.go: Counter_t and Stats2String survive with their reflection-
// based dump; Cycles_t and Rdtsc are dropped because they depend on
// runtime.Rdtsc(), a cycle-counter hook biscuit's forked runtime
// exposes and the standard Go runtime does not, and this core has no
// comparable source of cycle-accurate timing to substitute.
package stats

import "reflect"
import "strconv"
import "strings"
import "sync/atomic"
import "unsafe"

// / Enabled gates whether counters actually increment; flip to true
// / when diagnosing eviction behavior, the way biscuit's Stats const
// / gated its own instrumentation.
const Enabled = false

// / Counter_t is a statistics counter, e.g. FrameTable's eviction
// / tally (spec §8's "Pin safety" property is easiest to
// / audit with an eviction counter alongside the pin count).
type Counter_t int64

// / Inc increments the counter when instrumentation is enabled.
func (c *Counter_t) Inc() {
	if Enabled {
		atomic.AddInt64((*int64)(unsafe.Pointer(c)), 1)
	}
}

// / Read returns the counter's current value regardless of Enabled.
func (c *Counter_t) Read() int64 {
	return atomic.LoadInt64((*int64)(unsafe.Pointer(c)))
}

// / Stats2String formats every Counter_t field of st into a printable
// / report, or the empty string when instrumentation is disabled.
func Stats2String(st interface{}) string {
	if !Enabled {
		return ""
	}
	v := reflect.ValueOf(st)
	s := ""
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		if strings.HasSuffix(t, "Counter_t") {
			n := v.Field(i).Interface().(Counter_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
	}
	return s + "\n"
}
