// Package lan91c holds definitions shared by the SMSC LAN91C111 driver core
// and its supporting packages: the error taxonomy and the time source used by
// every hardware polling loop.
package lan91c

import "time"

// Clock is the monotonic time source and delay primitive the driver polls
// hardware with. Delay must support microsecond granularity.
type Clock interface {
	Now() time.Time
	Delay(d time.Duration)
}

// SystemClock returns a Clock backed by the runtime's monotonic clock.
// Short delays are spun since the scheduler cannot sleep for microseconds.
func SystemClock() Clock { return sysClock{} }

type sysClock struct{}

const spinThreshold = 200 * time.Microsecond

func (sysClock) Now() time.Time { return time.Now() }

func (sysClock) Delay(d time.Duration) {
	if d <= 0 {
		return
	}
	if d >= spinThreshold {
		time.Sleep(d)
		return
	}
	start := time.Now()
	for time.Since(start) < d {
	}
}

// Elapsed reports whether timeout has passed since start according to clk.
func Elapsed(clk Clock, start time.Time, timeout time.Duration) bool {
	return clk.Now().Sub(start) >= timeout
}
