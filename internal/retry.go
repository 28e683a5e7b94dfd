package internal

import (
	"time"

	"github.com/soypat/lan91c"
)

// Retry is the single polling policy used for every bounded hardware wait.
// A Retry polls a condition in attempts. Each attempt checks the condition up
// to Spin times back to back; between failed attempts the policy delays for
// Interval. There is no backoff: every attempt gets the same budget.
//
// Attempts==0 polls until Timeout expires. A Timeout of zero disables the
// deadline. A policy with neither is invalid and Poll panics.
type Retry struct {
	Attempts int
	Spin     int
	Interval time.Duration
	Timeout  time.Duration
}

// Poll checks cond until it returns true or the policy is exhausted. It
// returns the number of attempts started and whether cond was satisfied.
// When Interval is set the delay also follows the last failed attempt so that
// a policy of N attempts always spends N intervals before giving up.
func (r Retry) Poll(clk lan91c.Clock, cond func() bool) (attempts int, ok bool) {
	if r.Attempts <= 0 && r.Timeout <= 0 {
		panic("retry: unbounded policy")
	}
	spin := r.Spin
	if spin <= 0 {
		spin = 1
	}
	var start time.Time
	if r.Timeout > 0 {
		start = clk.Now()
	}
	for r.Attempts <= 0 || attempts < r.Attempts {
		attempts++
		for i := 0; i < spin; i++ {
			if cond() {
				return attempts, true
			}
		}
		if r.Interval > 0 {
			clk.Delay(r.Interval)
		}
		if r.Timeout > 0 && lan91c.Elapsed(clk, start, r.Timeout) {
			break
		}
	}
	return attempts, false
}

// WaitUntil spins on cond with a fixed delay between checks and no deadline.
// It is reserved for hardware units whose completion is guaranteed by
// contract, such as the packet MMU busy flag.
func WaitUntil(clk lan91c.Clock, delay time.Duration, cond func() bool) (polls int) {
	for !cond() {
		polls++
		clk.Delay(delay)
	}
	return polls
}
