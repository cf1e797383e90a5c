package engine

import "time"

// Clock abstracts wall-clock time and repeating tickers so the detection
// and penalty cadences can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker the engine needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// ManualClock is a test clock. Advance moves time forward and fires any
// tickers whose period has elapsed, in chronological order.
type ManualClock struct {
	now     time.Time
	tickers []*manualTicker
}

// NewManualClock returns a ManualClock starting at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time { return c.now }

func (c *ManualClock) NewTicker(d time.Duration) Ticker {
	t := &manualTicker{
		clock:  c,
		period: d,
		next:   c.now.Add(d),
		ch:     make(chan time.Time, 64),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the clock forward by d, delivering ticker fires along the
// way. Tick delivery is synchronous: each fire is placed on the ticker's
// channel before the clock moves further.
func (c *ManualClock) Advance(d time.Duration) {
	target := c.now.Add(d)
	for {
		var earliest *manualTicker
		for _, t := range c.tickers {
			if t.stopped {
				continue
			}
			if !t.next.After(target) && (earliest == nil || t.next.Before(earliest.next)) {
				earliest = t
			}
		}
		if earliest == nil {
			break
		}
		c.now = earliest.next
		earliest.next = earliest.next.Add(earliest.period)
		select {
		case earliest.ch <- c.now:
		default:
		}
	}
	c.now = target
}

type manualTicker struct {
	clock   *ManualClock
	period  time.Duration
	next    time.Time
	ch      chan time.Time
	stopped bool
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               { t.stopped = true }
