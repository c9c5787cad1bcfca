package playback

import "time"

// Clock abstracts the display refresh source so tests can drive ticks
// by hand. The real clock ticks at a fixed refresh interval.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// DefaultRefreshInterval approximates a 60 Hz display.
const DefaultRefreshInterval = time.Second / 60

type realClock struct{}

// NewRealClock returns a Clock backed by the wall clock.
func NewRealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (rt realTicker) C() <-chan time.Time { return rt.t.C }
func (rt realTicker) Stop()               { rt.t.Stop() }
