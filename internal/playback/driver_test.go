package playback

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ivlev/collage2video/internal/collage"
	"github.com/ivlev/collage2video/internal/effects"
)

// manualClock advances only when the test says so; its tickers never
// fire, so ticks are delivered by calling step directly.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func (c *manualClock) NewTicker(d time.Duration) Ticker { return silentTicker{} }

type silentTicker struct{}

func (silentTicker) C() <-chan time.Time { return nil }
func (silentTicker) Stop()               {}

type recordingTarget struct {
	mu     sync.Mutex
	applia [][]effects.PhotoVisualState
}

func (r *recordingTarget) Apply(states []effects.PhotoVisualState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applia = append(r.applia, states)
}

func (r *recordingTarget) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.applia)
}

func driverFixture(t *testing.T) (*Driver, *manualClock, *recordingTarget, *effects.EffectPlan) {
	t.Helper()
	photos := []collage.Photo{
		{ID: "a", X: 10, Y: 20, Order: 1, Scale: 1, Width: 400, Height: 500},
		{ID: "b", X: 200, Y: 40, Order: 2, Scale: 1, Width: 400, Height: 500},
	}
	plan := effects.BuildPlan(photos, effects.Fade, 1280, 720)
	clock := newManualClock()
	target := &recordingTarget{}
	d := NewDriver(target, func() []collage.Photo { return photos }, NewPlanRef(plan), clock)
	t.Cleanup(d.Stop)
	return d, clock, target, plan
}

func approx(t *testing.T, got, want float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("%s: got %f, want %f", msg, got, want)
	}
}

func TestPlayPauseResumePreservesTime(t *testing.T) {
	d, clock, _, _ := driverFixture(t)

	d.Play()
	if d.State() != Playing {
		t.Fatalf("Expected Playing, got %s", d.State())
	}

	clock.advance(300 * time.Millisecond)
	d.Pause()
	if d.State() != Paused {
		t.Fatalf("Expected Paused, got %s", d.State())
	}
	approx(t, d.CurrentT(), 0.3, "paused position")

	// Пауза держит позицию, сколько бы времени ни прошло.
	clock.advance(5 * time.Second)
	approx(t, d.CurrentT(), 0.3, "position while paused")

	d.Play()
	clock.advance(200 * time.Millisecond)
	approx(t, d.CurrentT(), 0.5, "position after resume")
}

func TestSpeedChangeDoesNotJump(t *testing.T) {
	d, clock, _, _ := driverFixture(t)

	d.Play()
	clock.advance(400 * time.Millisecond)
	approx(t, d.CurrentT(), 0.4, "before speed change")

	d.SetSpeed(2.0)
	approx(t, d.CurrentT(), 0.4, "immediately after speed change")

	clock.advance(300 * time.Millisecond)
	approx(t, d.CurrentT(), 1.0, "after running at 2x")
}

func TestCompletionAndReplay(t *testing.T) {
	d, clock, target, plan := driverFixture(t)

	d.Play()
	now := clock.advance(time.Duration(plan.TotalDuration*float64(time.Second)) + time.Second)
	if cont := d.step(now); cont {
		t.Error("step past the end should stop scheduling ticks")
	}
	if d.State() != Completed {
		t.Fatalf("Expected Completed, got %s", d.State())
	}
	approx(t, d.CurrentT(), plan.TotalDuration, "completed position")
	if target.count() == 0 {
		t.Fatal("Final tick should have applied states")
	}

	// Play из Completed начинает сначала.
	d.Play()
	if d.State() != Playing {
		t.Fatalf("Expected Playing after replay, got %s", d.State())
	}
	approx(t, d.CurrentT(), 0, "replay starts at zero")
}

func TestStopCancelsPendingTick(t *testing.T) {
	d, clock, target, _ := driverFixture(t)

	d.Play()
	d.Stop()
	if d.State() != Idle {
		t.Fatalf("Expected Idle, got %s", d.State())
	}

	// Опоздавший тик не должен трогать визуальный слой.
	before := target.count()
	if cont := d.step(clock.advance(100 * time.Millisecond)); cont {
		t.Error("step after Stop should not continue")
	}
	if target.count() != before {
		t.Error("Orphaned tick mutated the target after Stop")
	}
}

func TestStopWaitsForInFlightTick(t *testing.T) {
	// Тик застрял на чтении фото: Stop обязан дождаться его конца,
	// чтобы после возврата ни один тик не трогал визуальный слой.
	photos := []collage.Photo{{ID: "a", Order: 1, Scale: 1, Width: 400, Height: 500}}
	plan := effects.BuildPlan(photos, effects.Fade, 1280, 720)
	clock := newManualClock()
	target := &recordingTarget{}

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	blockingPhotos := func() []collage.Photo {
		once.Do(func() {
			close(entered)
			<-release
		})
		return photos
	}

	d := NewDriver(target, blockingPhotos, NewPlanRef(plan), clock)
	d.Play()

	go d.step(clock.advance(100 * time.Millisecond))
	<-entered

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a tick was still applying")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop never returned")
	}

	after := target.count()
	if cont := d.step(clock.advance(100 * time.Millisecond)); cont {
		t.Error("step after Stop should not continue")
	}
	if target.count() != after {
		t.Error("Tick mutated the target after Stop returned")
	}
}

func TestSetPlanRestartsFromZero(t *testing.T) {
	d, clock, _, _ := driverFixture(t)

	d.Play()
	clock.advance(500 * time.Millisecond)
	approx(t, d.CurrentT(), 0.5, "mid-flight position")

	photos := []collage.Photo{{ID: "a", Order: 1, Scale: 1, Width: 400, Height: 500}}
	newPlan := effects.BuildPlan(photos, effects.Flip, 1280, 720)
	d.SetPlan(newPlan)

	if d.State() != Playing {
		t.Fatalf("Expected auto-started playback, got %s", d.State())
	}
	approx(t, d.CurrentT(), 0, "new plan starts at zero")
	if d.planRef.Get() != newPlan {
		t.Error("Plan reference cell was not updated")
	}
}

func TestTickReadsPlanFresh(t *testing.T) {
	d, clock, target, _ := driverFixture(t)

	d.Play()
	// Подменяем план без перезапуска: следующий тик обязан его увидеть.
	photos := []collage.Photo{{ID: "z", Order: 1, Scale: 1, Width: 400, Height: 500}}
	swapped := effects.BuildPlan(photos, effects.Fade, 1280, 720)
	d.planRef.Set(swapped)

	d.step(clock.advance(50 * time.Millisecond))
	last := target.applia[target.count()-1]
	if len(last) != 1 || last[0].PhotoID != "z" {
		t.Errorf("Tick used a stale plan: applied states %+v", last)
	}
}

func TestRoundTripThroughApplier(t *testing.T) {
	// Состояние, прошедшее через визуальный слой, совпадает с
	// исходным — без потери точности на границе.
	d, clock, target, plan := driverFixture(t)
	d.Play()
	d.step(clock.advance(250 * time.Millisecond))

	last := target.applia[target.count()-1]
	for i, st := range last {
		if st.PhotoID != plan.Specs[i].PhotoID {
			t.Errorf("State %d belongs to %s, expected %s", i, st.PhotoID, plan.Specs[i].PhotoID)
		}
	}
}
