package playback

import (
	"sync"
	"time"

	"github.com/ivlev/collage2video/internal/collage"
	"github.com/ivlev/collage2video/internal/effects"
	"github.com/ivlev/collage2video/internal/renderer"
)

// State is the driver's lifecycle state.
type State int

const (
	Idle State = iota
	Playing
	Paused
	Completed
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	default:
		return "idle"
	}
}

// Applier receives interpolated states once per tick. *canvas.Scene
// satisfies it.
type Applier interface {
	Apply(states []effects.PhotoVisualState)
}

// PlanRef is a mutable cell holding the current plan. The tick loop
// reads it fresh on every tick instead of closing over a plan at
// loop start, so swapping the plan mid-flight takes effect on the very
// next frame.
type PlanRef struct {
	mu   sync.RWMutex
	plan *effects.EffectPlan
}

func NewPlanRef(plan *effects.EffectPlan) *PlanRef {
	return &PlanRef{plan: plan}
}

func (r *PlanRef) Get() *effects.EffectPlan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plan
}

func (r *PlanRef) Set(plan *effects.EffectPlan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plan = plan
}

// Driver samples elapsed wall-clock time once per display refresh,
// interpolates photo states and pushes them to the visual layer.
// Single-threaded and cooperative: one pending tick at most, and
// starting a loop always cancels the previous one first.
type Driver struct {
	mu       sync.Mutex
	target   Applier
	photosFn func() []collage.Photo
	planRef  *PlanRef
	clock    Clock
	interval time.Duration

	state  State
	speed  float64
	origin time.Time // момент t=0 с учётом текущей скорости
	heldT  float64   // позиция на паузе/по завершении
	cancel chan struct{}
}

// NewDriver wires a driver to a visual target. photosFn must return the
// current photo set — it is consulted on every tick, never cached.
func NewDriver(target Applier, photosFn func() []collage.Photo, planRef *PlanRef, clock Clock) *Driver {
	if clock == nil {
		clock = NewRealClock()
	}
	return &Driver{
		target:   target,
		photosFn: photosFn,
		planRef:  planRef,
		clock:    clock,
		interval: DefaultRefreshInterval,
		speed:    1.0,
	}
}

// Play starts or resumes playback. From Completed it restarts at t=0.
func (d *Driver) Play() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Playing {
		return
	}

	now := d.clock.Now()
	switch d.state {
	case Paused:
		d.origin = originFor(now, d.heldT, d.speed)
	default: // Idle, Completed — с нуля
		d.heldT = 0
		d.origin = now
	}
	d.state = Playing
	d.startLoopLocked()
}

// Pause freezes playback at the exact in-progress time.
func (d *Driver) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Playing {
		return
	}
	d.heldT = d.elapsedLocked(d.clock.Now())
	d.state = Paused
	d.stopLoopLocked()
}

// Replay rewinds to t=0 and starts playing.
func (d *Driver) Replay() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.heldT = 0
	d.origin = d.clock.Now()
	d.state = Playing
	d.startLoopLocked()
}

// Stop tears playback down entirely (unmount/dialog close). The pending
// tick is cancelled so no orphaned callback mutates a stale target.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Idle
	d.heldT = 0
	d.stopLoopLocked()
}

// SetSpeed changes the speed multiplier without a visual jump: the
// origin is rebased so the currently displayed time is preserved under
// the new scale.
func (d *Driver) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Playing {
		now := d.clock.Now()
		t := d.elapsedLocked(now)
		d.speed = speed
		d.origin = originFor(now, t, speed)
		return
	}
	d.speed = speed
}

// SetPlan swaps in a new plan (effect change): the in-flight animation
// is torn down and playback restarts from zero automatically.
func (d *Driver) SetPlan(plan *effects.EffectPlan) {
	d.planRef.Set(plan)
	d.Replay()
}

// CurrentT reports the current timeline position in seconds.
func (d *Driver) CurrentT() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Playing {
		return d.elapsedLocked(d.clock.Now())
	}
	return d.heldT
}

// State reports the lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Speed reports the current speed multiplier.
func (d *Driver) Speed() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speed
}

func originFor(now time.Time, t, speed float64) time.Time {
	return now.Add(-time.Duration(t / speed * float64(time.Second)))
}

// elapsedLocked clamps scaled elapsed time into [0, totalDuration].
func (d *Driver) elapsedLocked(now time.Time) float64 {
	t := now.Sub(d.origin).Seconds() * d.speed
	if t < 0 {
		t = 0
	}
	if plan := d.planRef.Get(); plan != nil && t > plan.TotalDuration {
		t = plan.TotalDuration
	}
	return t
}

func (d *Driver) startLoopLocked() {
	d.stopLoopLocked()
	cancel := make(chan struct{})
	d.cancel = cancel
	go d.run(cancel)
}

func (d *Driver) stopLoopLocked() {
	if d.cancel != nil {
		close(d.cancel)
		d.cancel = nil
	}
}

func (d *Driver) run(cancel chan struct{}) {
	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-cancel:
			return
		case now := <-ticker.C():
			if !d.step(now) {
				return
			}
		}
	}
}

// step performs one tick: sample time, interpolate, apply. Returns
// false when the loop should stop scheduling further ticks.
//
// The lock is held across the apply as well: Stop and Pause block on it,
// so by the time they return no in-flight tick can still mutate the
// target. The target and photo source take their own independent locks,
// never this one.
func (d *Driver) step(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Playing {
		return false
	}
	plan := d.planRef.Get()
	if plan == nil {
		d.state = Idle
		return false
	}
	t := d.elapsedLocked(now)
	done := t >= plan.TotalDuration
	if done {
		d.state = Completed
		d.heldT = plan.TotalDuration
	}

	d.target.Apply(renderer.StateAt(plan, d.photosFn(), t))
	return !done
}
