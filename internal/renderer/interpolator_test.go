package renderer

import (
	"math"
	"testing"

	"github.com/ivlev/collage2video/internal/collage"
	"github.com/ivlev/collage2video/internal/effects"
)

func testPhotos() []collage.Photo {
	return []collage.Photo{
		{ID: "a", X: 100, Y: 200, Rotation: -8, Order: 1, Scale: 1.0, Width: 400, Height: 500},
		{ID: "b", X: 500, Y: 120, Rotation: 5, Order: 2, Scale: 1.2, Width: 400, Height: 500},
		{ID: "c", X: 300, Y: 340, Rotation: 0, Order: 3, Scale: 0.9, Width: 400, Height: 500},
	}
}

func TestStateAtBoundaries(t *testing.T) {
	photos := testPhotos()
	for _, effect := range []effects.AnimationEffect{effects.Sequential, effects.Shuffle, effects.Flip, effects.Fade} {
		plan := effects.BuildPlan(photos, effect, 1280, 720)

		atZero := StateAt(plan, photos, 0)
		for i, st := range atZero {
			if st != plan.Specs[i].From {
				t.Errorf("%s: at t=0 spec %d gives %+v, expected from-state %+v", effect, i, st, plan.Specs[i].From)
			}
		}

		atEnd := StateAt(plan, photos, plan.TotalDuration)
		for i, st := range atEnd {
			if st != plan.Specs[i].To {
				t.Errorf("%s: at t=total spec %d gives %+v, expected to-state %+v", effect, i, st, plan.Specs[i].To)
			}
		}
	}
}

func TestStateAtClampsOutsideTimeline(t *testing.T) {
	photos := testPhotos()
	plan := effects.BuildPlan(photos, effects.Fade, 1280, 720)

	before := StateAt(plan, photos, -5.0)
	for i, st := range before {
		if st != plan.Specs[i].From {
			t.Errorf("Spec %d: t<0 should clamp to from-state", i)
		}
	}

	after := StateAt(plan, photos, 1e9)
	for i, st := range after {
		if st != plan.Specs[i].To {
			t.Errorf("Spec %d: huge t should clamp to to-state", i)
		}
	}
}

// Back-out easing must overshoot past the target and settle — that is
// the point of the sequential entrance, so we verify overshoot, not
// monotonicity.
func TestSequentialOvershoots(t *testing.T) {
	photos := testPhotos()
	plan := effects.BuildPlan(photos, effects.Sequential, 1280, 720)
	spec := plan.Specs[0]

	overshot := false
	for localT := 0.80; localT < 1.0; localT += 0.01 {
		st := StateAt(plan, photos, spec.Delay+localT*spec.Duration)[0]
		if st.Y > spec.To.Y { // фото летит вниз: перелёт — ниже цели
			overshot = true
			break
		}
	}
	if !overshot {
		t.Error("Expected back-out easing to overshoot the resting Y")
	}
}

// Quart-out easing is monotonic: opacity and scale approach the target
// without ever backing up.
func TestFadeMonotonicProgress(t *testing.T) {
	photos := testPhotos()
	plan := effects.BuildPlan(photos, effects.Fade, 1280, 720)
	spec := plan.Specs[0]

	prev := -1.0
	for localT := 0.0; localT <= 1.0; localT += 0.05 {
		st := StateAt(plan, photos, spec.Delay+localT*spec.Duration)[0]
		if st.Opacity < prev-1e-9 {
			t.Errorf("Opacity moved backwards at localT=%.2f: %f after %f", localT, st.Opacity, prev)
		}
		prev = st.Opacity
	}
}

func TestStateAtDeletedPhotoDegradesToResting(t *testing.T) {
	photos := testPhotos()
	plan := effects.BuildPlan(photos, effects.Flip, 1280, 720)

	// Фото "b" удалили после построения плана.
	remaining := []collage.Photo{photos[0], photos[2]}
	states := StateAt(plan, remaining, 0.01)

	if len(states) != len(plan.Specs) {
		t.Fatalf("Expected %d states, got %d", len(plan.Specs), len(states))
	}
	for i, spec := range plan.Specs {
		if spec.PhotoID == "b" && states[i] != spec.To {
			t.Errorf("Deleted photo should report its to-state, got %+v", states[i])
		}
	}
}

func TestStateAtOpacityStaysInRange(t *testing.T) {
	photos := testPhotos()
	for _, effect := range []effects.AnimationEffect{effects.Sequential, effects.Shuffle, effects.Flip, effects.Fade} {
		plan := effects.BuildPlan(photos, effect, 1280, 720)
		for ti := 0; ti <= 100; ti++ {
			tt := plan.TotalDuration * float64(ti) / 100
			for _, st := range StateAt(plan, photos, tt) {
				if st.Opacity < 0 || st.Opacity > 1 {
					t.Fatalf("%s: opacity %f out of range at t=%f", effect, st.Opacity, tt)
				}
			}
		}
	}
}

func TestEasingPairing(t *testing.T) {
	// Пара эффект↔кривая зафиксирована: sequential — с перелётом,
	// остальные — затухающая квартика.
	seq := EasingFor(effects.Sequential)
	if seq(0.9) <= 1.0 {
		t.Error("Sequential easing should overshoot above 1 near completion")
	}
	for _, effect := range []effects.AnimationEffect{effects.Shuffle, effects.Flip, effects.Fade} {
		e := EasingFor(effect)
		if e(0.9) > 1.0 {
			t.Errorf("%s easing should not overshoot", effect)
		}
		if math.Abs(e(0)-0) > 1e-12 || math.Abs(e(1)-1) > 1e-12 {
			t.Errorf("%s easing must fix 0 and 1", effect)
		}
	}
	if math.Abs(seq(0)-0) > 1e-12 || math.Abs(seq(1)-1) > 1e-12 {
		t.Error("Sequential easing must fix 0 and 1")
	}
}
