package renderer

import (
	"github.com/ivlev/collage2video/internal/collage"
	"github.com/ivlev/collage2video/internal/effects"
)

// StateAt calculates every photo's visual state at elapsed time t by
// interpolating each entrance spec. It is pure and total: t may be any
// real value. Before a spec's delay the from-state is returned, after
// the window closes the to-state, so sampling outside the timeline is
// always well defined.
func StateAt(plan *effects.EffectPlan, photos []collage.Photo, t float64) []effects.PhotoVisualState {
	if plan == nil {
		return nil
	}

	present := make(map[string]bool, len(photos))
	for _, p := range photos {
		present[p.ID] = true
	}

	ease := EasingFor(plan.Effect)
	states := make([]effects.PhotoVisualState, 0, len(plan.Specs))

	for _, spec := range plan.Specs {
		// The photo may have been deleted mid-session; degrade to its
		// resting state rather than animating a ghost.
		if !present[spec.PhotoID] {
			states = append(states, spec.To)
			continue
		}
		states = append(states, interpolateSpec(spec, t, ease))
	}

	return states
}

func interpolateSpec(spec effects.EntranceSpec, t float64, ease Easing) effects.PhotoVisualState {
	// Clamp below and above the active window.
	if t <= spec.Delay {
		return spec.From
	}
	if spec.Duration <= 0 || t >= spec.Delay+spec.Duration {
		return spec.To
	}

	localT := (t - spec.Delay) / spec.Duration
	k := ease(localT)

	return effects.PhotoVisualState{
		PhotoID:   spec.PhotoID,
		X:         lerp(spec.From.X, spec.To.X, k),
		Y:         lerp(spec.From.Y, spec.To.Y, k),
		Rotation:  lerp(spec.From.Rotation, spec.To.Rotation, k),
		Opacity:   clamp01(lerp(spec.From.Opacity, spec.To.Opacity, k)),
		Scale:     lerp(spec.From.Scale, spec.To.Scale, k),
		FlipAngle: lerp(spec.From.FlipAngle, spec.To.FlipAngle, k),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
