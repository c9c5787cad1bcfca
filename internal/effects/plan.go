package effects

import (
	"sort"

	"github.com/ivlev/collage2video/internal/collage"
)

// Timing constants per effect. Changing these changes every exported
// clip, so they are centralized here rather than scattered per branch.
const (
	MinTotalDuration = 1.0

	sequentialStagger  = 0.35
	sequentialDuration = 0.8
	sequentialDrop     = 120.0 // extra offset above the viewport top edge
	sequentialDamping  = 0.3   // entrance rotation as a fraction of the final one

	shuffleGather   = 0.5
	shuffleStagger  = 0.12
	shuffleDuration = 0.7

	flipStagger  = 0.3
	flipDuration = 0.6

	fadeStagger  = 0.28
	fadeDuration = 0.7
	fadeShrink   = 0.85
)

// BuildPlan maps the current photo set, an effect and the viewport size
// to a declarative animation plan. It is deterministic: identical inputs
// always yield identical plans, so preview and export see the same
// motion. No RNG is used anywhere — per-photo variation is a pure
// function of stacking index and the photo's own resting state.
func BuildPlan(photos []collage.Photo, effect AnimationEffect, viewportWidth, viewportHeight float64) *EffectPlan {
	// Входы всегда идут сзади-наперёд, независимо от эффекта.
	ordered := make([]collage.Photo, len(photos))
	copy(ordered, photos)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	plan := &EffectPlan{Effect: effect}

	for i, p := range ordered {
		to := RestingState(&p)
		var spec EntranceSpec

		switch effect {
		case Shuffle:
			spec = shuffleSpec(&p, i, to, viewportWidth, viewportHeight)
		case Flip:
			spec = flipSpec(&p, i, to)
		case Fade:
			spec = fadeSpec(&p, i, to)
		default: // Sequential
			spec = sequentialSpec(&p, i, to)
		}

		plan.Specs = append(plan.Specs, spec)
		if end := spec.Delay + spec.Duration; end > plan.TotalDuration {
			plan.TotalDuration = end
		}
	}

	if plan.TotalDuration < MinTotalDuration {
		plan.TotalDuration = MinTotalDuration
	}

	return plan
}

// RestingState is the photo's final on-canvas state: full opacity, its
// real geometry, no secondary rotation. Every effect lands here.
func RestingState(p *collage.Photo) PhotoVisualState {
	return PhotoVisualState{
		PhotoID:  p.ID,
		X:        p.X,
		Y:        p.Y,
		Rotation: p.Rotation,
		Opacity:  1.0,
		Scale:    p.Scale,
	}
}

// sequentialSpec drops the photo in from above the viewport, one photo
// after another.
func sequentialSpec(p *collage.Photo, index int, to PhotoVisualState) EntranceSpec {
	_, h := p.Dimensions()
	from := to
	from.Y = -(h*p.Scale + sequentialDrop)
	from.Rotation = to.Rotation * sequentialDamping
	return EntranceSpec{
		PhotoID:  p.ID,
		From:     from,
		To:       to,
		Delay:    float64(index) * sequentialStagger,
		Duration: sequentialDuration,
	}
}

// shuffleSpec gathers all photos into a fanned stack at the viewport
// center, then scatters them outward with a small stagger. The entrance
// rotation alternates sign by index parity and grows with the index;
// the formula is a purely cosmetic heuristic and is kept as-is.
func shuffleSpec(p *collage.Photo, index int, to PhotoVisualState, vw, vh float64) EntranceSpec {
	w, h := p.Dimensions()
	from := to
	from.X = vw/2 - w*p.Scale/2
	from.Y = vh/2 - h*p.Scale/2
	from.Rotation = shuffleFan(index)
	return EntranceSpec{
		PhotoID:  p.ID,
		From:     from,
		To:       to,
		Delay:    shuffleGather + float64(index)*shuffleStagger,
		Duration: shuffleDuration,
	}
}

func shuffleFan(index int) float64 {
	angle := 6.0 + 2.0*float64(index)
	if index%2 == 1 {
		return -angle
	}
	return angle
}

// flipSpec sweeps the photo in around its vertical axis (90° → 0°)
// while it scales and fades up.
func flipSpec(p *collage.Photo, index int, to PhotoVisualState) EntranceSpec {
	from := to
	from.FlipAngle = 90
	from.Scale = to.Scale * 0.8
	from.Opacity = 0
	return EntranceSpec{
		PhotoID:  p.ID,
		From:     from,
		To:       to,
		Delay:    float64(index) * flipStagger,
		Duration: flipDuration,
	}
}

// fadeSpec fades the photo in from a slightly smaller size in place.
func fadeSpec(p *collage.Photo, index int, to PhotoVisualState) EntranceSpec {
	from := to
	from.Scale = to.Scale * fadeShrink
	from.Opacity = 0
	return EntranceSpec{
		PhotoID:  p.ID,
		From:     from,
		To:       to,
		Delay:    float64(index) * fadeStagger,
		Duration: fadeDuration,
	}
}
