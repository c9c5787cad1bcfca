package renderer

import (
	"github.com/ivlev/collage2video/internal/effects"
)

// Easing maps linear progress [0,1] to perceptual progress. easeBackOut
// intentionally overshoots past 1 before settling.
type Easing func(t float64) float64

const backOvershoot = 1.70158

// EasingFor returns the curve paired with an effect. The pairing is
// part of the effect's definition: sequential entrances overshoot and
// settle, everything else decelerates smoothly.
func EasingFor(effect effects.AnimationEffect) Easing {
	if effect == effects.Sequential {
		return easeBackOut
	}
	return easeQuartOut
}

func easeBackOut(t float64) float64 {
	c1 := backOvershoot
	c3 := c1 + 1
	u := t - 1
	return 1 + c3*u*u*u + c1*u*u
}

func easeQuartOut(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u*u
}

// lerp performs linear interpolation between a and b.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
