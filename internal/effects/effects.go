package effects

import "fmt"

// AnimationEffect selects an entrance animation. Each effect is paired
// with a fixed easing curve in internal/renderer; the two must change
// together or interpolation stops matching the planned motion.
type AnimationEffect string

const (
	Sequential AnimationEffect = "sequential"
	Shuffle    AnimationEffect = "shuffle"
	Flip       AnimationEffect = "flip"
	Fade       AnimationEffect = "fade"
)

// ParseEffect validates a user-supplied effect name.
func ParseEffect(name string) (AnimationEffect, error) {
	switch AnimationEffect(name) {
	case Sequential, Shuffle, Flip, Fade:
		return AnimationEffect(name), nil
	}
	return "", fmt.Errorf("неизвестный эффект %q (доступны: sequential, shuffle, flip, fade)", name)
}

// PhotoVisualState fully determines how one photo is rendered at an
// instant. FlipAngle is the secondary-axis rotation in degrees; only the
// flip effect drives it away from zero.
type PhotoVisualState struct {
	PhotoID   string
	X         float64
	Y         float64
	Rotation  float64
	Opacity   float64
	Scale     float64
	FlipAngle float64
}

// EntranceSpec is one photo's planned entrance.
type EntranceSpec struct {
	PhotoID  string
	From     PhotoVisualState
	To       PhotoVisualState
	Delay    float64 // seconds at unit speed
	Duration float64 // seconds at unit speed
}

// EffectPlan is the immutable animation plan for one photo set. Specs
// are ordered back-to-front (by stacking order).
type EffectPlan struct {
	Effect        AnimationEffect
	Specs         []EntranceSpec
	TotalDuration float64 // seconds at unit speed
}
