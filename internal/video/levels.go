package video

// Level is an H.264 profile level tier capping the frame area it can
// carry. Tiers are checked in order; a request above every tier picks
// the highest level and still goes through the explicit support check.
type Level struct {
	Name    string
	MaxArea int // pixels per frame
}

var levels = []Level{
	{Name: "3.1", MaxArea: 1280 * 720},
	{Name: "4.0", MaxArea: 1920 * 1080},
	{Name: "4.2", MaxArea: 2048 * 1088},
	{Name: "5.2", MaxArea: 4096 * 2176},
}

// LevelFor selects the smallest level tier whose area cap covers the
// given dimensions, falling back to the highest tier.
func LevelFor(width, height int) Level {
	area := width * height
	for _, l := range levels {
		if area <= l.MaxArea {
			return l
		}
	}
	return levels[len(levels)-1]
}

// EvenDimensions rounds both dimensions down to even values, a hard
// constraint of yuv420p H.264 encoding.
func EvenDimensions(width, height int) (int, int) {
	return width &^ 1, height &^ 1
}
