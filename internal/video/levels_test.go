package video

import "testing"

func TestLevelFor(t *testing.T) {
	tests := []struct {
		w, h int
		want string
	}{
		{640, 480, "3.1"},
		{1280, 720, "3.1"},
		{1920, 1080, "4.0"},
		{2048, 1088, "4.2"},
		{3840, 2160, "5.2"},
		{4096, 2176, "5.2"},
		// Выше всех уровней — берём максимальный, поддержку проверит
		// отдельная валидация.
		{7680, 4320, "5.2"},
	}
	for _, tc := range tests {
		if got := LevelFor(tc.w, tc.h); got.Name != tc.want {
			t.Errorf("LevelFor(%d, %d) = %s, expected %s", tc.w, tc.h, got.Name, tc.want)
		}
	}
}

func TestEvenDimensions(t *testing.T) {
	tests := []struct {
		w, h, ew, eh int
	}{
		{1920, 1080, 1920, 1080},
		{1921, 1080, 1920, 1080},
		{1920, 1081, 1920, 1080},
		{333, 777, 332, 776},
	}
	for _, tc := range tests {
		w, h := EvenDimensions(tc.w, tc.h)
		if w != tc.ew || h != tc.eh {
			t.Errorf("EvenDimensions(%d, %d) = %dx%d, expected %dx%d",
				tc.w, tc.h, w, h, tc.ew, tc.eh)
		}
	}
}
