package video

import "fmt"

// CapabilityError reports a missing hardware/encoder capability. It is
// fatal for the MP4 export path: no software fallback is attempted.
type CapabilityError struct {
	Feature string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("аппаратное кодирование недоступно: %s", e.Feature)
}

// UnsupportedParamsError reports a codec/resolution combination that no
// supported profile level can carry. Raised before any encoding work.
type UnsupportedParamsError struct {
	Width  int
	Height int
	Level  string
}

func (e *UnsupportedParamsError) Error() string {
	return fmt.Sprintf("разрешение %dx%d не поддерживается (максимальный уровень H.264 %s)",
		e.Width, e.Height, e.Level)
}
