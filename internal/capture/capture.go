package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/collage2video/internal/canvas"
	"github.com/ivlev/collage2video/internal/collage"
	"github.com/ivlev/collage2video/internal/system"
)

// JPEGQuality matches the editor's still-export quality (≈0.95).
const JPEGQuality = 95

const watermarkMargin = 16

// Frame rasterizes the scene into exactly width×height pixels,
// regardless of the logical viewport size. The logical scene is mapped
// with a single uniform fit factor and centered, so mismatched aspect
// ratios (e.g. after even-rounding for video) letterbox over the
// background instead of stretching the photos. Overlay elements (UI
// chrome) are skipped; the background and watermark are painted. The
// returned buffer comes from the shared image pool — callers that are
// done with a frame should hand it back via Release.
func Frame(scene *canvas.Scene, width, height int) *image.RGBA {
	dst := system.GetImage(image.Rect(0, 0, width, height))
	paintBackground(dst, scene.Background())

	lw, lh := scene.Size()
	k := math.Min(float64(width)/lw, float64(height)/lh)
	ox := (float64(width) - lw*k) / 2
	oy := (float64(height) - lh*k) / 2

	for _, el := range scene.Elements() {
		if el.Overlay {
			continue
		}
		drawElement(dst, &el, k, ox, oy)
	}

	if wm := scene.Watermark(); wm != nil {
		b := wm.Bounds()
		at := image.Pt(width-b.Dx()-watermarkMargin, height-b.Dy()-watermarkMargin)
		draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(b.Size())}, wm, b.Min, draw.Over)
	}

	return dst
}

// Release returns a frame buffer to the pool.
func Release(frame *image.RGBA) {
	system.PutImage(frame)
}

// Still captures the scene and encodes it as "png" or "jpeg".
func Still(scene *canvas.Scene, width, height int, format string) ([]byte, error) {
	frame := Frame(scene, width, height)
	defer Release(frame)

	var buf bytes.Buffer
	switch format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return nil, fmt.Errorf("ошибка кодирования JPEG: %w", err)
		}
	case "png", "":
		if err := png.Encode(&buf, frame); err != nil {
			return nil, fmt.Errorf("ошибка кодирования PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("неизвестный формат кадра: %q", format)
	}
	return buf.Bytes(), nil
}

// drawElement composites one photo with rotation, uniform scale, flip
// squash and opacity. The affine matrix maps source pixels to output
// pixels: translate to the element center, rotate, scale. k is the
// uniform logical→output factor, ox/oy the centering offsets.
func drawElement(dst *image.RGBA, el *canvas.Element, k, ox, oy float64) {
	st := el.State
	if st.Opacity <= 0 || el.Image == nil {
		return
	}

	src := el.Image
	sb := src.Bounds()
	srcW := float64(sb.Dx())
	srcH := float64(sb.Dy())
	if srcW == 0 || srcH == 0 {
		return
	}

	// Логические единицы → пиксели вывода.
	kx := st.Scale * (el.Width / srcW) * k
	ky := st.Scale * (el.Height / srcH) * k

	// Вращение вокруг вертикальной оси сжимает фото по горизонтали.
	flip := st.FlipAngle * math.Pi / 180
	kx *= math.Cos(flip)
	if math.Abs(kx) < 1e-4 {
		return // ребро «карточки», рисовать нечего
	}

	cx := (st.X+el.Width*st.Scale/2)*k + ox
	cy := (st.Y+el.Height*st.Scale/2)*k + oy

	theta := st.Rotation * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)

	a := kx * cos
	b := -ky * sin
	d := kx * sin
	e := ky * cos

	m := f64.Aff3{
		a, b, cx - (a*srcW/2 + b*srcH/2),
		d, e, cy - (d*srcW/2 + e*srcH/2),
	}

	opts := &xdraw.Options{
		SrcMask: image.NewUniform(color.Alpha{A: uint8(st.Opacity*255 + 0.5)}),
	}
	xdraw.ApproxBiLinear.Transform(dst, m, src, sb, xdraw.Over, opts)
}

func paintBackground(dst *image.RGBA, bg collage.Background) {
	top := parseHexColor(bg.Color, color.RGBA{R: 0xf5, G: 0xf5, B: 0xf0, A: 0xff})

	if bg.Style != "gradient" {
		draw.Draw(dst, dst.Bounds(), &image.Uniform{C: top}, image.Point{}, draw.Src)
		return
	}

	bottom := parseHexColor(bg.Color2, top)
	bounds := dst.Bounds()
	h := bounds.Dy()
	for y := 0; y < h; y++ {
		t := 0.0
		if h > 1 {
			t = float64(y) / float64(h-1)
		}
		row := color.RGBA{
			R: mixChannel(top.R, bottom.R, t),
			G: mixChannel(top.G, bottom.G, t),
			B: mixChannel(top.B, bottom.B, t),
			A: 0xff,
		}
		line := image.Rect(bounds.Min.X, bounds.Min.Y+y, bounds.Max.X, bounds.Min.Y+y+1)
		draw.Draw(dst, line, &image.Uniform{C: row}, image.Point{}, draw.Src)
	}
}

func mixChannel(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

// parseHexColor parses "#rrggbb"; malformed input falls back to def.
func parseHexColor(s string, def color.RGBA) color.RGBA {
	if len(s) != 7 || s[0] != '#' {
		return def
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return def
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
