package collage

import "image"

// Размеры фото по умолчанию (портрет 4:5), если источник не сообщил свои.
const (
	DefaultPhotoWidth  = 400.0
	DefaultPhotoHeight = 500.0
)

// Photo is a single placed photo in the collage. Geometry is stored in
// logical layout units; Order is the stacking rank (higher = front).
type Photo struct {
	ID       string
	Image    image.Image
	X        float64
	Y        float64
	Rotation float64 // degrees
	Order    int
	Scale    float64
	Width    float64
	Height   float64
}

// Dimensions returns the photo's logical size, falling back to the
// default portrait ratio when the source did not provide one.
func (p *Photo) Dimensions() (float64, float64) {
	w, h := p.Width, p.Height
	if w <= 0 || h <= 0 {
		return DefaultPhotoWidth, DefaultPhotoHeight
	}
	return w, h
}

// CenterX returns the X coordinate of the photo center before rotation.
func (p *Photo) CenterX() float64 {
	w, _ := p.Dimensions()
	return p.X + w*p.Scale/2
}

// CenterY returns the Y coordinate of the photo center before rotation.
func (p *Photo) CenterY() float64 {
	_, h := p.Dimensions()
	return p.Y + h*p.Scale/2
}
