package canvas

import (
	"image"

	qrcode "github.com/skip2/go-qrcode"
)

// NewQRWatermark renders a QR code pointing at the given link, sized in
// output pixels. Used as an export watermark (channel/profile link in
// the corner of the clip).
func NewQRWatermark(link string, size int) (image.Image, error) {
	q, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return q.Image(size), nil
}
