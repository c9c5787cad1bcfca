package gifenc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"math"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrEncoderStall is returned when GIF assembly exceeds StallTimeout —
// the encoder must fail loudly instead of hanging the export forever.
var ErrEncoderStall = errors.New("кодирование GIF зависло: превышен лимит времени")

// StallTimeout bounds the palette/LZW assembly phase.
const StallTimeout = 60 * time.Second

// Вес фаз в суммарном прогрессе: подготовка кадров и сборка — поровну.
const (
	ingestWeight = 0.5
	encodeWeight = 0.5
)

// Encode converts an ordered frame sequence into a looping,
// palette-quantized GIF. Frames are quantized on a worker pool (they
// are handed over by value, no shared mutable state), then assembled
// sequentially. Per-frame delay is round(1000/fps) ms, stored in GIF
// hundredths. progress is invoked serially with non-decreasing values;
// the callback needs no locking of its own.
func Encode(ctx context.Context, frames []*image.RGBA, fps int, progress func(float64)) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("нет кадров для кодирования GIF")
	}
	if fps <= 0 {
		return nil, fmt.Errorf("некорректный fps: %d", fps)
	}
	if progress == nil {
		progress = func(float64) {}
	}

	// Фаза 1: квантование палитры по кадрам. Счётчик и вызов progress
	// под одним мьютексом: отчёты сериализованы и монотонны.
	paletted := make([]*image.Paletted, len(frames))
	var progressMu sync.Mutex
	done := 0
	frameQuantized := func() {
		progressMu.Lock()
		done++
		progress(ingestWeight * float64(done) / float64(len(frames)))
		progressMu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, frame := range frames {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			paletted[i] = quantize(frame)
			frameQuantized()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Фаза 2: сборка контейнера (LZW) с жёстким таймаутом.
	delay := int(math.Round(100.0 / float64(fps)))
	if delay < 1 {
		delay = 1
	}

	anim := &gif.GIF{LoopCount: 0} // вечный цикл
	for _, p := range paletted {
		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, delay)
	}

	type result struct {
		data []byte
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		var buf bytes.Buffer
		err := gif.EncodeAll(&buf, anim)
		resCh <- result{data: buf.Bytes(), err: err}
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			return nil, fmt.Errorf("ошибка сборки GIF: %w", res.err)
		}
		progress(1.0)
		return res.data, nil
	case <-time.After(StallTimeout):
		return nil, ErrEncoderStall
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func quantize(frame *image.RGBA) *image.Paletted {
	bounds := frame.Bounds()
	p := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(p, bounds, frame, bounds.Min)
	return p
}
