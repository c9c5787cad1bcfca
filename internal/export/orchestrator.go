package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ivlev/collage2video/internal/canvas"
	"github.com/ivlev/collage2video/internal/capture"
	"github.com/ivlev/collage2video/internal/collage"
	"github.com/ivlev/collage2video/internal/effects"
	"github.com/ivlev/collage2video/internal/gifenc"
	"github.com/ivlev/collage2video/internal/playback"
	"github.com/ivlev/collage2video/internal/renderer"
	"github.com/ivlev/collage2video/internal/video"
)

// ErrExportBusy is returned when an export is requested while another
// one is in flight: concurrent exports are rejected, never queued.
var ErrExportBusy = errors.New("экспорт уже выполняется")

// Веса фаз в суммарном прогрессе. Захват кадров дешевле кодирования,
// поэтому делим 0.45/0.55 — выбор дизайна, а не вычисленная величина.
const (
	captureWeight = 0.45
	encodeWeight  = 0.55
)

// Options configures one clip export.
type Options struct {
	Format  string // "gif" или "mp4"
	Width   int
	Height  int
	FPS     int
	Quality int // только для mp4
}

// Orchestrator drives capture → encode → download and owns the visual
// layer for the duration of an export. Exactly one export runs at a
// time; playback is stopped first and the scene is restored to its
// resting state afterwards regardless of success or failure.
type Orchestrator struct {
	scene  *canvas.Scene
	store  *collage.Store
	driver *playback.Driver // может быть nil в headless-режиме
	sink   Sink

	busy atomic.Bool

	progressMu   sync.Mutex
	lastProgress float64
	// Progress receives a monotonically non-decreasing value in [0,1]
	// plus a phase label.
	Progress func(p float64, phase string)
}

func New(scene *canvas.Scene, store *collage.Store, driver *playback.Driver, sink Sink) *Orchestrator {
	return &Orchestrator{scene: scene, store: store, driver: driver, sink: sink}
}

// ExportClip captures the full timeline frame-by-frame at evenly spaced
// time steps (independent of real-time playback speed) and encodes it
// with the selected encoder. Returns the saved filename.
func (o *Orchestrator) ExportClip(ctx context.Context, plan *effects.EffectPlan, opts Options) (string, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return "", ErrExportBusy
	}
	defer o.busy.Store(false)

	if opts.FPS <= 0 || opts.Width <= 0 || opts.Height <= 0 {
		return "", fmt.Errorf("некорректные параметры экспорта: %dx%d @ %d fps", opts.Width, opts.Height, opts.FPS)
	}

	// Эксклюзивный доступ к визуальному слою: останавливаем превью.
	if o.driver != nil {
		o.driver.Stop()
	}
	o.resetProgress()

	photos := o.store.Photos()

	// Гарантированное восстановление финального состояния сцены,
	// даже если экспорт упал на середине.
	defer func() {
		o.scene.Apply(renderer.StateAt(plan, photos, plan.TotalDuration))
		o.scene.Commit()
	}()

	width, height := opts.Width, opts.Height
	var enc *video.Encoder
	if opts.Format == "mp4" {
		var err error
		enc, err = video.NewEncoder(opts.Quality)
		if err != nil {
			return "", err
		}
		// Чётные размеры — требование кодека; захватываем сразу в них.
		width, height = video.EvenDimensions(width, height)
		if err := enc.VerifySupport(width, height); err != nil {
			return "", err
		}
	}

	frames, err := o.captureTimeline(ctx, plan, photos, width, height, opts.FPS)
	if err != nil {
		releaseFrames(frames)
		return "", err
	}

	var data []byte
	var ext string
	switch opts.Format {
	case "gif":
		ext = "gif"
		data, err = gifenc.Encode(ctx, frames, opts.FPS, func(p float64) {
			o.report(captureWeight+encodeWeight*p, "Кодирование GIF")
		})
		releaseFrames(frames)
	case "mp4":
		ext = "mp4"
		data, err = o.encodeMP4(ctx, enc, frames, width, height, opts.FPS)
	default:
		releaseFrames(frames)
		return "", fmt.Errorf("неизвестный формат клипа: %q", opts.Format)
	}
	if err != nil {
		return "", err
	}

	filename := artifactName(ext)
	if err := o.sink.Save(filename, data); err != nil {
		return "", fmt.Errorf("не удалось сохранить результат: %w", err)
	}
	o.report(1.0, "Готово")
	return filename, nil
}

// ExportStill captures the resting collage as a PNG or JPEG.
func (o *Orchestrator) ExportStill(format string, width, height int) (string, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return "", ErrExportBusy
	}
	defer o.busy.Store(false)

	if o.driver != nil {
		o.driver.Stop()
	}

	data, err := capture.Still(o.scene, width, height, format)
	if err != nil {
		return "", err
	}
	if format == "jpg" {
		format = "jpeg"
	}
	ext := "png"
	if format == "jpeg" {
		ext = "jpg"
	}
	filename := artifactName(ext)
	if err := o.sink.Save(filename, data); err != nil {
		return "", fmt.Errorf("не удалось сохранить результат: %w", err)
	}
	return filename, nil
}

// FrameCount returns how many frames a timeline yields at the given
// fps: ceil(totalDuration × fps).
func FrameCount(totalDuration float64, fps int) int {
	return int(math.Ceil(totalDuration * float64(fps)))
}

// SampleTime returns the deterministic capture time of frame i.
func SampleTime(i, fps int) float64 {
	return float64(i) / float64(fps)
}

func (o *Orchestrator) captureTimeline(ctx context.Context, plan *effects.EffectPlan, photos []collage.Photo, width, height, fps int) ([]*image.RGBA, error) {
	frameCount := FrameCount(plan.TotalDuration, fps)
	frames := make([]*image.RGBA, 0, frameCount)

	for i := 0; i < frameCount; i++ {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		t := SampleTime(i, fps)
		o.scene.Apply(renderer.StateAt(plan, photos, t))
		// Барьер применение→захват: кадр обязан видеть только что
		// применённые состояния.
		o.scene.Commit()
		frames = append(frames, capture.Frame(o.scene, width, height))
		o.report(captureWeight*float64(i+1)/float64(frameCount), "Захват кадров")
	}

	return frames, nil
}

func (o *Orchestrator) encodeMP4(ctx context.Context, enc *video.Encoder, frames []*image.RGBA, width, height, fps int) ([]byte, error) {
	session, err := enc.Begin(ctx, width, height, fps)
	if err != nil {
		releaseFrames(frames)
		return nil, err
	}

	for i, frame := range frames {
		if err := session.Submit(ctx, frame); err != nil {
			// Ошибка кодера прерывает отправку оставшихся кадров.
			session.Abort()
			releaseFrames(frames[i:])
			return nil, err
		}
		capture.Release(frame)
		frames[i] = nil
		o.report(captureWeight+encodeWeight*float64(i+1)/float64(len(frames)+1), "Кодирование видео")
	}

	data, err := session.Finalize()
	if err != nil {
		return nil, err
	}
	o.report(captureWeight+encodeWeight, "Кодирование видео")
	return data, nil
}

// report forwards progress, clamped so the external signal never moves
// backwards even when sub-phases report out of order.
func (o *Orchestrator) report(p float64, phase string) {
	o.progressMu.Lock()
	if p < o.lastProgress {
		p = o.lastProgress
	}
	if p > 1 {
		p = 1
	}
	o.lastProgress = p
	cb := o.Progress
	o.progressMu.Unlock()

	if cb != nil {
		cb(p, phase)
	}
}

func (o *Orchestrator) resetProgress() {
	o.progressMu.Lock()
	o.lastProgress = 0
	o.progressMu.Unlock()
}

func releaseFrames(frames []*image.RGBA) {
	for _, f := range frames {
		if f != nil {
			capture.Release(f)
		}
	}
}

func artifactName(ext string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return fmt.Sprintf("collage_%s.%s", timestamp, ext)
}
