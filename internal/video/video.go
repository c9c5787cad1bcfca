package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/ivlev/collage2video/internal/system"
)

// KeyframeInterval forces a keyframe every N frames so the output is
// seekable.
const KeyframeInterval = 30

// Encoder drives hardware H.264 encoding into an MP4 container with a
// fast-start layout. Construction fails with a CapabilityError when no
// hardware encoder is present — software fallback is not attempted.
type Encoder struct {
	Name    string
	Quality int
}

// NewEncoder probes for a hardware H.264 encoder.
func NewEncoder(quality int) (*Encoder, error) {
	name, err := system.ProbeHardwareH264()
	if err != nil {
		return nil, &CapabilityError{Feature: err.Error()}
	}
	if quality <= 0 {
		// Дефолты под конкретный кодер, как и для сегментного экспорта.
		switch name {
		case "h264_videotoolbox":
			quality = 75
		default: // h264_nvenc
			quality = 28
		}
	}
	return &Encoder{Name: name, Quality: quality}, nil
}

// VerifySupport checks the codec+resolution combination before any
// encoding work: the encoder must exist and a level tier must carry the
// frame area.
func (e *Encoder) VerifySupport(width, height int) error {
	if !system.EncoderSupported(e.Name) {
		return &CapabilityError{Feature: fmt.Sprintf("кодер %s отсутствует в сборке ffmpeg", e.Name)}
	}
	lvl := LevelFor(width, height)
	if width*height > lvl.MaxArea {
		return &UnsupportedParamsError{Width: width, Height: height, Level: lvl.Name}
	}
	return nil
}

// Session is one in-flight encode: frames go in through Submit under
// backpressure, Finalize flushes the encoder exactly once and returns
// the finished MP4.
type Session struct {
	enc    *Encoder
	width  int
	height int
	fps    int

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	logBuf  lockedBuffer
	tmpDir  string
	outPath string

	queue     *frameQueue
	writerWG  sync.WaitGroup
	submitted int

	errMu    sync.Mutex
	asyncErr error

	finalized bool
	result    []byte
	finalErr  error
}

// Begin verifies support, rounds dimensions down to even values and
// starts the encoder process.
func (e *Encoder) Begin(ctx context.Context, width, height, fps int) (*Session, error) {
	width, height = EvenDimensions(width, height)
	if width <= 0 || height <= 0 {
		return nil, &UnsupportedParamsError{Width: width, Height: height, Level: levels[0].Name}
	}
	if err := e.VerifySupport(width, height); err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "collage2video_")
	if err != nil {
		return nil, err
	}
	outPath := filepath.Join(tmpDir, "out.mp4")
	lvl := LevelFor(width, height)

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-",
		"-c:v", e.Name,
		"-pix_fmt", "yuv420p",
		"-profile:v", "high",
		"-level:v", lvl.Name,
		"-g", fmt.Sprintf("%d", KeyframeInterval),
		"-keyint_min", fmt.Sprintf("%d", KeyframeInterval),
	}
	args = append(args, e.qualityArgs()...)
	// faststart: метаданные в начале файла, воспроизведение без полного скачивания.
	args = append(args, "-movflags", "+faststart", outPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	s := &Session{
		enc:     e,
		width:   width,
		height:  height,
		fps:     fps,
		cmd:     cmd,
		tmpDir:  tmpDir,
		outPath: outPath,
		queue:   &frameQueue{},
	}
	cmd.Stdout = &s.logBuf
	cmd.Stderr = &s.logBuf

	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	s.stdin = stdin

	if err := cmd.Start(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	s.writerWG.Add(1)
	go s.writeLoop()

	return s, nil
}

func (e *Encoder) qualityArgs() []string {
	switch e.Name {
	case "h264_videotoolbox":
		// VideoToolbox часто не поддерживает -q:v напрямую. Используем битрейт.
		return []string{"-b:v", fmt.Sprintf("%dk", e.Quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", e.Quality)}
	default:
		return []string{"-crf", fmt.Sprintf("%d", e.Quality)}
	}
}

// Dimensions returns the (even-rounded) output size.
func (s *Session) Dimensions() (int, int) {
	return s.width, s.height
}

// Submit hands one frame to the encoder. It blocks cooperatively while
// the input queue is above QueueThreshold and aborts as soon as the
// encoder has failed asynchronously. The frame's pixels are copied, so
// the caller may reuse the buffer immediately.
func (s *Session) Submit(ctx context.Context, frame *image.RGBA) error {
	if err := s.err(); err != nil {
		return err
	}
	if err := s.queue.waitForCapacity(ctx, s.err); err != nil {
		return err
	}

	pix := rawRGBA(frame, s.width, s.height)

	// Явные PTS и длительность кадра в микросекундах.
	pts := int64(s.submitted) * 1_000_000 / int64(s.fps)
	next := int64(s.submitted+1) * 1_000_000 / int64(s.fps)
	s.queue.push(vframe{pix: pix, pts: pts, dur: next - pts})
	s.submitted++
	return nil
}

// Pending reports how many submitted frames the encoder has not yet
// consumed.
func (s *Session) Pending() int {
	return s.queue.len()
}

// Finalize flushes the encoder (drains all pending frames, closes the
// stream, waits for the container to be written) and returns the MP4
// bytes. Safe to call once; repeated calls return the first result.
func (s *Session) Finalize() ([]byte, error) {
	if s.finalized {
		return s.result, s.finalErr
	}
	s.finalized = true
	defer os.RemoveAll(s.tmpDir)

	// Флаш: дожидаемся записи всех кадров, затем закрываем поток.
	s.queue.close()
	s.writerWG.Wait()
	s.stdin.Close()

	waitErr := s.cmd.Wait()
	if err := s.err(); err != nil {
		s.finalErr = err
		return nil, s.finalErr
	}
	if waitErr != nil {
		s.finalErr = fmt.Errorf("ffmpeg завершился с ошибкой: %v\nЛог: %s", waitErr, s.logBuf.String())
		return nil, s.finalErr
	}

	data, err := os.ReadFile(s.outPath)
	if err != nil {
		s.finalErr = fmt.Errorf("не удалось прочитать результат: %w", err)
		return nil, s.finalErr
	}
	s.result = data
	return s.result, nil
}

// Abort tears the session down without producing a file.
func (s *Session) Abort() {
	if s.finalized {
		return
	}
	s.finalized = true
	s.queue.close()
	s.writerWG.Wait()
	s.stdin.Close()
	s.cmd.Wait()
	os.RemoveAll(s.tmpDir)
	s.finalErr = fmt.Errorf("экспорт видео прерван")
}

// writeLoop drains the queue into ffmpeg's stdin. Any write failure is
// recorded as the session's async error; the loop then drains the queue
// so Submit unblocks and sees the failure.
func (s *Session) writeLoop() {
	defer s.writerWG.Done()
	for {
		f, ok := s.queue.pop()
		if !ok {
			if s.queue.isClosed() {
				return
			}
			// Очередь пуста, но поток ещё открыт — ждём следующий кадр.
			time.Sleep(queuePollInterval)
			continue
		}
		if s.err() != nil {
			continue // drain
		}
		if _, err := s.stdin.Write(f.pix); err != nil {
			s.setErr(fmt.Errorf("ошибка кодера на кадре pts=%dмкс: %w\nЛог: %s",
				f.pts, err, s.logBuf.String()))
		}
	}
}

func (s *Session) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.asyncErr
}

func (s *Session) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.asyncErr == nil {
		s.asyncErr = err
	}
}

// lockedBuffer is the encoder's log sink. os/exec writes to it from its
// pipe-copier goroutine until the process exits, while the write loop
// may read it on an error path, so every access takes the mutex.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// rawRGBA copies the frame's pixels as tightly packed RGBA rows.
func rawRGBA(frame *image.RGBA, width, height int) []byte {
	bounds := frame.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height &&
		frame.Stride == width*4 && bounds.Min == (image.Point{}) {
		pix := make([]byte, len(frame.Pix))
		copy(pix, frame.Pix)
		return pix
	}
	pix := make([]byte, width*height*4)
	for y := 0; y < height && y < bounds.Dy(); y++ {
		srcRow := frame.Pix[y*frame.Stride:]
		n := width * 4
		if len(srcRow) < n {
			n = len(srcRow)
		}
		copy(pix[y*width*4:], srcRow[:n])
	}
	return pix
}
