package video

import (
	"context"
	"sync"
	"time"
)

// QueueThreshold bounds how many frames may sit in the encoder's input
// queue before submission blocks. Keeps memory flat when the encoder
// lags behind capture.
const QueueThreshold = 3

const queuePollInterval = 2 * time.Millisecond

// vframe is one frame handed to the encoder by value: pixel data plus
// explicit presentation timestamp and duration in microseconds.
type vframe struct {
	pix []byte
	pts int64
	dur int64
}

// frameQueue is the submission queue between the export loop and the
// encoder writer goroutine.
type frameQueue struct {
	mu     sync.Mutex
	frames []vframe
	closed bool
}

func (q *frameQueue) push(f vframe) {
	q.mu.Lock()
	q.frames = append(q.frames, f)
	q.mu.Unlock()
}

func (q *frameQueue) pop() (vframe, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return vframe{}, false
	}
	f := q.frames[0]
	q.frames = q.frames[1:]
	return f, true
}

func (q *frameQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

func (q *frameQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *frameQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// waitForCapacity blocks (bounded polling) while the queue holds more
// than QueueThreshold pending frames. abort lets the caller bail out
// early when the encoder has already failed.
func (q *frameQueue) waitForCapacity(ctx context.Context, abort func() error) error {
	for q.len() > QueueThreshold {
		if err := abort(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(queuePollInterval):
		}
	}
	return nil
}
