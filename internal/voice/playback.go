package voice

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Renderer plays one frame at a time. Play blocks until the frame has fully
// rendered or ctx is canceled.
type Renderer interface {
	Play(ctx context.Context, frame AudioFrame) error
	Close() error
}

// Queue is an unbounded FIFO of decoded frames feeding a Renderer. Frames
// play strictly in arrival order, one at a time. A worker goroutine is
// spawned on demand and parks again once the queue drains.
type Queue struct {
	logger   *zap.Logger
	renderer Renderer

	mu           sync.Mutex
	items        []AudioFrame
	active       bool
	closed       bool
	renderCtx    context.Context
	renderCancel context.CancelFunc
}

// NewQueue creates a Queue feeding the given renderer.
func NewQueue(logger *zap.Logger, renderer Renderer) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		logger:       logger,
		renderer:     renderer,
		renderCtx:    ctx,
		renderCancel: cancel,
	}
}

// Enqueue appends a frame and starts playback if the queue was idle.
func (q *Queue) Enqueue(frame AudioFrame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}

	q.items = append(q.items, frame)
	if !q.active {
		q.active = true
		go q.worker()
	}
}

// Flush discards every pending frame and interrupts the one currently
// rendering, including a frame popped but not yet started.
func (q *Queue) Flush() {
	q.mu.Lock()
	discarded := len(q.items)
	q.items = nil
	cancel := q.renderCancel
	q.renderCtx, q.renderCancel = context.WithCancel(context.Background())
	q.mu.Unlock()

	cancel()
	if discarded > 0 {
		q.logger.Debug("Playback queue flushed", zap.Int("discarded", discarded))
	}
}

// Len reports how many frames are waiting, not counting one in flight.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close flushes the queue and stops accepting frames.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	cancel := q.renderCancel
	q.mu.Unlock()

	cancel()
}

func (q *Queue) worker() {
	for {
		q.mu.Lock()
		if q.closed || len(q.items) == 0 {
			q.active = false
			q.mu.Unlock()
			return
		}
		frame := q.items[0]
		q.items = q.items[1:]
		ctx := q.renderCtx
		q.mu.Unlock()

		if err := q.renderer.Play(ctx, frame); err != nil && !errors.Is(err, context.Canceled) {
			q.logger.Warn("Frame playback failed", zap.Error(err))
		}
	}
}
