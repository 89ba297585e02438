// Package playback renders one streamed reply at a time.
package playback

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

var ErrBusy = errors.New("playback already active")

// Sink renders audio. Play blocks until r is drained, ctx is cancelled or
// the device fails.
type Sink interface {
	Play(ctx context.Context, r io.Reader) error
}

type handle struct {
	id     string
	stream io.ReadCloser
	cancel context.CancelFunc
	done   chan struct{}

	stopped bool
}

// Controller allows at most one live playback.
type Controller struct {
	sink  Sink
	clock clock.Clock

	mu     sync.Mutex
	active *handle
}

func NewController(sink Sink, clk clock.Clock) *Controller {
	if clk == nil {
		clk = clock.New()
	}
	return &Controller{sink: sink, clock: clk}
}

// Play starts rendering stream and returns the playback id. onComplete runs
// on the playback goroutine after natural completion or a sink failure, never
// after Stop. The controller closes stream.
func (c *Controller) Play(stream io.ReadCloser, onComplete func()) (string, error) {
	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		metricPlaybacks.WithLabelValues("busy").Inc()
		return "", ErrBusy
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{
		id:     uuid.NewString(),
		stream: stream,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.active = h
	c.mu.Unlock()

	metricActive.Set(1)
	go c.run(ctx, h, onComplete)
	return h.id, nil
}

func (c *Controller) run(ctx context.Context, h *handle, onComplete func()) {
	start := c.clock.Now()
	err := c.sink.Play(ctx, h.stream)
	h.stream.Close()
	h.cancel()

	c.mu.Lock()
	if c.active == h {
		c.active = nil
	}
	if c.active == nil {
		metricActive.Set(0)
	}
	stopped := h.stopped
	c.mu.Unlock()

	metricDurationMS.Observe(float64(c.clock.Since(start).Milliseconds()))
	close(h.done)

	switch {
	case stopped:
		metricPlaybacks.WithLabelValues("stopped").Inc()
		log.Printf("[playback] stopped id=%s", h.id)
		return
	case err != nil:
		metricPlaybacks.WithLabelValues("failed").Inc()
		log.Printf("[playback] sink failed id=%s err=%v", h.id, err)
	default:
		metricPlaybacks.WithLabelValues("completed").Inc()
	}
	if onComplete != nil {
		onComplete()
	}
}

// Stop cancels the current playback and waits for the sink to return. It
// reports whether anything was playing.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	h := c.active
	if h == nil {
		c.mu.Unlock()
		return false
	}
	h.stopped = true
	c.active = nil
	c.mu.Unlock()

	h.cancel()
	h.stream.Close()
	<-h.done
	return true
}

func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

func (c *Controller) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ""
	}
	return c.active.id
}
