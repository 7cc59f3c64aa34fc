// Package events is an in-process, fire-and-forget domain event bus.
// Handlers run on their own goroutines and never block or fail the
// publishing request.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"folio/internal/middleware"
	"folio/internal/observability"
)

// Type names a domain event.
type Type string

const (
	PostCreated     Type = "post.created"
	PostPublished   Type = "post.published"
	PostUpdated     Type = "post.updated"
	PostArchived    Type = "post.archived"
	PostUnarchived  Type = "post.unarchived"
	PostFlagged     Type = "post.flagged"
	PostFlagCleared Type = "post.flag_cleared"
	PostLiked       Type = "post.liked"
	PostDeleted     Type = "post.deleted"
	CommentCreated  Type = "comment.created"
)

// Event is one occurrence of a domain change.
type Event struct {
	Type       Type
	PostID     uint
	AuthorID   uint
	ActorID    uint
	CommentID  uint
	Title      string
	Reason     string
	OccurredAt time.Time
}

// Handler consumes an event.
type Handler func(ctx context.Context, e Event) error

// Publisher is what domain services depend on.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Bus fans events out to subscribed handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	wg       sync.WaitGroup
	closed   bool
	timeout  time.Duration
}

// NewBus returns a bus whose handlers are bounded by timeout.
func NewBus(timeout time.Duration) *Bus {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Bus{
		handlers: make(map[Type][]Handler),
		timeout:  timeout,
	}
}

// Subscribe registers h for each of types.
func (b *Bus) Subscribe(h Handler, types ...Type) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range types {
		b.handlers[t] = append(b.handlers[t], h)
	}
}

// Publish dispatches e asynchronously. Request cancellation does not cancel
// handlers. Events published after Close are dropped.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	observability.PostEventsTotal.WithLabelValues(string(e.Type)).Inc()

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	base := context.WithoutCancel(ctx)
	for _, h := range b.handlers[e.Type] {
		b.wg.Add(1)
		go b.run(base, h, e)
	}
}

func (b *Bus) run(ctx context.Context, h Handler, e Event) {
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			observability.EventHandlerFailures.WithLabelValues(string(e.Type)).Inc()
			middleware.Logger.ErrorContext(ctx, "event handler panicked",
				slog.String("event", string(e.Type)),
				slog.Uint64("post_id", uint64(e.PostID)),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	if err := h(ctx, e); err != nil {
		observability.EventHandlerFailures.WithLabelValues(string(e.Type)).Inc()
		middleware.Logger.WarnContext(ctx, "event handler failed",
			slog.String("event", string(e.Type)),
			slog.Uint64("post_id", uint64(e.PostID)),
			slog.String("error", err.Error()),
		)
	}
}

// Wait blocks until in-flight handlers finish.
func (b *Bus) Wait() {
	b.wg.Wait()
}

// Close stops accepting events and waits for in-flight handlers or ctx.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
