package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DispatchesToSubscribers(t *testing.T) {
	bus := NewBus(time.Second)

	var mu sync.Mutex
	var got []Type
	bus.Subscribe(func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Type)
		return nil
	}, PostCreated, PostPublished)

	bus.Publish(context.Background(), Event{Type: PostCreated, PostID: 1})
	bus.Publish(context.Background(), Event{Type: PostPublished, PostID: 1})
	bus.Publish(context.Background(), Event{Type: PostDeleted, PostID: 1})
	bus.Wait()

	assert.ElementsMatch(t, []Type{PostCreated, PostPublished}, got)
}

func TestBus_HandlerSurvivesRequestCancellation(t *testing.T) {
	bus := NewBus(time.Second)

	var sawCanceled atomic.Bool
	bus.Subscribe(func(ctx context.Context, _ Event) error {
		time.Sleep(10 * time.Millisecond)
		sawCanceled.Store(ctx.Err() != nil)
		return nil
	}, PostLiked)

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, Event{Type: PostLiked})
	cancel()
	bus.Wait()

	assert.False(t, sawCanceled.Load())
}

func TestBus_IsolatesFailures(t *testing.T) {
	bus := NewBus(time.Second)

	var ok atomic.Int32
	bus.Subscribe(func(context.Context, Event) error { panic("boom") }, PostFlagged)
	bus.Subscribe(func(context.Context, Event) error { return errors.New("nope") }, PostFlagged)
	bus.Subscribe(func(context.Context, Event) error {
		ok.Add(1)
		return nil
	}, PostFlagged)

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), Event{Type: PostFlagged, PostID: 3})
		bus.Wait()
	})
	assert.Equal(t, int32(1), ok.Load())
}

func TestBus_CloseDrainsAndDropsLateEvents(t *testing.T) {
	bus := NewBus(time.Second)

	var count atomic.Int32
	bus.Subscribe(func(context.Context, Event) error {
		time.Sleep(20 * time.Millisecond)
		count.Add(1)
		return nil
	}, CommentCreated)

	bus.Publish(context.Background(), Event{Type: CommentCreated})
	require.NoError(t, bus.Close(context.Background()))
	assert.Equal(t, int32(1), count.Load())

	bus.Publish(context.Background(), Event{Type: CommentCreated})
	bus.Wait()
	assert.Equal(t, int32(1), count.Load())
}

func TestBus_CloseHonoursDeadline(t *testing.T) {
	bus := NewBus(time.Second)
	release := make(chan struct{})
	bus.Subscribe(func(context.Context, Event) error {
		<-release
		return nil
	}, PostArchived)

	bus.Publish(context.Background(), Event{Type: PostArchived})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Close(ctx), context.DeadlineExceeded)
	close(release)
	bus.Wait()
}
