package broadcast

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	ch     chan *redis.Message
	closed bool
}

func (f *fakeSource) Channel(opts ...redis.ChannelOption) <-chan *redis.Message { return f.ch }

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func newTestRelay(hub *Hub, source *fakeSource, subErr error) *Relay {
	return &Relay{
		subscribe: func(ctx context.Context, channels ...string) (messageSource, error) {
			if subErr != nil {
				return nil, subErr
			}
			return source, nil
		},
		channel:    "notices",
		hub:        hub,
		logg:       testLogger(),
		backoff:    time.Millisecond,
		maxBackoff: 5 * time.Millisecond,
	}
}

func TestRelayDeliversDecodedEvents(t *testing.T) {
	hub := NewHub(4, nil)
	sub := hub.Subscribe(SubscriberInfo{UserID: uuid.New()})
	source := &fakeSource{ch: make(chan *redis.Message, 2)}
	relay := newTestRelay(hub, source, nil)

	payload, err := SystemChanged(uuid.Nil, time.Now()).Encode()
	require.NoError(t, err)
	source.ch <- &redis.Message{Channel: "notices", Payload: "{broken"}
	source.ch <- &redis.Message{Channel: "notices", Payload: string(payload)}
	close(source.ch)

	err = relay.runOnce(context.Background(), nil)
	assert.ErrorIs(t, err, ErrTransportUnavailable)
	assert.True(t, source.closed)
	assert.False(t, relay.Subscribed())
	assert.Len(t, sub.Events(), 1)
}

func TestRelayStopsOnContextCancel(t *testing.T) {
	hub := NewHub(1, nil)
	source := &fakeSource{ch: make(chan *redis.Message)}
	relay := newTestRelay(hub, source, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, relay.runOnce(ctx, nil), context.Canceled)
	assert.True(t, source.closed)

	assert.ErrorIs(t, relay.Run(ctx), context.Canceled)
}

func TestRelaySubscribeFailure(t *testing.T) {
	relay := newTestRelay(NewHub(1, nil), nil, errors.New("dial tcp: refused"))
	err := relay.runOnce(context.Background(), nil)
	assert.ErrorIs(t, err, ErrTransportUnavailable)
	assert.False(t, relay.Subscribed())
}

func TestRelayRunResubscribesAfterFailures(t *testing.T) {
	hub := NewHub(4, nil)
	sub := hub.Subscribe(SubscriberInfo{UserID: uuid.New()})
	relay := newTestRelay(hub, nil, nil)

	// The first attempt fails, the second subscription closes, the third
	// stays open and delivers.
	closed := &fakeSource{ch: make(chan *redis.Message)}
	close(closed.ch)
	live := &fakeSource{ch: make(chan *redis.Message, 1)}
	var attempts atomic.Int32
	relay.subscribe = func(ctx context.Context, channels ...string) (messageSource, error) {
		switch attempts.Add(1) {
		case 1:
			return nil, errors.New("dial tcp: refused")
		case 2:
			return closed, nil
		default:
			return live, nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, relay.Subscribed, time.Second, time.Millisecond)
	payload, err := SystemChanged(uuid.Nil, time.Now()).Encode()
	require.NoError(t, err)
	live.ch <- &redis.Message{Channel: "notices", Payload: string(payload)}
	require.Eventually(t, func() bool { return len(sub.Events()) == 1 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
	assert.EqualValues(t, 3, attempts.Load())
	assert.True(t, closed.closed)
	assert.False(t, relay.Subscribed())
}
