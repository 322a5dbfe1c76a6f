package broadcast

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/noticecast/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

const (
	defaultRelayBackoff    = 500 * time.Millisecond
	defaultRelayMaxBackoff = 30 * time.Second
)

type messageSource interface {
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

type subscribeFunc func(ctx context.Context, channels ...string) (messageSource, error)

// Subscriber opens Redis Pub/Sub subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error)
}

// Relay feeds events published by any instance into the local hub.
type Relay struct {
	subscribe  subscribeFunc
	channel    string
	hub        *Hub
	logg       *logger.Logger
	backoff    time.Duration
	maxBackoff time.Duration
	subscribed atomic.Bool
}

// RelayParams configure a Relay. Backoff and MaxBackoff bound the delay
// between resubscribe attempts; zero values use the defaults.
type RelayParams struct {
	Subscriber Subscriber
	Channel    string
	Hub        *Hub
	Logger     *logger.Logger
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// NewRelay builds a relay bound to the Redis channel.
func NewRelay(params RelayParams) (*Relay, error) {
	if params.Subscriber == nil {
		return nil, fmt.Errorf("redis subscriber required")
	}
	if strings.TrimSpace(params.Channel) == "" {
		return nil, fmt.Errorf("channel required")
	}
	if params.Hub == nil {
		return nil, fmt.Errorf("hub required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	backoff := params.Backoff
	if backoff <= 0 {
		backoff = defaultRelayBackoff
	}
	maxBackoff := params.MaxBackoff
	if maxBackoff < backoff {
		maxBackoff = defaultRelayMaxBackoff
	}
	sub := params.Subscriber
	return &Relay{
		subscribe: func(ctx context.Context, channels ...string) (messageSource, error) {
			return sub.Subscribe(ctx, channels...)
		},
		channel:    params.Channel,
		hub:        params.Hub,
		logg:       params.Logger,
		backoff:    backoff,
		maxBackoff: maxBackoff,
	}, nil
}

// Subscribed reports whether the relay currently holds a live subscription.
func (r *Relay) Subscribed() bool {
	return r.subscribed.Load()
}

// Run relays messages until ctx is canceled. A failed or closed subscription
// is reopened with capped exponential backoff; the backoff restarts after
// every successful subscribe.
func (r *Relay) Run(ctx context.Context) error {
	ctx = r.logg.WithField(ctx, "channel", r.channel)

	var backoff retry.Backoff
	reset := func() {
		backoff = retry.WithCappedDuration(r.maxBackoff, retry.NewExponential(r.backoff))
	}
	reset()
	next := retry.BackoffFunc(func() (time.Duration, bool) {
		return backoff.Next()
	})

	return retry.Do(ctx, next, func(ctx context.Context) error {
		err := r.runOnce(ctx, reset)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.logg.Error(ctx, "broadcast relay interrupted, resubscribing", err)
		return retry.RetryableError(err)
	})
}

// runOnce holds one subscription until ctx ends or the subscription closes.
// onSubscribed runs once the subscription is live.
func (r *Relay) runOnce(ctx context.Context, onSubscribed func()) error {
	source, err := r.subscribe(ctx, r.channel)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	r.subscribed.Store(true)
	defer func() {
		r.subscribed.Store(false)
		if cerr := source.Close(); cerr != nil {
			r.logg.Warn(ctx, "closing relay subscription: "+cerr.Error())
		}
	}()
	if onSubscribed != nil {
		onSubscribed()
	}

	r.logg.Info(ctx, "broadcast relay subscribed")
	messages := source.Channel()
	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "broadcast relay stopping")
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("%w: relay subscription closed", ErrTransportUnavailable)
			}
			r.handle(ctx, msg)
		}
	}
}

func (r *Relay) handle(ctx context.Context, msg *redis.Message) {
	if msg == nil {
		return
	}
	evt, err := DecodeEvent([]byte(msg.Payload))
	if err != nil {
		r.logg.Error(ctx, "skipping malformed broadcast payload", err)
		return
	}
	delivered := r.hub.Deliver(evt)
	logCtx := r.logg.WithEvent(ctx, evt.Kind.String(), evt.ID)
	r.logg.Debug(r.logg.WithField(logCtx, "delivered", delivered), "relayed broadcast event")
}
