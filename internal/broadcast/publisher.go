package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/noticecast/pkg/logger"
	"github.com/angelmondragon/noticecast/pkg/metrics"
)

// ErrTransportUnavailable marks a publish that could not reach the shared
// transport. It is logged, never returned to callers of Publish.
var ErrTransportUnavailable = errors.New("broadcast transport unavailable")

// Publisher fans events out to connected sessions. Delivery is best-effort:
// Publish never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// LocalPublisher delivers straight to the in-process hub.
type LocalPublisher struct {
	hub     *Hub
	logg    *logger.Logger
	metrics *metrics.BroadcastMetrics
}

// NewLocalPublisher builds a publisher for single-instance deployments.
func NewLocalPublisher(hub *Hub, logg *logger.Logger, m *metrics.BroadcastMetrics) (*LocalPublisher, error) {
	if hub == nil {
		return nil, fmt.Errorf("hub required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LocalPublisher{hub: hub, logg: logg, metrics: m}, nil
}

func (p *LocalPublisher) Publish(ctx context.Context, evt Event) {
	p.metrics.IncPublished(evt.Kind.String())
	delivered := p.hub.Deliver(evt)
	logCtx := p.logg.WithEvent(ctx, evt.Kind.String(), evt.ID)
	logCtx = p.logg.WithField(logCtx, "delivered", delivered)
	p.logg.Debug(logCtx, "broadcast event delivered locally")
}

type channelPublisher interface {
	Publish(ctx context.Context, channel string, payload any) (int64, error)
}

// relayState is implemented by *Relay.
type relayState interface {
	Subscribed() bool
}

// RedisPublisher publishes events on a Redis channel so every API instance's
// relay can deliver them. The event is delivered to this instance's hub
// directly when Redis is unreachable, when no relay received it, or when the
// local relay is between subscriptions.
type RedisPublisher struct {
	client  channelPublisher
	channel string
	hub     *Hub
	relay   relayState
	logg    *logger.Logger
	metrics *metrics.BroadcastMetrics
}

// RedisPublisherParams configure a RedisPublisher. Relay is the relay feeding
// Hub, when this process runs one.
type RedisPublisherParams struct {
	Client  channelPublisher
	Channel string
	Hub     *Hub
	Relay   *Relay
	Logger  *logger.Logger
	Metrics *metrics.BroadcastMetrics
}

// NewRedisPublisher validates params and builds the publisher. Hub may be nil
// for processes that never serve sessions, such as the cron worker.
func NewRedisPublisher(params RedisPublisherParams) (*RedisPublisher, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if strings.TrimSpace(params.Channel) == "" {
		return nil, fmt.Errorf("channel required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	pub := &RedisPublisher{
		client:  params.Client,
		channel: params.Channel,
		hub:     params.Hub,
		logg:    params.Logger,
		metrics: params.Metrics,
	}
	if params.Relay != nil {
		pub.relay = params.Relay
	}
	return pub, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, evt Event) {
	kind := evt.Kind.String()
	logCtx := p.logg.WithEvent(ctx, kind, evt.ID)
	p.metrics.IncPublished(kind)

	payload, err := evt.Encode()
	if err != nil {
		p.logg.Error(logCtx, "failed to encode broadcast event", err)
		return
	}

	receivers, err := p.client.Publish(ctx, p.channel, payload)
	switch {
	case err != nil:
		p.fallback(logCtx, evt, fmt.Errorf("%w: %v", ErrTransportUnavailable, err))
	case receivers == 0:
		p.fallback(logCtx, evt, fmt.Errorf("%w: no relay subscribed to %s", ErrTransportUnavailable, p.channel))
	case p.relay != nil && !p.relay.Subscribed():
		p.fallback(p.logg.WithField(logCtx, "relays", receivers), evt,
			fmt.Errorf("%w: local relay not subscribed", ErrTransportUnavailable))
	default:
		p.logg.Debug(p.logg.WithField(logCtx, "relays", receivers), "broadcast event published")
	}
}

func (p *RedisPublisher) fallback(ctx context.Context, evt Event, cause error) {
	p.metrics.IncFallback()
	p.logg.Error(ctx, "broadcast publish not relayed", cause)
	if p.hub == nil {
		return
	}
	delivered := p.hub.Deliver(evt)
	p.logg.Warn(p.logg.WithField(ctx, "delivered", delivered), "broadcast event delivered to local sessions only")
}
