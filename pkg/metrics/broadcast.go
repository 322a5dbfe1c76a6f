package metrics

import "github.com/prometheus/client_golang/prometheus"

// BroadcastMetrics tracks notice fan-out to connected sessions.
type BroadcastMetrics struct {
	published   *prometheus.CounterVec
	delivered   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	fallbacks   prometheus.Counter
	subscribers prometheus.Gauge
}

// NewBroadcastMetrics registers the broadcast metrics on the provided registerer.
func NewBroadcastMetrics(reg prometheus.Registerer) *BroadcastMetrics {
	if reg == nil {
		return &BroadcastMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_events_published_total",
		Help: "Broadcast events published by kind.",
	}, []string{"kind"})
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_events_delivered_total",
		Help: "Broadcast events enqueued to a connected session.",
	}, []string{"kind"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_events_dropped_total",
		Help: "Broadcast events dropped because a session buffer was full.",
	}, []string{"kind"})
	fallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_transport_fallbacks_total",
		Help: "Publishes that fell back to local delivery after a transport failure.",
	})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "broadcast_subscribers",
		Help: "Sessions currently subscribed to the broadcast hub.",
	})
	reg.MustRegister(published, delivered, dropped, fallbacks, subscribers)
	return &BroadcastMetrics{
		published:   published,
		delivered:   delivered,
		dropped:     dropped,
		fallbacks:   fallbacks,
		subscribers: subscribers,
	}
}

// IncPublished counts one published event of the given kind.
func (b *BroadcastMetrics) IncPublished(kind string) {
	if b == nil || b.published == nil {
		return
	}
	b.published.WithLabelValues(normalizeLabel(kind)).Inc()
}

// AddDelivered counts events handed to session buffers.
func (b *BroadcastMetrics) AddDelivered(kind string, n int) {
	if b == nil || b.delivered == nil || n <= 0 {
		return
	}
	b.delivered.WithLabelValues(normalizeLabel(kind)).Add(float64(n))
}

// IncDropped counts one event dropped for a slow session.
func (b *BroadcastMetrics) IncDropped(kind string) {
	if b == nil || b.dropped == nil {
		return
	}
	b.dropped.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncFallback counts one publish that bypassed the shared transport.
func (b *BroadcastMetrics) IncFallback() {
	if b == nil || b.fallbacks == nil {
		return
	}
	b.fallbacks.Inc()
}

// SetSubscribers records the live subscriber count.
func (b *BroadcastMetrics) SetSubscribers(n int) {
	if b == nil || b.subscribers == nil {
		return
	}
	b.subscribers.Set(float64(n))
}
