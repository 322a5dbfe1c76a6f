package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/noticecast/api/controllers"
	"github.com/angelmondragon/noticecast/api/middleware"
	"github.com/angelmondragon/noticecast/internal/broadcast"
	"github.com/angelmondragon/noticecast/internal/notices"
	"github.com/angelmondragon/noticecast/pkg/config"
	"github.com/angelmondragon/noticecast/pkg/logger"
	pkgredis "github.com/angelmondragon/noticecast/pkg/redis"
)

// RedisStore is the redis surface the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Dependencies groups what the router wires into handlers. Redis and the
// gatherer are optional.
type Dependencies struct {
	DB       controllers.Pinger
	Redis    RedisStore
	Notices  notices.Service
	Resolver controllers.StatusResolver
	Hub      *broadcast.Hub
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Logging(logg),
	)

	readiness := map[string]controllers.Pinger{}
	if deps.DB != nil {
		readiness["db"] = deps.DB
	}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var idempotencyStore pkgredis.IdempotencyStore
	var limiter middleware.StreamLimitParams
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		limiter = middleware.StreamLimitParams{
			Store:  deps.Redis,
			Limit:  cfg.Broadcast.StreamConnectLimit,
			Window: cfg.Broadcast.StreamConnectWindow,
			Logger: logg,
		}
	}

	r.Route("/api/v1/notices", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/", controllers.ListRecentNotices(deps.Notices, logg))
			r.Get("/system-status", controllers.NoticeSystemStatus(deps.Resolver, logg))
			r.Get("/popups", controllers.UnreadPopups(deps.Notices, logg))
			r.Get("/resolution", controllers.NoticeResolution(deps.Resolver, logg))
			r.Post("/{noticeId}/read", controllers.MarkNoticeRead(deps.Notices, logg))
		})

		r.With(
			middleware.StreamAuth(cfg.JWT, logg),
			middleware.StreamConnectLimit(limiter),
		).Get("/stream", controllers.NoticeStream(controllers.StreamParams{
			Hub:         deps.Hub,
			Heartbeat:   cfg.Broadcast.HeartbeatInterval,
			RetryMillis: cfg.Broadcast.RetryHintMillis,
			Logger:      logg,
		}))
	})

	r.Route("/api/admin/v1/notices", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireOperator(logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Post("/", controllers.AdminCreateNotice(deps.Notices, logg))
		r.Get("/", controllers.AdminListNotices(deps.Notices, logg))
		r.Delete("/{noticeId}", controllers.AdminDeleteNotice(deps.Notices, logg))
	})

	return r
}
