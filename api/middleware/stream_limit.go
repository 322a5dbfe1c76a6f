package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/noticecast/api/responses"
	pkgerrors "github.com/angelmondragon/noticecast/pkg/errors"
	"github.com/angelmondragon/noticecast/pkg/logger"
)

// rateLimiterStore is satisfied by the redis client.
type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type StreamLimitParams struct {
	Store  rateLimiterStore
	Limit  int
	Window time.Duration
	Logger *logger.Logger
}

// StreamConnectLimit caps how often one user may open the push stream within a
// window. Reconnect storms are throttled; limiter failures fail open.
func StreamConnectLimit(params StreamLimitParams) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if params.Store == nil || params.Limit <= 0 || params.Window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, count, err := params.Store.FixedWindowAllow(r.Context(), "stream:"+userID, int64(params.Limit), params.Window)
			if err != nil {
				logError(r.Context(), params.Logger, "stream rate limit check failed", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				ctx := r.Context()
				if params.Logger != nil {
					ctx = params.Logger.WithField(ctx, "connect_count", count)
				}
				retryAfter := int(params.Window.Round(time.Second) / time.Second)
				if retryAfter < 1 {
					retryAfter = 1
				}
				responses.WriteError(ctx, params.Logger, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many stream connections").
					WithDetails(map[string]any{responses.RetryAfterDetail: retryAfter}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
