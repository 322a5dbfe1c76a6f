package controllers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sse"

	"github.com/angelmondragon/noticecast/api/responses"
	"github.com/angelmondragon/noticecast/internal/broadcast"
	pkgerrors "github.com/angelmondragon/noticecast/pkg/errors"
	"github.com/angelmondragon/noticecast/pkg/logger"
)

const (
	streamEventReady     = "ready"
	streamEventHeartbeat = "heartbeat"

	defaultHeartbeat = 25 * time.Second
)

// StreamParams wire the session push endpoint.
type StreamParams struct {
	Hub         *broadcast.Hub
	Heartbeat   time.Duration
	RetryMillis uint
	Logger      *logger.Logger
	Now         func() time.Time
}

type streamReady struct {
	UserID     string `json:"userId"`
	IsOperator bool   `json:"isOperator"`
}

type streamHeartbeat struct {
	At time.Time `json:"at"`
}

// NoticeStream keeps a server-sent event stream open for the caller and
// relays hub events until the client disconnects. Nothing durable is touched.
func NoticeStream(params StreamParams) http.HandlerFunc {
	heartbeat := params.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	logg := params.Logger

	return func(w http.ResponseWriter, r *http.Request) {
		if params.Hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "broadcast hub unavailable"))
			return
		}

		caller, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		rc := http.NewResponseController(w)
		header := w.Header()
		header.Set("Content-Type", sse.ContentType)
		header.Set("Cache-Control", "no-cache")
		header.Set("Connection", "keep-alive")
		header.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		sub := params.Hub.Subscribe(broadcast.SubscriberInfo{UserID: caller.UserID, IsOperator: caller.IsOperator})
		defer params.Hub.Unsubscribe(sub)

		ctx := r.Context()
		if logg != nil {
			logg.Info(ctx, "stream.connected")
			defer logg.Info(ctx, "stream.disconnected")
		}

		write := func(evt sse.Event) bool {
			if err := sse.Encode(w, evt); err != nil {
				if logg != nil {
					logg.Warn(ctx, "stream write failed: "+err.Error())
				}
				return false
			}
			if err := rc.Flush(); err != nil {
				if logg != nil {
					logg.Warn(ctx, "stream flush failed: "+err.Error())
				}
				return false
			}
			return true
		}

		if !write(sse.Event{
			Event: streamEventReady,
			Retry: params.RetryMillis,
			Data:  streamReady{UserID: caller.UserID.String(), IsOperator: caller.IsOperator},
		}) {
			return
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.Done():
				return
			case <-ticker.C:
				if !write(sse.Event{Event: streamEventHeartbeat, Data: streamHeartbeat{At: now().UTC()}}) {
					return
				}
			case evt := <-sub.Events():
				if !write(sse.Event{Event: evt.Kind.String(), Id: evt.ID, Data: evt}) {
					return
				}
			}
		}
	}
}
