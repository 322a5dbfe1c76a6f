package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/noticecast/api/responses"
	"github.com/angelmondragon/noticecast/api/validators"
	"github.com/angelmondragon/noticecast/internal/notices"
	pkgerrors "github.com/angelmondragon/noticecast/pkg/errors"
	"github.com/angelmondragon/noticecast/pkg/logger"
	"github.com/angelmondragon/noticecast/pkg/status"
)

// StatusResolver answers lock, promotion and tier questions for a caller.
type StatusResolver interface {
	SystemStatus(ctx context.Context, userID uuid.UUID, isOperator bool) (*notices.SystemStatus, error)
	Resolve(ctx context.Context, userID uuid.UUID, isOperator bool) (status.Resolution, error)
}

// ListRecentNotices returns the passive feed, newest first.
func ListRecentNotices(svc notices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notices service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", notices.DefaultRecentLimit, 1, notices.MaxRecentLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListRecent(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// NoticeSystemStatus reports the active lock and promotion for the caller.
func NoticeSystemStatus(resolver StatusResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "status resolver unavailable"))
			return
		}

		caller, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		result, err := resolver.SystemStatus(r.Context(), caller.UserID, caller.IsOperator)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UnreadPopups lists forced notices the caller has not read yet.
func UnreadPopups(svc notices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notices service unavailable"))
			return
		}

		caller, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		items, err := svc.UnreadPopups(r.Context(), caller.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// NoticeResolution returns the single display tier for the caller.
func NoticeResolution(resolver StatusResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "status resolver unavailable"))
			return
		}

		caller, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		resolution, err := resolver.Resolve(r.Context(), caller.UserID, caller.IsOperator)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resolution)
	}
}

// MarkNoticeRead records that the caller has read a notice. Repeats succeed.
func MarkNoticeRead(svc notices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notices service unavailable"))
			return
		}

		caller, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		noticeID, err := validators.ParsePathID(r, "noticeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithNoticeID(ctx, noticeID)
		}

		if err := svc.MarkRead(ctx, caller.UserID, noticeID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}
