package controllers

import (
	"net/http"

	"github.com/angelmondragon/noticecast/api/responses"
	"github.com/angelmondragon/noticecast/api/validators"
	"github.com/angelmondragon/noticecast/internal/notices"
	pkgerrors "github.com/angelmondragon/noticecast/pkg/errors"
	"github.com/angelmondragon/noticecast/pkg/logger"
	"github.com/angelmondragon/noticecast/pkg/pagination"
)

type createNoticeRequest struct {
	Title         string `json:"title" validate:"required,notblank,max=200"`
	Body          string `json:"body" validate:"required,notblank"`
	Category      string `json:"category" validate:"required,oneof=INFO SUCCESS WARNING URGENT PROMO"`
	ForcedPopup   bool   `json:"forcedPopup"`
	MediaURL      string `json:"mediaUrl" validate:"omitempty,url"`
	MediaKind     string `json:"mediaKind" validate:"omitempty,oneof=IMAGE VIDEO"`
	MediaMimeType string `json:"mediaMimeType" validate:"omitempty,max=255"`
}

// AdminCreateNotice persists a notice and broadcasts it.
func AdminCreateNotice(svc notices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notices service unavailable"))
			return
		}

		caller, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		var req createNoticeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		notice, err := svc.Create(r.Context(), notices.CreateNoticeInput{
			Title:         req.Title,
			Body:          req.Body,
			Category:      req.Category,
			ForcedPopup:   req.ForcedPopup,
			MediaURL:      req.MediaURL,
			MediaKind:     req.MediaKind,
			MediaMimeType: req.MediaMimeType,
			ActorID:       caller.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, notice)
	}
}

// AdminListNotices pages through every notice, newest first.
func AdminListNotices(svc notices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notices service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cursor, err := validators.ParseQueryCursor(r, "cursor")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.History(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminDeleteNotice removes a notice. Absent ids report deleted=false.
func AdminDeleteNotice(svc notices.Service, logg *logger.Logger) http.HandlerFunc {
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

		result, err := svc.Delete(ctx, noticeID, caller.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
