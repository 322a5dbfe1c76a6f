package notices

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/noticecast/internal/broadcast"
	"github.com/angelmondragon/noticecast/pkg/db/models"
	"github.com/angelmondragon/noticecast/pkg/enums"
	pkgerrors "github.com/angelmondragon/noticecast/pkg/errors"
	"github.com/angelmondragon/noticecast/pkg/logger"
	"github.com/angelmondragon/noticecast/pkg/pagination"
	"github.com/angelmondragon/noticecast/pkg/types"
	"github.com/google/uuid"
)

const (
	// DefaultRecentLimit is the passive feed size when no limit is requested.
	DefaultRecentLimit = 10
	// MaxRecentLimit caps the passive feed.
	MaxRecentLimit = 100
	// MaxTitleLength bounds notice titles in characters.
	MaxTitleLength = 200
)

// Service owns notice creation, deletion and read tracking.
type Service interface {
	Create(ctx context.Context, input CreateNoticeInput) (*models.Notice, error)
	Delete(ctx context.Context, id int64, actorID uuid.UUID) (DeleteResult, error)
	ListRecent(ctx context.Context, limit int) ([]models.Notice, error)
	History(ctx context.Context, params pagination.Params) (*HistoryResult, error)
	MarkRead(ctx context.Context, userID uuid.UUID, noticeID int64) error
	UnreadPopups(ctx context.Context, userID uuid.UUID) ([]models.Notice, error)
}

// CreateNoticeInput carries an operator's create request. Category and media
// kind are raw strings so unknown values are rejected here.
type CreateNoticeInput struct {
	Title         string
	Body          string
	Category      string
	ForcedPopup   bool
	MediaURL      string
	MediaKind     string
	MediaMimeType string
	ActorID       uuid.UUID
}

// DeleteResult reports whether a notice was removed. Deleting an absent id
// succeeds with Deleted=false.
type DeleteResult struct {
	Deleted bool `json:"deleted"`
}

// HistoryResult wraps one page of the operator history.
type HistoryResult = types.Page[models.Notice]

// ServiceParams wire the notice service.
type ServiceParams struct {
	Repo      Repository
	Publisher broadcast.Publisher
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      Repository
	publisher broadcast.Publisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires notice dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notices repository required")
	}
	if params.Publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "broadcast publisher required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		publisher: params.Publisher,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateNoticeInput) (*models.Notice, error) {
	notice, err := buildNotice(input)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, notice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notice")
	}

	logCtx := s.logg.WithNoticeID(ctx, notice.ID)
	logCtx = s.logg.WithField(logCtx, "category", notice.Category.String())
	s.logg.Info(logCtx, "notice created")

	s.publisher.Publish(ctx, broadcast.NoticeCreated(*notice, input.ActorID, s.now()))
	return notice, nil
}

func (s *service) Delete(ctx context.Context, id int64, actorID uuid.UUID) (DeleteResult, error) {
	if id <= 0 {
		return DeleteResult{}, pkgerrors.New(pkgerrors.CodeValidation, "notice id must be positive")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return DeleteResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notice")
	}

	logCtx := s.logg.WithNoticeID(ctx, id)
	if !deleted {
		s.logg.Info(logCtx, "notice already absent, nothing to delete")
		return DeleteResult{Deleted: false}, nil
	}

	s.logg.Info(logCtx, "notice deleted")
	s.publisher.Publish(ctx, broadcast.SystemChanged(actorID, s.now()))
	return DeleteResult{Deleted: true}, nil
}

func (s *service) ListRecent(ctx context.Context, limit int) ([]models.Notice, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}

	rows, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent notices")
	}
	if rows == nil {
		rows = []models.Notice{}
	}
	return rows, nil
}

func (s *service) History(ctx context.Context, params pagination.Params) (*HistoryResult, error) {
	query := ListPageParams{Limit: pagination.NormalizeLimit(params.Limit)}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListPage(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notice history")
	}
	if rows == nil {
		rows = []models.Notice{}
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &HistoryResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) MarkRead(ctx context.Context, userID uuid.UUID, noticeID int64) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if noticeID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "notice id must be positive")
	}

	exists, err := s.repo.Exists(ctx, noticeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup notice")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notice not found")
	}

	result, err := s.repo.MarkRead(ctx, userID, noticeID)
	if err != nil {
		if errors.Is(err, ErrNoticeMissing) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notice not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notice read")
	}

	if !result.Inserted {
		logCtx := s.logg.WithNoticeID(ctx, noticeID)
		s.logg.Debug(s.logg.WithUserID(logCtx, userID.String()), "notice already marked read")
	}
	return nil
}

func (s *service) UnreadPopups(ctx context.Context, userID uuid.UUID) ([]models.Notice, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.UnreadForcedPopups(ctx, userID, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unread popups")
	}
	if rows == nil {
		rows = []models.Notice{}
	}
	return rows, nil
}

func buildNotice(input CreateNoticeInput) (*models.Notice, error) {
	details := map[string]string{}

	title := strings.TrimSpace(input.Title)
	switch {
	case title == "":
		details["title"] = "is required"
	case utf8.RuneCountInString(title) > MaxTitleLength:
		details["title"] = fmt.Sprintf("must be at most %d characters", MaxTitleLength)
	}

	body := strings.TrimSpace(input.Body)
	if body == "" {
		details["body"] = "is required"
	}

	var category enums.NoticeCategory
	if strings.TrimSpace(input.Category) == "" {
		details["category"] = "is required"
	} else if parsed, err := enums.ParseNoticeCategory(input.Category); err != nil {
		details["category"] = "must be one of INFO SUCCESS WARNING URGENT PROMO"
	} else {
		category = parsed
	}

	mediaURL, mediaKind := resolveMedia(input, details)

	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notice").WithDetails(details)
	}

	return &models.Notice{
		Title:       title,
		Body:        body,
		Category:    category,
		MediaURL:    mediaURL,
		MediaKind:   mediaKind,
		ForcedPopup: input.ForcedPopup,
	}, nil
}

func resolveMedia(input CreateNoticeInput, details map[string]string) (*string, *enums.MediaKind) {
	rawURL := strings.TrimSpace(input.MediaURL)
	rawKind := strings.TrimSpace(input.MediaKind)
	mime := strings.TrimSpace(input.MediaMimeType)

	if rawURL == "" {
		if rawKind != "" || mime != "" {
			details["mediaUrl"] = "is required when a media kind is given"
		}
		return nil, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		details["mediaUrl"] = "must be an absolute http(s) url"
	}

	var kind enums.MediaKind
	switch {
	case rawKind != "":
		parsedKind, err := enums.ParseMediaKind(rawKind)
		if err != nil {
			details["mediaKind"] = "must be one of IMAGE VIDEO"
		}
		kind = parsedKind
	case mime != "":
		kind = enums.MediaKindFromMIME(mime)
	default:
		details["mediaKind"] = "is required when a media url is given"
	}

	return &rawURL, &kind
}
