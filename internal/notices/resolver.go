package notices

import (
	"context"

	"github.com/angelmondragon/noticecast/pkg/db/models"
	"github.com/angelmondragon/noticecast/pkg/enums"
	pkgerrors "github.com/angelmondragon/noticecast/pkg/errors"
	"github.com/angelmondragon/noticecast/pkg/status"
	"github.com/google/uuid"
)

// SystemStatus is the lock and promotion state for one caller. Promo is nil
// whenever Locked is set.
type SystemStatus struct {
	Locked *models.Notice `json:"locked"`
	Promo  *models.Notice `json:"promo"`
}

type snapshotStore interface {
	LatestOfCategory(ctx context.Context, category enums.NoticeCategory) (*models.Notice, error)
	UnreadForcedPopups(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notice, error)
}

// Resolver snapshots the store and runs status resolution for a caller.
type Resolver struct {
	store snapshotStore
}

// NewResolver builds a resolver over the given store handle.
func NewResolver(store snapshotStore) (*Resolver, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notices repository required")
	}
	return &Resolver{store: store}, nil
}

// Snapshot reads tiers in priority order and stops at the first tier that
// matches, so lower tiers stay empty.
func (r *Resolver) Snapshot(ctx context.Context, userID uuid.UUID) (status.Snapshot, error) {
	return r.snapshot(ctx, userID, 0)
}

func (r *Resolver) snapshot(ctx context.Context, userID uuid.UUID, popupLimit int) (status.Snapshot, error) {
	urgent, err := r.store.LatestOfCategory(ctx, enums.NoticeCategoryUrgent)
	if err != nil {
		return status.Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load urgent notice")
	}
	if urgent != nil {
		return status.Snapshot{Urgent: urgent}, nil
	}

	promo, err := r.store.LatestOfCategory(ctx, enums.NoticeCategoryPromo)
	if err != nil {
		return status.Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo notice")
	}
	if promo != nil {
		return status.Snapshot{Promo: promo}, nil
	}

	popups, err := r.store.UnreadForcedPopups(ctx, userID, popupLimit)
	if err != nil {
		return status.Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unread popups")
	}
	return status.Snapshot{UnreadPopups: popups}, nil
}

// SystemStatus returns the lock and promotion for a caller. Operators are
// exempt and always get an empty status without touching the store.
func (r *Resolver) SystemStatus(ctx context.Context, userID uuid.UUID, isOperator bool) (*SystemStatus, error) {
	if isOperator {
		return &SystemStatus{}, nil
	}

	urgent, err := r.store.LatestOfCategory(ctx, enums.NoticeCategoryUrgent)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load urgent notice")
	}
	if urgent != nil {
		return &SystemStatus{Locked: urgent}, nil
	}

	promo, err := r.store.LatestOfCategory(ctx, enums.NoticeCategoryPromo)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo notice")
	}
	return &SystemStatus{Promo: promo}, nil
}

// Resolve runs the full tier decision for a caller. The server holds no dedup
// state, so only store read marks suppress popups.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, isOperator bool) (status.Resolution, error) {
	if isOperator {
		return status.Idle, nil
	}
	snap, err := r.snapshot(ctx, userID, 1)
	if err != nil {
		return status.Resolution{}, err
	}
	return status.Resolve(snap, nil), nil
}
