package notices

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgdb "github.com/angelmondragon/noticecast/pkg/db"
	"github.com/angelmondragon/noticecast/pkg/db/models"
	"github.com/angelmondragon/noticecast/pkg/enums"
	"github.com/angelmondragon/noticecast/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoticeMissing is returned by MarkRead when the referenced notice does not exist.
var ErrNoticeMissing = errors.New("notice missing")

var forcedCategories = []enums.NoticeCategory{
	enums.NoticeCategoryUrgent,
	enums.NoticeCategoryPromo,
}

// Repository exposes persistence helpers for notices and read marks.
type Repository interface {
	Create(ctx context.Context, notice *models.Notice) error
	Delete(ctx context.Context, id int64) (bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]models.Notice, error)
	ListPage(ctx context.Context, params ListPageParams) ([]models.Notice, *pagination.Cursor, error)
	LatestOfCategory(ctx context.Context, category enums.NoticeCategory) (*models.Notice, error)
	MarkRead(ctx context.Context, userID uuid.UUID, noticeID int64) (MarkReadResult, error)
	UnreadForcedPopups(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notice, error)
	DeletePassiveOlderThan(ctx context.Context, category enums.NoticeCategory, cutoff time.Time) (int64, error)
}

// ListPageParams select one page of the operator history.
type ListPageParams struct {
	Limit  int
	Cursor *pagination.Cursor
}

// MarkReadResult reports whether a new read mark row was written. Inserted is
// false when the mark already existed.
type MarkReadResult struct {
	Inserted bool
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notices repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}


// Create inserts the notice. A zero CreatedAt is left to the column default
// and read back, so ordering follows the database clock.
func (r *repositoryImpl) Create(ctx context.Context, notice *models.Notice) error {
	if !notice.CreatedAt.IsZero() {
		return r.db.WithContext(ctx).Create(notice).Error
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("created_at").Create(notice).Error; err != nil {
			return err
		}
		var stamps []time.Time
		if err := tx.Model(&models.Notice{}).
			Where("id = ?", notice.ID).
			Pluck("created_at", &stamps).Error; err != nil {
			return err
		}
		if len(stamps) != 1 {
			return fmt.Errorf("notice %d missing after insert", notice.ID)
		}
		notice.CreatedAt = stamps[0]
		return nil
	})
}

// Delete hard-deletes the notice and its read marks. It reports false when no
// notice had the id.
func (r *repositoryImpl) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("notice_id = ?", id).Delete(&models.ReadMark{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Notice{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *repositoryImpl) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notice{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) ListRecent(ctx context.Context, limit int) ([]models.Notice, error) {
	var rows []models.Notice
	if err := r.newest(ctx).Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) ListPage(ctx context.Context, params ListPageParams) ([]models.Notice, *pagination.Cursor, error) {
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.newest(ctx)
	if params.Cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id <= ?))",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Notice
	if err := query.Limit(normalized + 1).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		return rows[:normalized], &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

// LatestOfCategory returns the newest notice of category or nil when none exists.
func (r *repositoryImpl) LatestOfCategory(ctx context.Context, category enums.NoticeCategory) (*models.Notice, error) {
	var rows []models.Notice
	if err := r.newest(ctx).
		Where("category = ?", category).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// MarkRead inserts the read mark and relies on the primary key to collapse
// concurrent duplicates.
func (r *repositoryImpl) MarkRead(ctx context.Context, userID uuid.UUID, noticeID int64) (MarkReadResult, error) {
	mark := models.ReadMark{UserID: userID, NoticeID: noticeID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&mark)
	if result.Error != nil {
		if pkgdb.IsForeignKeyViolation(result.Error, "") {
			return MarkReadResult{}, ErrNoticeMissing
		}
		return MarkReadResult{}, result.Error
	}
	return MarkReadResult{Inserted: result.RowsAffected > 0}, nil
}

// UnreadForcedPopups lists notices that must pop up for userID and have no
// read mark, newest first. A limit <= 0 returns every match.
func (r *repositoryImpl) UnreadForcedPopups(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notice, error) {
	query := r.newest(ctx).
		Where("(forced_popup = ? OR category IN ?)", true, forcedCategories).
		Where("NOT EXISTS (SELECT 1 FROM notice_read_marks rm WHERE rm.notice_id = notices.id AND rm.user_id = ?)", userID)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.Notice
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeletePassiveOlderThan removes non-forced notices of a passive category
// created before cutoff.
func (r *repositoryImpl) DeletePassiveOlderThan(ctx context.Context, category enums.NoticeCategory, cutoff time.Time) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.Notice{}).
			Select("id").
			Where("category = ? AND forced_popup = ? AND created_at < ?", category, false, cutoff)
		if err := tx.Where("notice_id IN (?)", stale).Delete(&models.ReadMark{}).Error; err != nil {
			return err
		}
		result := tx.Where("category = ? AND forced_popup = ? AND created_at < ?", category, false, cutoff).
			Delete(&models.Notice{})
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *repositoryImpl) newest(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Notice{}).
		Order("created_at DESC, id DESC")
}
