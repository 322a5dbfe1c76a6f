package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/noticecast/internal/broadcast"
	"github.com/angelmondragon/noticecast/pkg/enums"
	"github.com/angelmondragon/noticecast/pkg/logger"
	"github.com/angelmondragon/noticecast/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const defaultPassiveRetentionDays = 90

// NoticeRetentionJobParams configure the passive notice retention job.
type NoticeRetentionJobParams struct {
	Logger     *logger.Logger
	Repository noticeRetentionRepo
	Publisher  broadcast.Publisher
	Metrics    *metrics.CronJobMetrics
	Retention  int
}

type noticeRetentionRepo interface {
	DeletePassiveOlderThan(ctx context.Context, category enums.NoticeCategory, cutoff time.Time) (int64, error)
}

// NewNoticeRetentionJob removes passive notices past the retention window.
// URGENT, PROMO and forced notices are never touched.
func NewNoticeRetentionJob(params NoticeRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notices repository required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("broadcast publisher required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultPassiveRetentionDays
	}
	return &noticeRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		publisher: params.Publisher,
		metrics:   params.Metrics,
		retention: retention,
		now:       time.Now,
	}, nil
}

type noticeRetentionJob struct {
	logg      *logger.Logger
	repo      noticeRetentionRepo
	publisher broadcast.Publisher
	metrics   *metrics.CronJobMetrics
	retention int
	now       func() time.Time
}

func (j *noticeRetentionJob) Name() string { return "notice-retention" }

func (j *noticeRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-time.Duration(j.retention) * 24 * time.Hour)

	var (
		deleted int64
		errs    error
	)
	for _, category := range enums.PassiveNoticeCategories {
		rows, err := j.repo.DeletePassiveOlderThan(ctx, category, cutoff)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", category, err))
			continue
		}
		j.metrics.AddRemoved(j.Name(), category.String(), rows)
		deleted += rows
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	if deleted > 0 {
		j.publisher.Publish(ctx, broadcast.SystemChanged(uuid.Nil, now))
	}
	if errs != nil {
		return fmt.Errorf("notice retention: %w", errs)
	}
	j.logg.Info(logCtx, "notice retention complete")
	return nil
}
