package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/punchline/internal/analytics/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

// bucketColumns whitelists aggregation targets; column names must never
// come from request input.
var bucketColumns = map[string]bool{
	"path":     true,
	"country":  true,
	"language": true,
	"browser":  true,
	"os":       true,
	"device":   true,
	"referrer": true,
}

func (r *repository) Insert(ctx context.Context, view *domain.Pageview) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO pageviews (id, occurred_at, path, referrer, ip_prefix, country, language, browser, os, device, bot)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		view.ID,
		view.OccurredAt,
		view.Path,
		view.Referrer,
		view.IPPrefix,
		view.Country,
		view.Language,
		view.Browser,
		view.OS,
		view.Device,
		view.Bot,
	).Error
}

func (r *repository) CountSince(ctx context.Context, since time.Time, botsOnly bool) (int64, error) {
	var count int64
	stmt := r.db.WithContext(ctx).
		Model(&domain.Pageview{}).
		Where("occurred_at >= ?", since)
	if botsOnly {
		stmt = stmt.Where("bot = ?", true)
	}
	if err := stmt.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) PerDay(ctx context.Context, since time.Time) ([]domain.DayCount, error) {
	var rows []domain.DayCount
	err := r.db.WithContext(ctx).Raw(
		`SELECT date(occurred_at) AS day, COUNT(*) AS count
		 FROM pageviews
		 WHERE occurred_at >= ? AND bot = false
		 GROUP BY date(occurred_at)
		 ORDER BY day ASC`,
		since,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) TopBuckets(ctx context.Context, column string, since time.Time, limit int) ([]domain.BucketCount, error) {
	if !bucketColumns[column] {
		return nil, fmt.Errorf("unsupported bucket column %q", column)
	}
	if limit <= 0 {
		limit = 10
	}

	var rows []domain.BucketCount
	err := r.db.WithContext(ctx).Raw(
		fmt.Sprintf(
			`SELECT %s AS bucket, COUNT(*) AS count
			 FROM pageviews
			 WHERE occurred_at >= ? AND bot = false AND %s <> ''
			 GROUP BY %s
			 ORDER BY count DESC
			 LIMIT ?`,
			column, column, column,
		),
		since,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Exec(
		`DELETE FROM pageviews WHERE occurred_at < ?`,
		cutoff,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
