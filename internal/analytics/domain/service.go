package domain

import (
	"context"
	"time"
)

// Service records pageviews and aggregates them for the admin dashboard.
type Service interface {
	Record(ctx context.Context, hit Hit) error
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

// Repository is the append-only pageview store.
type Repository interface {
	Insert(ctx context.Context, view *Pageview) error
	CountSince(ctx context.Context, since time.Time, botsOnly bool) (int64, error)
	PerDay(ctx context.Context, since time.Time) ([]DayCount, error)
	TopBuckets(ctx context.Context, column string, since time.Time, limit int) ([]BucketCount, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
