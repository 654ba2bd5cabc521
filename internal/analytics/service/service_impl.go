package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/punchline/internal/analytics/classify"
	"github.com/smallbiznis/punchline/internal/analytics/domain"
	"github.com/smallbiznis/punchline/internal/clock"
	"github.com/smallbiznis/punchline/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Repository domain.Repository
	GenID      *snowflake.Node
	Clock      clock.Clock
	Cfg        config.Config
}

type service struct {
	log     *zap.Logger
	repo    domain.Repository
	genID   *snowflake.Node
	clock   clock.Clock
	ownHost string
}

func NewService(p Params) domain.Service {
	return &service{
		log:     p.Log.Named("analytics"),
		repo:    p.Repository,
		genID:   p.GenID,
		clock:   p.Clock,
		ownHost: hostOf(p.Cfg.BaseURL),
	}
}

func (s *service) Record(ctx context.Context, hit domain.Hit) error {
	occurred := hit.OccurredAt
	if occurred.IsZero() {
		occurred = s.clock.Now()
	}

	view := &domain.Pageview{
		ID:         s.genID.Generate(),
		OccurredAt: occurred.UTC(),
		Path:       domain.TruncatePath(hit.Path),
		Referrer:   classify.CleanReferrer(hit.Referrer, s.ownHost),
		IPPrefix:   classify.AnonymizeIP(hit.RemoteIP),
		Country:    strings.ToUpper(strings.TrimSpace(hit.Country)),
		Language:   classify.PrimaryLanguage(hit.AcceptLanguage),
		Browser:    classify.Browser(hit.UserAgent),
		OS:         classify.OS(hit.UserAgent),
		Device:     classify.Device(hit.UserAgent),
		Bot:        classify.IsBot(hit.UserAgent),
	}

	return s.repo.Insert(ctx, view)
}

func (s *service) Stats(ctx context.Context, since time.Time) (*domain.Stats, error) {
	total, err := s.repo.CountSince(ctx, since, false)
	if err != nil {
		return nil, err
	}
	bots, err := s.repo.CountSince(ctx, since, true)
	if err != nil {
		return nil, err
	}
	perDay, err := s.repo.PerDay(ctx, since)
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{
		TotalViews: total,
		BotViews:   bots,
		PerDay:     perDay,
	}

	buckets := []struct {
		column string
		target *[]domain.BucketCount
	}{
		{"path", &stats.TopPages},
		{"country", &stats.Countries},
		{"language", &stats.Languages},
		{"browser", &stats.Browsers},
		{"os", &stats.Systems},
		{"device", &stats.Devices},
		{"referrer", &stats.Referrers},
	}
	for _, b := range buckets {
		rows, err := s.repo.TopBuckets(ctx, b.column, since, 10)
		if err != nil {
			return nil, err
		}
		*b.target = rows
	}

	return stats, nil
}

func hostOf(baseURL string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(baseURL, "https://"), "http://")
	if idx := strings.IndexAny(trimmed, "/:"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.ToLower(trimmed)
}
