package retention

import (
	"context"
	"time"

	"github.com/smallbiznis/punchline/internal/analytics/domain"
	"github.com/smallbiznis/punchline/internal/clock"
	"github.com/smallbiznis/punchline/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config controls how often the purge runs.
type Config struct {
	RunInterval time.Duration
}

func DefaultConfig() Config {
	return Config{RunInterval: time.Hour}
}

func (c Config) withDefaults() Config {
	if c.RunInterval <= 0 {
		c.RunInterval = DefaultConfig().RunInterval
	}
	return c
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Repo   domain.Repository
	Clock  clock.Clock
	Funnel *config.FunnelConfigHolder
	Config Config `optional:"true"`
}

// Worker deletes pageview rows older than the configured retention
// window. The table is append-only otherwise; this is the only delete.
type Worker struct {
	log    *zap.Logger
	repo   domain.Repository
	clock  clock.Clock
	funnel *config.FunnelConfigHolder
	cfg    Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		log:    p.Log.Named("analytics.retention"),
		repo:   p.Repo,
		clock:  p.Clock,
		funnel: p.Funnel,
		cfg:    p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("retention purge failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce(ctx context.Context) error {
	days := w.funnel.Get().RetentionDays
	cutoff := w.clock.Now().AddDate(0, 0, -days)

	purged, err := w.repo.PurgeBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		w.log.Info("purged pageviews",
			zap.Int64("rows", purged),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}
