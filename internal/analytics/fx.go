package analytics

import (
	"context"

	"github.com/smallbiznis/punchline/internal/analytics/domain"
	"github.com/smallbiznis/punchline/internal/analytics/repository"
	"github.com/smallbiznis/punchline/internal/analytics/retention"
	"github.com/smallbiznis/punchline/internal/analytics/service"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("analytics",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(retention.NewWorker),
	fx.Invoke(migrate),
	fx.Invoke(runRetention),
)

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Pageview{})
}

func runRetention(lc fx.Lifecycle, worker *retention.Worker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			runCtx, cancel := context.WithCancel(context.Background())

			go worker.RunForever(runCtx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
