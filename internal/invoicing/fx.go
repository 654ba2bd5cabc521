package invoicing

import (
	"github.com/smallbiznis/punchline/internal/clock"
	"github.com/smallbiznis/punchline/internal/config"
	"github.com/smallbiznis/punchline/internal/invoicing/domain"
	"github.com/smallbiznis/punchline/internal/invoicing/zoho"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("invoicing",
	fx.Provide(newFromConfig),
)

func newFromConfig(log *zap.Logger, cfg config.Config, clk clock.Clock) domain.Service {
	if !cfg.Zoho.Enabled {
		return domain.NoOpService{}
	}
	return zoho.NewClient(log, cfg.Zoho, clk)
}
