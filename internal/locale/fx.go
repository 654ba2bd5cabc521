package locale

import (
	"os"

	"github.com/smallbiznis/punchline/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("locale",
	fx.Provide(newFromEnv),
)

func newFromEnv(log *zap.Logger, funnel *config.FunnelConfigHolder) (*Service, error) {
	dir := os.Getenv("LOCALES_DIR")
	if dir == "" {
		dir = "locales"
	}
	return NewService(log, funnel, dir)
}
