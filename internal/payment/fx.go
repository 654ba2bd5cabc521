package payment

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/smallbiznis/punchline/internal/clock"
	"github.com/smallbiznis/punchline/internal/config"
	"github.com/smallbiznis/punchline/internal/payment/domain"
	"github.com/smallbiznis/punchline/internal/payment/repository"
	"github.com/smallbiznis/punchline/internal/payment/service"
	"github.com/smallbiznis/punchline/internal/payment/stripe"
)

var Module = fx.Module("payment",
	fx.Provide(repository.NewRepository),
	fx.Provide(newStripeAdapter),
	fx.Provide(asVerifier),
	fx.Provide(asParser),
	fx.Provide(service.New),
	fx.Invoke(migrate),
)

func newStripeAdapter(cfg config.Config, clk clock.Clock) (*stripe.Adapter, error) {
	return stripe.NewAdapter(cfg.StripeWebhookSecret, clk)
}

func asVerifier(a *stripe.Adapter) domain.Verifier { return a }

func asParser(a *stripe.Adapter) domain.Parser { return a }

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.ProcessedEvent{})
}
