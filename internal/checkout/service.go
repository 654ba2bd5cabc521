// Package checkout creates hosted payment sessions for the landing page.
package checkout

import (
	"context"
	"errors"
	"strings"

	stripego "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/punchline/internal/config"
	"github.com/smallbiznis/punchline/internal/metrics"
)

var ErrNotConfigured = errors.New("checkout_not_configured")

type Service interface {
	// CreateSession opens a hosted checkout session in the visitor's
	// language and returns the redirect URL.
	CreateSession(ctx context.Context, lang string) (string, error)
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Cfg     config.Config
	Funnel  *config.FunnelConfigHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type service struct {
	log     *zap.Logger
	cfg     config.Config
	funnel  *config.FunnelConfigHolder
	metrics *metrics.Metrics

	create func(params *stripego.CheckoutSessionParams) (*stripego.CheckoutSession, error)
}

func NewService(p Params) Service {
	stripego.Key = p.Cfg.StripeSecretKey
	return &service{
		log:     p.Log.Named("checkout.service"),
		cfg:     p.Cfg,
		funnel:  p.Funnel,
		metrics: p.Metrics,
		create:  session.New,
	}
}

func (s *service) CreateSession(ctx context.Context, lang string) (string, error) {
	if strings.TrimSpace(s.cfg.StripeSecretKey) == "" {
		return "", ErrNotConfigured
	}

	funnel := s.funnel.Get()
	lang = normalizeLanguage(lang, funnel)

	params := &stripego.CheckoutSessionParams{
		Mode: stripego.String(string(stripego.CheckoutSessionModePayment)),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{
				PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripego.String(funnel.Currency),
					UnitAmount: stripego.Int64(funnel.PriceCents),
					ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripego.String(funnel.ProductName),
					},
				},
				Quantity: stripego.Int64(1),
			},
		},
		AutomaticTax: &stripego.CheckoutSessionAutomaticTaxParams{
			Enabled: stripego.Bool(true),
		},
		TaxIDCollection: &stripego.CheckoutSessionTaxIDCollectionParams{
			Enabled: stripego.Bool(true),
		},
		BillingAddressCollection: stripego.String(string(stripego.CheckoutSessionBillingAddressCollectionRequired)),
		Locale:                   stripego.String(lang),
		SuccessURL:               stripego.String(s.cfg.BaseURL + "/thanks?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:                stripego.String(s.cfg.BaseURL + "/cancel"),
	}
	params.Context = ctx

	sess, err := s.create(params)
	if err != nil {
		s.metrics.CountCheckout("error")
		s.log.Error("checkout session create failed", zap.String("lang", lang), zap.Error(err))
		return "", err
	}

	s.metrics.CountCheckout("created")
	s.log.Info("checkout session created",
		zap.String("session_id", sess.ID),
		zap.String("lang", lang))
	return sess.URL, nil
}

// normalizeLanguage clamps the requested language to the enabled set,
// falling back to the configured default.
func normalizeLanguage(lang string, funnel config.FunnelConfig) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if base, _, ok := strings.Cut(lang, "-"); ok {
		lang = base
	}
	for _, enabled := range funnel.Languages {
		if lang == enabled {
			return lang
		}
	}
	return funnel.DefaultLanguage
}
