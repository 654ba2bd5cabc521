package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/punchline/internal/clock"
	"github.com/smallbiznis/punchline/internal/config"
	invoicingdomain "github.com/smallbiznis/punchline/internal/invoicing/domain"
	"github.com/smallbiznis/punchline/internal/metrics"
	"github.com/smallbiznis/punchline/internal/payment/domain"
	"github.com/smallbiznis/punchline/internal/providers/email"
	"github.com/smallbiznis/punchline/internal/tax"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Repo      domain.Repository
	Verifier  domain.Verifier
	Parser    domain.Parser
	Invoicing invoicingdomain.Service
	Email     email.Provider
	Funnel    *config.FunnelConfigHolder
	Cfg       config.Config
	Metrics   *metrics.Metrics `optional:"true"`
	GenID     *snowflake.Node
	Clock     clock.Clock
}

type service struct {
	log       *zap.Logger
	repo      domain.Repository
	verifier  domain.Verifier
	parser    domain.Parser
	invoicing invoicingdomain.Service
	email     email.Provider
	funnel    *config.FunnelConfigHolder
	cfg       config.Config
	metrics   *metrics.Metrics
	genID     *snowflake.Node
	clock     clock.Clock
}

func New(p Params) domain.Service {
	return &service{
		log:       p.Log.Named("payment.service"),
		repo:      p.Repo,
		verifier:  p.Verifier,
		parser:    p.Parser,
		invoicing: p.Invoicing,
		email:     p.Email,
		funnel:    p.Funnel,
		cfg:       p.Cfg,
		metrics:   p.Metrics,
		genID:     p.GenID,
		clock:     p.Clock,
	}
}

// IngestWebhook runs the full pipeline for one delivery: signature
// verification, payload parsing, replay dedup, tax reconciliation,
// persistence, bookkeeping mirror and notification mail.
//
// Failures in the bookkeeping mirror or mail delivery are reported to
// the operator but do not fail the ingest: the money has already moved,
// so the delivery must be acknowledged rather than retried forever.
func (s *service) IngestWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	if err := s.verifier.Verify(ctx, payload, headers); err != nil {
		s.metrics.CountWebhook("invalid_signature")
		return err
	}

	event, err := s.parser.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			s.metrics.CountWebhook("ignored")
			return nil
		}
		s.metrics.CountWebhook("invalid_payload")
		return err
	}

	exists, err := s.repo.Exists(ctx, event.ProviderEventID)
	if err != nil {
		return err
	}
	if exists {
		s.log.Info("duplicate webhook delivery",
			zap.String("event_id", event.ProviderEventID),
			zap.String("session_id", event.SessionID))
		s.metrics.CountWebhook("duplicate")
		return domain.ErrEventAlreadyProcessed
	}

	funnel := s.funnel.Get()
	mapping := tax.NewMapping(funnel.Tax)

	result, err := tax.Reconcile(tax.ReconcileInput{
		TotalCents:        event.AmountTotalCents,
		Currency:          event.Currency,
		RatePercent:       event.TaxRatePercent,
		Inclusive:         event.TaxInclusive,
		CollectedTaxCents: event.AmountTaxCents,
		Country:           event.Country,
	}, mapping)
	if err != nil {
		// A rate without a bookkeeping mapping is a configuration gap.
		// Alert the operator and let the provider redeliver once the
		// table is fixed.
		s.log.Error("tax reconciliation failed",
			zap.String("event_id", event.ProviderEventID),
			zap.String("country", event.Country),
			zap.Float64("rate_percent", event.TaxRatePercent),
			zap.Error(err))
		s.metrics.CountWebhook("unmapped_rate")
		s.alert(ctx, "Tax reconciliation failed",
			fmt.Sprintf("Event %s (session %s): %v. Total %d %s, rate %.2f%%, country %q. The delivery will be retried by the provider.",
				event.ProviderEventID, event.SessionID, err,
				event.AmountTotalCents, event.Currency, event.TaxRatePercent, event.Country))
		return err
	}

	record := &domain.ProcessedEvent{
		ID:              s.genID.Generate(),
		ProviderEventID: event.ProviderEventID,
		SessionID:       event.SessionID,
		Currency:        event.Currency,
		TotalCents:      event.AmountTotalCents,
		NetCents:        result.NetCents,
		TaxCents:        result.TaxCents,
		RatePercent:     result.RatePercent,
		Regime:          string(result.Regime),
		BookkeepingCode: result.BookkeepingCode,
		CustomerEmail:   event.CustomerEmail,
		CustomerName:    event.CustomerName,
		Country:         event.Country,
		VATID:           event.VATID,
		ProcessedAt:     s.clock.Now(),
	}

	invoice, invErr := s.mirrorToBookkeeping(ctx, event, result, funnel)
	if invErr != nil {
		if !errors.Is(invErr, invoicingdomain.ErrNotConfigured) {
			s.log.Error("bookkeeping mirror failed",
				zap.String("event_id", event.ProviderEventID),
				zap.Error(invErr))
			s.alert(ctx, "Bookkeeping mirror failed",
				fmt.Sprintf("Event %s (session %s) was paid and recorded locally, but the bookkeeping invoice could not be created: %v",
					event.ProviderEventID, event.SessionID, invErr))
		}
	} else {
		record.InvoiceID = invoice.ID
		record.InvoiceNumber = invoice.Number
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		return err
	}
	s.metrics.CountWebhook("processed")

	s.log.Info("payment processed",
		zap.String("event_id", event.ProviderEventID),
		zap.String("session_id", event.SessionID),
		zap.Int64("total_cents", record.TotalCents),
		zap.Int64("net_cents", record.NetCents),
		zap.Int64("tax_cents", record.TaxCents),
		zap.String("regime", record.Regime),
		zap.String("country", record.Country))

	s.sendConfirmation(ctx, event, funnel)
	return nil
}

func (s *service) mirrorToBookkeeping(ctx context.Context, event *domain.CheckoutEvent, result tax.Result, funnel config.FunnelConfig) (invoicingdomain.Invoice, error) {
	contactID, err := s.invoicing.EnsureContact(ctx, invoicingdomain.Contact{
		Name:    event.CustomerName,
		Email:   event.CustomerEmail,
		Country: event.Country,
		VATID:   event.VATID,
	})
	if err != nil {
		return invoicingdomain.Invoice{}, err
	}

	invoice, err := s.invoicing.CreateInvoice(ctx, invoicingdomain.InvoiceRequest{
		ContactID:     contactID,
		Reference:     event.SessionID,
		Description:   funnel.ProductName,
		Currency:      event.Currency,
		NetCents:      result.NetCents,
		TaxCents:      result.TaxCents,
		TaxRate:       result.RatePercent,
		TaxCode:       result.BookkeepingCode,
		TaxInclusive:  event.TaxInclusive,
		ReverseCharge: result.Regime == tax.RegimeReverseCharge,
	})
	if err != nil {
		return invoicingdomain.Invoice{}, err
	}

	if err := s.invoicing.MarkPaid(ctx, contactID, invoice.ID, event.AmountTotalCents); err != nil {
		return invoicingdomain.Invoice{}, err
	}
	return invoice, nil
}

func (s *service) sendConfirmation(ctx context.Context, event *domain.CheckoutEvent, funnel config.FunnelConfig) {
	if strings.TrimSpace(event.CustomerEmail) == "" {
		return
	}
	subject := fmt.Sprintf("Your %s is on its way", funnel.ProductName)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>thanks a lot! Your payment of %s for %q went through on %s.</p><p>The receipt is attached to your order page.</p>",
		htmlName(event.CustomerName),
		formatAmount(event.AmountTotalCents, event.Currency),
		funnel.ProductName,
		s.clock.Now().Format("2006-01-02"))
	if err := s.email.Send(ctx, []string{event.CustomerEmail}, subject, body); err != nil {
		s.log.Warn("confirmation mail failed",
			zap.String("session_id", event.SessionID),
			zap.Error(err))
		s.alert(ctx, "Confirmation mail failed",
			fmt.Sprintf("Session %s: confirmation to %s could not be sent: %v",
				event.SessionID, event.CustomerEmail, err))
	}
}

func (s *service) alert(ctx context.Context, subject, body string) {
	to := strings.TrimSpace(s.cfg.AlertRecipient)
	if to == "" {
		return
	}
	if err := s.email.Send(ctx, []string{to}, "[punchline] "+subject, "<p>"+body+"</p>"); err != nil {
		s.log.Error("alert mail failed", zap.String("subject", subject), zap.Error(err))
	}
}

func htmlName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "there"
	}
	r := strings.NewReplacer("<", "&lt;", ">", "&gt;", "&", "&amp;")
	return r.Replace(name)
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, strings.ToUpper(currency))
}
