package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/punchline/internal/clock"
	"github.com/smallbiznis/punchline/internal/config"
	invoicingdomain "github.com/smallbiznis/punchline/internal/invoicing/domain"
	"github.com/smallbiznis/punchline/internal/payment/domain"
)

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	return m.Called(ctx, payload, headers).Error(0)
}

type mockParser struct{ mock.Mock }

func (m *mockParser) Parse(ctx context.Context, payload []byte) (*domain.CheckoutEvent, error) {
	args := m.Called(ctx, payload)
	if v := args.Get(0); v != nil {
		return v.(*domain.CheckoutEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Exists(ctx context.Context, providerEventID string) (bool, error) {
	args := m.Called(ctx, providerEventID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) Insert(ctx context.Context, event *domain.ProcessedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockRepo) FindBySessionID(ctx context.Context, sessionID string) (*domain.ProcessedEvent, error) {
	args := m.Called(ctx, sessionID)
	if v := args.Get(0); v != nil {
		return v.(*domain.ProcessedEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockInvoicing struct{ mock.Mock }

func (m *mockInvoicing) EnsureContact(ctx context.Context, contact invoicingdomain.Contact) (string, error) {
	args := m.Called(ctx, contact)
	return args.String(0), args.Error(1)
}

func (m *mockInvoicing) CreateInvoice(ctx context.Context, req invoicingdomain.InvoiceRequest) (invoicingdomain.Invoice, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(invoicingdomain.Invoice), args.Error(1)
}

func (m *mockInvoicing) MarkPaid(ctx context.Context, contactID, invoiceID string, amountCents int64) error {
	return m.Called(ctx, contactID, invoiceID, amountCents).Error(0)
}

type mockEmail struct{ mock.Mock }

func (m *mockEmail) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	return m.Called(ctx, to, subject, htmlBody).Error(0)
}

type fixture struct {
	verifier  *mockVerifier
	parser    *mockParser
	repo      *mockRepo
	invoicing *mockInvoicing
	email     *mockEmail
	svc       domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		verifier:  &mockVerifier{},
		parser:    &mockParser{},
		repo:      &mockRepo{},
		invoicing: &mockInvoicing{},
		email:     &mockEmail{},
	}
	f.svc = New(Params{
		Log:       zap.NewNop(),
		Repo:      f.repo,
		Verifier:  f.verifier,
		Parser:    f.parser,
		Invoicing: f.invoicing,
		Email:     f.email,
		Funnel:    config.NewStaticFunnelConfigHolder(config.DefaultFunnelConfig()),
		Cfg:       config.Config{AlertRecipient: "ops@example.com"},
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	return f
}

func germanConsumerEvent() *domain.CheckoutEvent {
	return &domain.CheckoutEvent{
		Provider:         "stripe",
		ProviderEventID:  "evt_1",
		SessionID:        "cs_1",
		AmountTotalCents: 599,
		AmountTaxCents:   96,
		Currency:         "eur",
		CustomerEmail:    "buyer@example.com",
		CustomerName:     "Erika Mustermann",
		Country:          "DE",
		TaxRatePercent:   19,
		TaxInclusive:     true,
	}
}

func TestIngestWebhookHappyPath(t *testing.T) {
	f := newFixture(t)
	payload := []byte(`{}`)
	headers := http.Header{}

	f.verifier.On("Verify", mock.Anything, payload, headers).Return(nil)
	f.parser.On("Parse", mock.Anything, payload).Return(germanConsumerEvent(), nil)
	f.repo.On("Exists", mock.Anything, "evt_1").Return(false, nil)
	f.invoicing.On("EnsureContact", mock.Anything, mock.Anything).Return("contact_1", nil)
	f.invoicing.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(req invoicingdomain.InvoiceRequest) bool {
		return req.NetCents == 503 && req.TaxCents == 96 && req.Reference == "cs_1" && !req.ReverseCharge
	})).Return(invoicingdomain.Invoice{ID: "inv_1", Number: "INV-001"}, nil)
	f.invoicing.On("MarkPaid", mock.Anything, "contact_1", "inv_1", int64(599)).Return(nil)
	f.repo.On("Insert", mock.Anything, mock.MatchedBy(func(ev *domain.ProcessedEvent) bool {
		return ev.ProviderEventID == "evt_1" &&
			ev.NetCents == 503 && ev.TaxCents == 96 &&
			ev.NetCents+ev.TaxCents == ev.TotalCents &&
			ev.Regime == "standard" &&
			ev.InvoiceID == "inv_1" && ev.InvoiceNumber == "INV-001"
	})).Return(nil)
	f.email.On("Send", mock.Anything, []string{"buyer@example.com"}, mock.Anything, mock.Anything).Return(nil)

	err := f.svc.IngestWebhook(context.Background(), payload, headers)
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
	f.invoicing.AssertExpectations(t)
	f.email.AssertExpectations(t)
}

func TestIngestWebhookExclusivePricing(t *testing.T) {
	f := newFixture(t)
	// Stripe reports the gross charge even for exclusive pricing: the
	// customer paid 11.90 EUR of which 1.90 EUR was collected tax.
	event := germanConsumerEvent()
	event.AmountTotalCents = 1190
	event.AmountTaxCents = 190
	event.TaxInclusive = false

	f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.parser.On("Parse", mock.Anything, mock.Anything).Return(event, nil)
	f.repo.On("Exists", mock.Anything, "evt_1").Return(false, nil)
	f.invoicing.On("EnsureContact", mock.Anything, mock.Anything).Return("contact_1", nil)
	f.invoicing.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(req invoicingdomain.InvoiceRequest) bool {
		return req.NetCents == 1000 && req.TaxCents == 190
	})).Return(invoicingdomain.Invoice{ID: "inv_3", Number: "INV-003"}, nil)
	f.invoicing.On("MarkPaid", mock.Anything, "contact_1", "inv_3", int64(1190)).Return(nil)
	f.repo.On("Insert", mock.Anything, mock.MatchedBy(func(ev *domain.ProcessedEvent) bool {
		return ev.NetCents == 1000 && ev.TaxCents == 190 && ev.TotalCents == 1190
	})).Return(nil)
	f.email.On("Send", mock.Anything, []string{"buyer@example.com"}, mock.Anything, mock.Anything).Return(nil)

	err := f.svc.IngestWebhook(context.Background(), []byte(`{}`), http.Header{})
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
	f.invoicing.AssertExpectations(t)
}

func TestIngestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(domain.ErrInvalidSignature)

	err := f.svc.IngestWebhook(context.Background(), []byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	f.parser.AssertNotCalled(t, "Parse", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestIngestWebhookIgnoresOtherEventTypes(t *testing.T) {
	f := newFixture(t)
	f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.parser.On("Parse", mock.Anything, mock.Anything).Return(nil, domain.ErrEventIgnored)

	err := f.svc.IngestWebhook(context.Background(), []byte(`{}`), http.Header{})
	assert.NoError(t, err)
	f.repo.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
}

func TestIngestWebhookDeduplicatesReplays(t *testing.T) {
	f := newFixture(t)
	f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.parser.On("Parse", mock.Anything, mock.Anything).Return(germanConsumerEvent(), nil)
	f.repo.On("Exists", mock.Anything, "evt_1").Return(true, nil)

	err := f.svc.IngestWebhook(context.Background(), []byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, domain.ErrEventAlreadyProcessed)
	f.repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	f.invoicing.AssertNotCalled(t, "CreateInvoice", mock.Anything, mock.Anything)
}

func TestIngestWebhookUnmappedRateAlertsAndFails(t *testing.T) {
	f := newFixture(t)
	event := germanConsumerEvent()
	event.TaxRatePercent = 37
	event.AmountTaxCents = 162

	f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.parser.On("Parse", mock.Anything, mock.Anything).Return(event, nil)
	f.repo.On("Exists", mock.Anything, "evt_1").Return(false, nil)
	f.email.On("Send", mock.Anything, []string{"ops@example.com"}, mock.Anything, mock.Anything).Return(nil)

	err := f.svc.IngestWebhook(context.Background(), []byte(`{}`), http.Header{})
	require.Error(t, err)
	f.repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	f.email.AssertExpectations(t)
}

func TestIngestWebhookAcksWhenBookkeepingFails(t *testing.T) {
	f := newFixture(t)
	f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.parser.On("Parse", mock.Anything, mock.Anything).Return(germanConsumerEvent(), nil)
	f.repo.On("Exists", mock.Anything, "evt_1").Return(false, nil)
	f.invoicing.On("EnsureContact", mock.Anything, mock.Anything).Return("", errors.New("remote down"))
	f.repo.On("Insert", mock.Anything, mock.MatchedBy(func(ev *domain.ProcessedEvent) bool {
		return ev.InvoiceID == "" && ev.NetCents == 503
	})).Return(nil)
	f.email.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	err := f.svc.IngestWebhook(context.Background(), []byte(`{}`), http.Header{})
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}

func TestIngestWebhookReverseCharge(t *testing.T) {
	f := newFixture(t)
	event := germanConsumerEvent()
	event.AmountTaxCents = 0
	event.HasTaxID = true
	event.VATID = "DE123456789"

	f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.parser.On("Parse", mock.Anything, mock.Anything).Return(event, nil)
	f.repo.On("Exists", mock.Anything, "evt_1").Return(false, nil)
	f.invoicing.On("EnsureContact", mock.Anything, mock.Anything).Return("contact_1", nil)
	f.invoicing.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(req invoicingdomain.InvoiceRequest) bool {
		return req.ReverseCharge && req.TaxCents == 0 && req.NetCents == 599
	})).Return(invoicingdomain.Invoice{ID: "inv_2", Number: "INV-002"}, nil)
	f.invoicing.On("MarkPaid", mock.Anything, "contact_1", "inv_2", int64(599)).Return(nil)
	f.repo.On("Insert", mock.Anything, mock.MatchedBy(func(ev *domain.ProcessedEvent) bool {
		return ev.Regime == "reverse_charge" && ev.TaxCents == 0 && ev.VATID == "DE123456789"
	})).Return(nil)
	f.email.On("Send", mock.Anything, []string{"buyer@example.com"}, mock.Anything, mock.Anything).Return(nil)

	err := f.svc.IngestWebhook(context.Background(), []byte(`{}`), http.Header{})
	require.NoError(t, err)
	f.invoicing.AssertExpectations(t)
}
