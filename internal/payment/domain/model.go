package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
)

// CheckoutEvent is the provider-neutral view of a completed checkout
// session, extracted from the webhook payload. Immutable once parsed.
type CheckoutEvent struct {
	Provider        string
	ProviderEventID string
	SessionID       string

	AmountTotalCents int64
	AmountTaxCents   int64
	Currency         string

	CustomerEmail string
	CustomerName  string
	Country       string
	VATID         string
	HasTaxID      bool

	// TaxRatePercent is the nominal rate the provider attached to the
	// session; zero when no rate metadata was present.
	TaxRatePercent float64
	TaxInclusive   bool

	OccurredAt time.Time
	RawPayload []byte
}

// ProcessedEvent is the idempotency record plus the reconciled outcome
// of one webhook delivery. The unique provider event id makes replays
// no-ops.
type ProcessedEvent struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	ProviderEventID string       `gorm:"column:provider_event_id;type:text;not null;uniqueIndex"`
	SessionID       string       `gorm:"column:session_id;type:text;not null;index"`

	Currency   string `gorm:"type:text;not null"`
	TotalCents int64  `gorm:"column:total_cents;not null"`
	NetCents   int64  `gorm:"column:net_cents;not null"`
	TaxCents   int64  `gorm:"column:tax_cents;not null"`

	RatePercent     float64 `gorm:"column:rate_percent"`
	Regime          string  `gorm:"type:text;not null"`
	BookkeepingCode string  `gorm:"column:bookkeeping_code;type:text"`

	CustomerEmail string `gorm:"column:customer_email;type:text"`
	CustomerName  string `gorm:"column:customer_name;type:text"`
	Country       string `gorm:"type:text"`
	VATID         string `gorm:"column:vat_id;type:text"`

	InvoiceID     string `gorm:"column:invoice_id;type:text"`
	InvoiceNumber string `gorm:"column:invoice_number;type:text"`

	ProcessedAt time.Time `gorm:"column:processed_at;not null"`
}

func (ProcessedEvent) TableName() string { return "processed_events" }

// Verifier checks a webhook delivery against the provider's signature
// scheme before any payload field is trusted.
type Verifier interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
}

// Parser extracts the provider-neutral checkout event from a payload.
// Deliveries of other event types return ErrEventIgnored.
type Parser interface {
	Parse(ctx context.Context, payload []byte) (*CheckoutEvent, error)
}

// Service ingests webhook deliveries.
type Service interface {
	IngestWebhook(ctx context.Context, payload []byte, headers http.Header) error
}

// Repository stores processed events for idempotency and receipts.
type Repository interface {
	Exists(ctx context.Context, providerEventID string) (bool, error)
	Insert(ctx context.Context, event *ProcessedEvent) error
	FindBySessionID(ctx context.Context, sessionID string) (*ProcessedEvent, error)
}
