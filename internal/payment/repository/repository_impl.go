package repository

import (
	"context"

	"github.com/smallbiznis/punchline/internal/payment/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Exists(ctx context.Context, providerEventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.ProcessedEvent{}).
		Where("provider_event_id = ?", providerEventID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Insert(ctx context.Context, event *domain.ProcessedEvent) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO processed_events (
			id, provider_event_id, session_id, currency, total_cents, net_cents, tax_cents,
			rate_percent, regime, bookkeeping_code, customer_email, customer_name, country,
			vat_id, invoice_id, invoice_number, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.ProviderEventID,
		event.SessionID,
		event.Currency,
		event.TotalCents,
		event.NetCents,
		event.TaxCents,
		event.RatePercent,
		event.Regime,
		event.BookkeepingCode,
		event.CustomerEmail,
		event.CustomerName,
		event.Country,
		event.VATID,
		event.InvoiceID,
		event.InvoiceNumber,
		event.ProcessedAt,
	).Error
}

func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*domain.ProcessedEvent, error) {
	var event domain.ProcessedEvent
	err := r.db.WithContext(ctx).Raw(
		`SELECT * FROM processed_events WHERE session_id = ? ORDER BY processed_at DESC LIMIT 1`,
		sessionID,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}
