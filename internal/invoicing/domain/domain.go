// Package domain defines the bookkeeping client surface used to mirror
// completed payments into an external bookkeeping system.
package domain

import (
	"context"
	"errors"
)

var (
	ErrNotConfigured = errors.New("invoicing_not_configured")
	ErrTokenRefresh  = errors.New("invoicing_token_refresh_failed")
	ErrRemote        = errors.New("invoicing_remote_error")
)

// Contact identifies the buyer in the bookkeeping system.
type Contact struct {
	Name    string
	Email   string
	Country string
	VATID   string
}

// InvoiceRequest describes one reconciled sale. Amounts are integer
// cents; the client converts to the remote system's unit representation.
type InvoiceRequest struct {
	ContactID     string
	Reference     string
	Description   string
	Currency      string
	NetCents      int64
	TaxCents      int64
	TaxRate       float64
	TaxCode       string
	TaxInclusive  bool
	ReverseCharge bool
}

// Invoice is the remote system's record of a created invoice.
type Invoice struct {
	ID     string
	Number string
}

// Service is the bookkeeping client surface used by the webhook pipeline.
type Service interface {
	EnsureContact(ctx context.Context, contact Contact) (string, error)
	CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error)
	MarkPaid(ctx context.Context, contactID, invoiceID string, amountCents int64) error
}

// NoOpService is used when no bookkeeping backend is configured.
type NoOpService struct{}

func (NoOpService) EnsureContact(ctx context.Context, contact Contact) (string, error) {
	return "", ErrNotConfigured
}

func (NoOpService) CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error) {
	return Invoice{}, ErrNotConfigured
}

func (NoOpService) MarkPaid(ctx context.Context, contactID, invoiceID string, amountCents int64) error {
	return ErrNotConfigured
}
