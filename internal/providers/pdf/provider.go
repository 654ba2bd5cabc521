package pdf

import (
	"context"
	"io"
)

// ReceiptData is everything the rendered receipt shows. Amounts are
// preformatted strings; formatting lives with the caller who knows the
// currency.
type ReceiptData struct {
	ReceiptNumber string
	DatePaid      string

	SellerName    string
	SellerAddress string
	SellerVATID   string

	BuyerName    string
	BuyerEmail   string
	BuyerCountry string
	BuyerVATID   string

	Description string
	Net         string
	TaxLabel    string
	Tax         string
	Total       string

	// TaxNote carries the reverse-charge wording when applicable.
	TaxNote string
}

type Provider interface {
	GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
}
