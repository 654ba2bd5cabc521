package tax

import "errors"

var (
	ErrInvalidTotal  = errors.New("invalid_total")
	ErrInvalidTax    = errors.New("invalid_tax_amount")
	ErrInvalidRate   = errors.New("invalid_tax_rate")
	ErrUnmappedRate  = errors.New("unmapped_tax_rate")
	ErrEmptyCurrency = errors.New("empty_currency")
)
