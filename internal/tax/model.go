package tax

// Regime classifies how tax was applied to a completed checkout.
type Regime string

const (
	RegimeStandard      Regime = "standard"
	RegimeReduced       Regime = "reduced"
	RegimeReverseCharge Regime = "reverse_charge"
	RegimeExempt        Regime = "exempt"
)

// ReconcileInput carries the provider-reported figures for one completed
// checkout session. Amounts are integer cents in the session currency.
type ReconcileInput struct {
	// TotalCents is the amount the customer actually paid.
	TotalCents int64

	// Currency is the lowercase ISO currency code of the session.
	Currency string

	// RatePercent is the nominal tax rate the provider attached to the
	// session (e.g. 19 for 19%). Zero means no rate metadata was present.
	RatePercent float64

	// Inclusive reports whether the displayed total already contained tax.
	Inclusive bool

	// CollectedTaxCents is the tax amount the provider actually collected.
	CollectedTaxCents int64

	// Country is the customer's billing country (ISO 3166-1 alpha-2).
	//
	// Whether the buyer presented a business tax id is deliberately not
	// part of the input: the regime decision keys on CollectedTaxCents,
	// since the provider already zeroes collection for reverse charge.
	Country string
}

// Result is the reconciled, bookkeeping-ready breakdown of a payment.
// It is derived once per webhook event and never mutated.
type Result struct {
	NetCents    int64
	TaxCents    int64
	RatePercent float64
	Regime      Regime

	// BookkeepingCode is the external bookkeeping system's tax identifier
	// for this (country, rate) combination.
	BookkeepingCode string
}
