package tax

import (
	"math"
	"strings"
)

// Reconcile derives the net/tax breakdown of one completed checkout
// session and maps it to a bookkeeping tax identifier. TotalCents is
// always the gross amount the customer paid, for inclusive and
// exclusive pricing alike.
//
// All arithmetic is on integer cents. The single float division for
// inclusive pricing is rounded with math.Round (half away from zero);
// the tax amount is then the remainder, so net + tax always reconstructs
// the paid total exactly. For exclusive pricing the provider already
// reports the collected tax, so net is the plain difference.
func Reconcile(in ReconcileInput, mapping *Mapping) (Result, error) {
	if in.TotalCents < 0 {
		return Result{}, ErrInvalidTotal
	}
	if strings.TrimSpace(in.Currency) == "" {
		return Result{}, ErrEmptyCurrency
	}
	if in.RatePercent < 0 {
		return Result{}, ErrInvalidRate
	}
	if in.CollectedTaxCents < 0 || in.CollectedTaxCents > in.TotalCents {
		return Result{}, ErrInvalidTax
	}

	// No rate metadata at all: treat the total as net, zero tax.
	if in.RatePercent == 0 {
		return Result{
			NetCents:        in.TotalCents,
			TaxCents:        0,
			RatePercent:     0,
			Regime:          RegimeExempt,
			BookkeepingCode: mapping.ZeroRateCode(),
		}, nil
	}

	// A nominal rate with zero collected tax means the rate was never
	// applied: the buyer self-assesses (reverse charge). Backing net out
	// by division here would misstate the sale.
	if in.CollectedTaxCents == 0 {
		return Result{
			NetCents:        in.TotalCents,
			TaxCents:        0,
			RatePercent:     in.RatePercent,
			Regime:          RegimeReverseCharge,
			BookkeepingCode: mapping.ReverseChargeCode(),
		}, nil
	}

	var net, taxAmount int64
	if in.Inclusive {
		net, taxAmount = splitInclusive(in.TotalCents, in.RatePercent)
	} else {
		// The gross total already carries the collected exclusive tax.
		taxAmount = in.CollectedTaxCents
		net = in.TotalCents - taxAmount
	}

	code, regime, err := mapping.Lookup(in.Country, in.RatePercent)
	if err != nil {
		return Result{}, err
	}

	return Result{
		NetCents:        net,
		TaxCents:        taxAmount,
		RatePercent:     in.RatePercent,
		Regime:          regime,
		BookkeepingCode: code,
	}, nil
}

// splitInclusive backs the net amount out of a tax-inclusive total.
// Rounding happens exactly once, on the net amount, so the pair always
// sums back to the input.
func splitInclusive(totalCents int64, ratePercent float64) (int64, int64) {
	net := int64(math.Round(float64(totalCents) * 100 / (100 + ratePercent)))
	return net, totalCents - net
}
