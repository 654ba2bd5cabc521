package tax

import (
	"fmt"
	"math"
	"strings"

	"github.com/smallbiznis/punchline/internal/config"
)

// rateEpsilon tolerates the float wobble of provider-reported percentages
// (e.g. 19.000001) when matching table entries.
const rateEpsilon = 0.01

// Mapping resolves a (country, rate, hasTaxID) tuple to the bookkeeping
// system's tax identifier. An unmapped rate is a configuration gap and
// must surface as an error, never as a silent default.
type Mapping struct {
	reverseChargeCode string
	zeroRateCode      string
	rates             []config.TaxRateConfig
}

func NewMapping(cfg config.TaxTableConfig) *Mapping {
	return &Mapping{
		reverseChargeCode: cfg.ReverseChargeCode,
		zeroRateCode:      cfg.ZeroRateCode,
		rates:             cfg.Rates,
	}
}

// ReverseChargeCode returns the bookkeeping identifier for self-assessed
// EU VAT (business buyer, zero tax collected).
func (m *Mapping) ReverseChargeCode() string {
	return m.reverseChargeCode
}

// ZeroRateCode returns the bookkeeping identifier for untaxed sales.
func (m *Mapping) ZeroRateCode() string {
	return m.zeroRateCode
}

// Lookup resolves the bookkeeping code and regime for a collected rate.
// First matching table entry wins; entries are matched by country first,
// then by rate alone so a single-country table still covers EU OSS rates.
func (m *Mapping) Lookup(country string, ratePercent float64) (string, Regime, error) {
	country = strings.ToUpper(strings.TrimSpace(country))

	for _, entry := range m.rates {
		if !strings.EqualFold(entry.Country, country) {
			continue
		}
		if math.Abs(entry.RatePercent-ratePercent) < rateEpsilon {
			return entry.Code, entryRegime(entry), nil
		}
	}
	for _, entry := range m.rates {
		if entry.Country != "" {
			continue
		}
		if math.Abs(entry.RatePercent-ratePercent) < rateEpsilon {
			return entry.Code, entryRegime(entry), nil
		}
	}

	return "", "", fmt.Errorf("%w: no bookkeeping code for %.2f%% in %q", ErrUnmappedRate, ratePercent, country)
}

func entryRegime(entry config.TaxRateConfig) Regime {
	if entry.Reduced {
		return RegimeReduced
	}
	return RegimeStandard
}
