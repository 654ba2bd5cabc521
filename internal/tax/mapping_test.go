package tax

import (
	"errors"
	"testing"
)

func TestMappingLookup(t *testing.T) {
	m := testMapping()

	code, regime, err := m.Lookup("de", 19.000001)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if code != "DE_VAT_STANDARD" || regime != RegimeStandard {
		t.Fatalf("got %q/%q", code, regime)
	}

	// Country-specific entries win over the countryless fallback.
	code, _, err = m.Lookup("AT", 20)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if code != "AT_VAT_STANDARD" {
		t.Fatalf("got %q", code)
	}

	_, _, err = m.Lookup("DE", 37)
	if !errors.Is(err, ErrUnmappedRate) {
		t.Fatalf("expected ErrUnmappedRate, got %v", err)
	}
}
