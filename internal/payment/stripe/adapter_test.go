package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/smallbiznis/punchline/internal/clock"
	paymentdomain "github.com/smallbiznis/punchline/internal/payment/domain"
)

func buildSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","type":"checkout.session.completed","data":{"object":{}}}`)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	adapter, err := NewAdapter(secret, clk)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	ts := clk.Now().Unix()
	headers := http.Header{}
	headers.Set("Stripe-Signature", buildSignatureHeader(secret, payload, ts))
	if err := adapter.Verify(context.Background(), payload, headers); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	headers.Set("Stripe-Signature", buildSignatureHeader("wrong", payload, ts))
	if err := adapter.Verify(context.Background(), payload, headers); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}

	headers.Set("Stripe-Signature", "")
	if err := adapter.Verify(context.Background(), payload, headers); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error on missing header, got %v", err)
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{}`)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	adapter, _ := NewAdapter(secret, clk)

	stale := clk.Now().Add(-10 * time.Minute).Unix()
	headers := http.Header{}
	headers.Set("Stripe-Signature", buildSignatureHeader(secret, payload, stale))
	if err := adapter.Verify(context.Background(), payload, headers); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected stale delivery to be rejected, got %v", err)
	}
}

func sessionEvent(t *testing.T, overrides map[string]any) []byte {
	t.Helper()

	object := map[string]any{
		"id":             "cs_test_1",
		"amount_total":   599,
		"currency":       "eur",
		"created":        1780000000,
		"payment_status": "paid",
		"customer_details": map[string]any{
			"email": "buyer@example.com",
			"name":  "Jane Doe",
			"address": map[string]any{
				"country": "de",
			},
		},
		"total_details": map[string]any{
			"amount_tax": 96,
			"breakdown": map[string]any{
				"taxes": []map[string]any{{
					"amount": 96,
					"rate": map[string]any{
						"percentage": 19.0,
						"inclusive":  true,
						"country":    "DE",
					},
				}},
			},
		},
	}
	for k, v := range overrides {
		object[k] = v
	}

	payload, err := json.Marshal(map[string]any{
		"id":      "evt_1",
		"type":    "checkout.session.completed",
		"created": 1780000000,
		"data":    map[string]any{"object": object},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return payload
}

func TestParseCompletedSession(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	adapter, _ := NewAdapter("whsec_test", clk)

	event, err := adapter.Parse(context.Background(), sessionEvent(t, nil))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if event.SessionID != "cs_test_1" || event.ProviderEventID != "evt_1" {
		t.Fatalf("unexpected ids: %+v", event)
	}
	if event.AmountTotalCents != 599 || event.AmountTaxCents != 96 {
		t.Fatalf("unexpected amounts: %+v", event)
	}
	if event.Currency != "eur" || event.Country != "DE" {
		t.Fatalf("unexpected currency/country: %+v", event)
	}
	if event.TaxRatePercent != 19 || !event.TaxInclusive {
		t.Fatalf("unexpected tax metadata: %+v", event)
	}
	if event.CustomerEmail != "buyer@example.com" {
		t.Fatalf("unexpected customer: %+v", event)
	}
	if event.HasTaxID {
		t.Fatalf("expected no tax id: %+v", event)
	}
}

func TestParseBusinessBuyer(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	adapter, _ := NewAdapter("whsec_test", clk)

	payload := sessionEvent(t, map[string]any{
		"customer_details": map[string]any{
			"email":   "cfo@example.com",
			"address": map[string]any{"country": "AT"},
			"tax_ids": []map[string]any{{"type": "eu_vat", "value": "ATU12345678"}},
		},
		"total_details": map[string]any{"amount_tax": 0},
	})

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !event.HasTaxID || event.VATID != "ATU12345678" {
		t.Fatalf("expected tax id: %+v", event)
	}
	if event.AmountTaxCents != 0 {
		t.Fatalf("expected zero collected tax: %+v", event)
	}
}

func TestParseIgnoresOtherEvents(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	adapter, _ := NewAdapter("whsec_test", clk)

	payload := []byte(`{"id":"evt_2","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	if _, err := adapter.Parse(context.Background(), payload); !errors.Is(err, paymentdomain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
}

func TestParseIgnoresUnpaidSession(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	adapter, _ := NewAdapter("whsec_test", clk)

	payload := sessionEvent(t, map[string]any{"payment_status": "unpaid"})
	if _, err := adapter.Parse(context.Background(), payload); !errors.Is(err, paymentdomain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	adapter, _ := NewAdapter("whsec_test", clk)

	if _, err := adapter.Parse(context.Background(), []byte(`{broken`)); !errors.Is(err, paymentdomain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if _, err := adapter.Parse(context.Background(), []byte(`{"type":"checkout.session.completed"}`)); !errors.Is(err, paymentdomain.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}
