// Package stripe implements webhook signature verification and payload
// parsing against Stripe's documented event contract.
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
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/punchline/internal/clock"
	paymentdomain "github.com/smallbiznis/punchline/internal/payment/domain"
)

// signatureTolerance bounds how old a signed delivery may be; replays of
// captured payloads outside the window are rejected.
const signatureTolerance = 5 * time.Minute

type Adapter struct {
	webhookSecret string
	clock         clock.Clock
}

func NewAdapter(webhookSecret string, clk clock.Clock) (*Adapter, error) {
	webhookSecret = strings.TrimSpace(webhookSecret)
	if webhookSecret == "" {
		return nil, errors.New("webhook secret is required")
	}
	return &Adapter{webhookSecret: webhookSecret, clock: clk}, nil
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	age := a.clock.Now().Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return paymentdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return paymentdomain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.CheckoutEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	if strings.TrimSpace(event.Type) != "checkout.session.completed" {
		return nil, paymentdomain.ErrEventIgnored
	}

	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	// Sessions can complete before an async payment method settles;
	// those arrive again as checkout.session.async_payment_succeeded.
	if session.PaymentStatus != "paid" {
		return nil, paymentdomain.ErrEventIgnored
	}

	out := &paymentdomain.CheckoutEvent{
		Provider:         "stripe",
		ProviderEventID:  event.ID,
		SessionID:        session.ID,
		AmountTotalCents: session.AmountTotal,
		Currency:         strings.ToLower(strings.TrimSpace(session.Currency)),
		OccurredAt:       timestamp(session.Created, event.Created),
		RawPayload:       payload,
	}

	if details := session.CustomerDetails; details != nil {
		out.CustomerEmail = strings.TrimSpace(details.Email)
		out.CustomerName = strings.TrimSpace(details.Name)
		if details.Address != nil {
			out.Country = strings.ToUpper(strings.TrimSpace(details.Address.Country))
		}
		if len(details.TaxIDs) > 0 {
			out.HasTaxID = true
			out.VATID = strings.TrimSpace(details.TaxIDs[0].Value)
		}
		if details.TaxExempt == "reverse" {
			out.HasTaxID = true
		}
	}

	if details := session.TotalDetails; details != nil {
		out.AmountTaxCents = details.AmountTax
		if details.Breakdown != nil && len(details.Breakdown.Taxes) > 0 {
			rate := details.Breakdown.Taxes[0].Rate
			out.TaxRatePercent = rate.Percentage
			out.TaxInclusive = rate.Inclusive
			if out.Country == "" {
				out.Country = strings.ToUpper(strings.TrimSpace(rate.Country))
			}
		}
	}

	return out, nil
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID              string                 `json:"id"`
	AmountTotal     int64                  `json:"amount_total"`
	Currency        string                 `json:"currency"`
	Created         int64                  `json:"created"`
	PaymentStatus   string                 `json:"payment_status"`
	CustomerDetails *stripeCustomerDetails `json:"customer_details"`
	TotalDetails    *stripeTotalDetails    `json:"total_details"`
	Metadata        map[string]any         `json:"metadata"`
}

type stripeCustomerDetails struct {
	Email     string         `json:"email"`
	Name      string         `json:"name"`
	TaxExempt string         `json:"tax_exempt"`
	Address   *stripeAddress `json:"address"`
	TaxIDs    []stripeTaxID  `json:"tax_ids"`
}

type stripeAddress struct {
	Country string `json:"country"`
}

type stripeTaxID struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type stripeTotalDetails struct {
	AmountTax int64               `json:"amount_tax"`
	Breakdown *stripeTaxBreakdown `json:"breakdown"`
}

type stripeTaxBreakdown struct {
	Taxes []stripeTaxLine `json:"taxes"`
}

type stripeTaxLine struct {
	Amount int64         `json:"amount"`
	Rate   stripeTaxRate `json:"rate"`
}

type stripeTaxRate struct {
	Percentage float64 `json:"percentage"`
	Inclusive  bool    `json:"inclusive"`
	Country    string  `json:"country"`
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}
