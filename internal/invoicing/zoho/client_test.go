package zoho

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/punchline/internal/clock"
	"github.com/smallbiznis/punchline/internal/config"
	"github.com/smallbiznis/punchline/internal/invoicing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeZoho struct {
	tokenRequests int
	contacts      map[string]string // email -> contact id
	lastInvoice   map[string]any
	lastPayment   map[string]any
}

func newFakeZoho() *fakeZoho {
	return &fakeZoho{contacts: map[string]string{}}
}

func (f *fakeZoho) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenRequests++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token-1",
			"expires_in":   3600,
		})
	})

	mux.HandleFunc("/contacts", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Zoho-oauthtoken token-1", r.Header.Get("Authorization"))
		require.Equal(t, "org-1", r.URL.Query().Get("organization_id"))

		if r.Method == http.MethodGet {
			email := r.URL.Query().Get("email")
			if id, ok := f.contacts[email]; ok {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"contacts": []map[string]any{{"contact_id": id}},
				})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"contacts": []any{}})
			return
		}

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.contacts["new@example.com"] = "c-100"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"contact": map[string]any{"contact_id": "c-100"},
		})
	})

	mux.HandleFunc("/invoices", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.lastInvoice = body
		_ = json.NewEncoder(w).Encode(map[string]any{
			"invoice": map[string]any{"invoice_id": "inv-1", "invoice_number": "INV-0001"},
		})
	})

	mux.HandleFunc("/customerpayments", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.lastPayment = body
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})

	return mux
}

func newTestClient(t *testing.T, srv *httptest.Server, clk clock.Clock) *Client {
	t.Helper()
	return NewClient(zap.NewNop(), config.ZohoConfig{
		Enabled:        true,
		BaseURL:        srv.URL,
		AccountsURL:    srv.URL,
		ClientID:       "id",
		ClientSecret:   "secret",
		RefreshToken:   "refresh",
		OrganizationID: "org-1",
	}, clk)
}

func TestTokenCachedUntilExpiry(t *testing.T) {
	fake := newFakeZoho()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	client := newTestClient(t, srv, clk)
	ctx := context.Background()

	fake.contacts["a@example.com"] = "c-1"

	_, err := client.EnsureContact(ctx, domain.Contact{Email: "a@example.com"})
	require.NoError(t, err)
	_, err = client.EnsureContact(ctx, domain.Contact{Email: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.tokenRequests, "token must be cached while fresh")

	// Past expiry the next call refetches.
	clk.Advance(2 * time.Hour)
	_, err = client.EnsureContact(ctx, domain.Contact{Email: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.tokenRequests)
}

func TestEnsureContactCreatesWhenMissing(t *testing.T) {
	fake := newFakeZoho()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	client := newTestClient(t, srv, clock.NewSystemClock())

	id, err := client.EnsureContact(context.Background(), domain.Contact{
		Name:    "Jane Doe",
		Email:   "new@example.com",
		Country: "DE",
		VATID:   "DE123456789",
	})
	require.NoError(t, err)
	assert.Equal(t, "c-100", id)
}

func TestCreateInvoiceAndMarkPaid(t *testing.T) {
	fake := newFakeZoho()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	client := newTestClient(t, srv, clock.NewSystemClock())
	ctx := context.Background()

	inv, err := client.CreateInvoice(ctx, domain.InvoiceRequest{
		ContactID:    "c-1",
		Reference:    "cs_test_123",
		Description:  "One handcrafted joke",
		Currency:     "eur",
		NetCents:     503,
		TaxCents:     96,
		TaxRate:      19,
		TaxCode:      "DE_VAT_STANDARD",
		TaxInclusive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "inv-1", inv.ID)
	assert.Equal(t, "INV-0001", inv.Number)

	assert.Equal(t, true, fake.lastInvoice["is_inclusive_tax"])
	assert.Equal(t, "EUR", fake.lastInvoice["currency_code"])
	lines := fake.lastInvoice["line_items"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.InDelta(t, 5.03, line["rate"].(float64), 1e-9)
	assert.Equal(t, "DE_VAT_STANDARD", line["tax_name"])

	require.NoError(t, client.MarkPaid(ctx, "c-1", inv.ID, 599))
	assert.InDelta(t, 5.99, fake.lastPayment["amount"].(float64), 1e-9)
}

func TestReverseChargeInvoice(t *testing.T) {
	fake := newFakeZoho()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	client := newTestClient(t, srv, clock.NewSystemClock())

	_, err := client.CreateInvoice(context.Background(), domain.InvoiceRequest{
		ContactID:     "c-1",
		Reference:     "cs_test_rc",
		Description:   "One handcrafted joke",
		Currency:      "eur",
		NetCents:      599,
		ReverseCharge: true,
	})
	require.NoError(t, err)
	assert.Equal(t, true, fake.lastInvoice["is_reverse_charge_applied"])
}

func TestRemoteErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v2/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "token-1", "expires_in": 3600})
			return
		}
		http.Error(w, `{"code":13,"message":"nope"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, clock.NewSystemClock())

	_, err := client.EnsureContact(context.Background(), domain.Contact{Email: "a@example.com"})
	require.ErrorIs(t, err, domain.ErrRemote)
}
