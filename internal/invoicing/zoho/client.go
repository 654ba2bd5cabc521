// Package zoho is a minimal Zoho Books client covering the three calls
// the funnel needs: find-or-create a contact, create an invoice, record
// the payment against it.
package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/punchline/internal/clock"
	"github.com/smallbiznis/punchline/internal/config"
	invoicingdomain "github.com/smallbiznis/punchline/internal/invoicing/domain"
	"go.uber.org/zap"
)

// tokenSkew renews the access token slightly before Zoho's expiry so an
// in-flight call never carries an already-dead token.
const tokenSkew = 2 * time.Minute

type Client struct {
	log        *zap.Logger
	cfg        config.ZohoConfig
	httpClient *http.Client
	clock      clock.Clock

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(log *zap.Logger, cfg config.ZohoConfig, clk clock.Clock) *Client {
	return &Client{
		log:        log.Named("zoho"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		clock:      clk,
	}
}

// token returns a valid access token, refreshing when stale.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.accessToken != "" && c.clock.Now().Before(c.tokenExpiry) {
		token := c.accessToken
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	form := url.Values{
		"refresh_token": {c.cfg.RefreshToken},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.AccountsURL+"/oauth/v2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", invoicingdomain.ErrTokenRefresh, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", invoicingdomain.ErrTokenRefresh, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %v", invoicingdomain.ErrTokenRefresh, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", invoicingdomain.ErrTokenRefresh)
	}

	expiry := c.clock.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - tokenSkew)

	c.mu.Lock()
	c.accessToken = payload.AccessToken
	c.tokenExpiry = expiry
	c.mu.Unlock()

	return payload.AccessToken, nil
}

func (c *Client) EnsureContact(ctx context.Context, contact invoicingdomain.Contact) (string, error) {
	var lookup struct {
		Contacts []struct {
			ContactID string `json:"contact_id"`
		} `json:"contacts"`
	}
	query := url.Values{"email": {contact.Email}}
	if err := c.call(ctx, http.MethodGet, "/contacts", query, nil, &lookup); err != nil {
		return "", err
	}
	if len(lookup.Contacts) > 0 {
		return lookup.Contacts[0].ContactID, nil
	}

	body := map[string]any{
		"contact_name": contactName(contact),
		"contact_persons": []map[string]any{
			{"email": contact.Email, "is_primary_contact": true},
		},
	}
	if contact.Country != "" {
		body["billing_address"] = map[string]any{"country": contact.Country}
	}
	if contact.VATID != "" {
		body["vat_reg_no"] = contact.VATID
	}

	var created struct {
		Contact struct {
			ContactID string `json:"contact_id"`
		} `json:"contact"`
	}
	if err := c.call(ctx, http.MethodPost, "/contacts", nil, body, &created); err != nil {
		return "", err
	}
	if created.Contact.ContactID == "" {
		return "", fmt.Errorf("%w: contact created without id", invoicingdomain.ErrRemote)
	}
	return created.Contact.ContactID, nil
}

func (c *Client) CreateInvoice(ctx context.Context, req invoicingdomain.InvoiceRequest) (invoicingdomain.Invoice, error) {
	line := map[string]any{
		"name":     req.Description,
		"rate":     cents(req.NetCents),
		"quantity": 1,
	}
	if req.TaxCode != "" {
		line["tax_name"] = req.TaxCode
		line["tax_percentage"] = req.TaxRate
	}

	body := map[string]any{
		"customer_id":      req.ContactID,
		"reference_number": req.Reference,
		"currency_code":    strings.ToUpper(req.Currency),
		"is_inclusive_tax": req.TaxInclusive,
		"line_items":       []map[string]any{line},
	}
	if req.ReverseCharge {
		body["is_reverse_charge_applied"] = true
		body["notes"] = "Reverse charge: VAT to be accounted for by the recipient."
	}

	var created struct {
		Invoice struct {
			InvoiceID     string `json:"invoice_id"`
			InvoiceNumber string `json:"invoice_number"`
		} `json:"invoice"`
	}
	if err := c.call(ctx, http.MethodPost, "/invoices", nil, body, &created); err != nil {
		return invoicingdomain.Invoice{}, err
	}
	if created.Invoice.InvoiceID == "" {
		return invoicingdomain.Invoice{}, fmt.Errorf("%w: invoice created without id", invoicingdomain.ErrRemote)
	}
	return invoicingdomain.Invoice{
		ID:     created.Invoice.InvoiceID,
		Number: created.Invoice.InvoiceNumber,
	}, nil
}

func (c *Client) MarkPaid(ctx context.Context, contactID, invoiceID string, amountCents int64) error {
	body := map[string]any{
		"customer_id":  contactID,
		"payment_mode": "stripe",
		"amount":       cents(amountCents),
		"invoices": []map[string]any{
			{"invoice_id": invoiceID, "amount_applied": cents(amountCents)},
		},
	}
	return c.call(ctx, http.MethodPost, "/customerpayments", nil, body, nil)
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("organization_id", c.cfg.OrganizationID)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path+"?"+query.Encode(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", invoicingdomain.ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s status %d: %s", invoicingdomain.ErrRemote, method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func cents(v int64) float64 {
	return float64(v) / 100
}

func contactName(contact invoicingdomain.Contact) string {
	if strings.TrimSpace(contact.Name) != "" {
		return contact.Name
	}
	return contact.Email
}
