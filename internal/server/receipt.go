package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/smallbiznis/punchline/internal/payment/domain"
	"github.com/smallbiznis/punchline/internal/providers/pdf"
	"github.com/smallbiznis/punchline/internal/tax"
)

// AdminReceipt renders the PDF receipt for one processed checkout
// session.
func (s *Server) AdminReceipt(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("sessionID"))
	if sessionID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	event, err := s.paymentRepo.FindBySessionID(c.Request.Context(), sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if event == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	reader, err := s.pdfProvider.GenerateReceipt(c.Request.Context(), s.receiptData(event))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "receipt-"+event.SessionID+".pdf"))
	c.Data(http.StatusOK, "application/pdf", body)
}

func (s *Server) receiptData(event *paymentdomain.ProcessedEvent) pdf.ReceiptData {
	funnel := s.funnel.Get()

	number := event.InvoiceNumber
	if number == "" {
		number = event.ID.String()
	}

	taxLabel := "Tax"
	if event.RatePercent > 0 {
		taxLabel = fmt.Sprintf("VAT %.0f%%", event.RatePercent)
	}

	taxNote := ""
	if event.Regime == string(tax.RegimeReverseCharge) {
		taxNote = "Reverse charge: VAT to be accounted for by the recipient."
	}

	return pdf.ReceiptData{
		ReceiptNumber: number,
		DatePaid:      event.ProcessedAt.Format("2006-01-02"),

		SellerName:    s.cfg.Seller.Name,
		SellerAddress: s.cfg.Seller.Address,
		SellerVATID:   s.cfg.Seller.VATID,

		BuyerName:    event.CustomerName,
		BuyerEmail:   event.CustomerEmail,
		BuyerCountry: event.Country,
		BuyerVATID:   event.VATID,

		Description: funnel.ProductName,
		Net:         formatCents(event.NetCents, event.Currency),
		TaxLabel:    taxLabel,
		Tax:         formatCents(event.TaxCents, event.Currency),
		Total:       formatCents(event.TotalCents, event.Currency),

		TaxNote: taxNote,
	}
}

func formatCents(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}
