package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createCheckoutRequest struct {
	Language string `json:"language"`
}

type createCheckoutResponse struct {
	URL string `json:"url"`
}

// CreateCheckoutSession opens a hosted payment session and returns the
// redirect URL to the landing page script.
func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	url, err := s.checkoutSvc.CreateSession(c.Request.Context(), req.Language)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, createCheckoutResponse{URL: url})
}
