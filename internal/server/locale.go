package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetLocale serves the translation bundle for one language. Unknown or
// region-qualified tags fall back, so the handler never 404s on a
// plausible language.
func (s *Server) GetLocale(c *gin.Context) {
	bundle, resolved := s.localeSvc.Bundle(c.Param("lang"))

	c.Header("Content-Language", resolved)
	c.Data(http.StatusOK, "application/json; charset=utf-8", bundle)
}
