package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	statsDefaultDays = 30
	statsMaxDays     = 365
)

// AdminStats serves the aggregated pageview dashboard. The window is
// controlled with ?days=N, clamped to one year.
func (s *Server) AdminStats(c *gin.Context) {
	days := statsDefaultDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		days = parsed
	}
	if days > statsMaxDays {
		days = statsMaxDays
	}

	since := s.clock.Now().UTC().AddDate(0, 0, -days)
	stats, err := s.analyticsSvc.Stats(c.Request.Context(), since)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
