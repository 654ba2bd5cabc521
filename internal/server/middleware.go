package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smallbiznis/punchline/internal/analytics/classify"
	analyticsdomain "github.com/smallbiznis/punchline/internal/analytics/domain"
	"github.com/smallbiznis/punchline/internal/auth"
)

const sessionCookieName = "_sid"

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http.access")
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-Id", requestID)

		c.Next()

		log.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// AdminRequired gates a route group on a live admin session cookie.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookieName)
		if err != nil || s.sessions.Validate(c.Request.Context(), token) != nil {
			AbortWithError(c, auth.ErrSessionNotFound)
			return
		}
		c.Next()
	}
}

// pageviewSkipPrefixes lists request paths that are never logged as
// visitor traffic.
var pageviewSkipPrefixes = []string{
	"/api/",
	"/admin",
	"/webhooks/",
	"/metrics",
	"/health",
	"/assets/",
	"/favicon",
}

// PageviewRecorder logs page visits without setting any cookie. Only
// successful GET responses for page paths count; API, admin, webhook
// and asset traffic is skipped.
func (s *Server) PageviewRecorder() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet || c.Writer.Status() != http.StatusOK {
			return
		}
		path := c.Request.URL.Path
		for _, prefix := range pageviewSkipPrefixes {
			if strings.HasPrefix(path, prefix) {
				return
			}
		}

		hit := analyticsdomain.Hit{
			Path:           path,
			Referrer:       c.GetHeader("Referer"),
			RemoteIP:       c.ClientIP(),
			UserAgent:      c.GetHeader("User-Agent"),
			AcceptLanguage: c.GetHeader("Accept-Language"),
			Country:        c.GetHeader("CF-IPCountry"),
			OccurredAt:     s.clock.Now().UTC(),
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.analyticsSvc.Record(ctx, hit); err != nil {
			s.log.Warn("pageview record failed", zap.Error(err))
			return
		}
		s.metrics.CountPageview(classify.IsBot(hit.UserAgent))
	}
}
