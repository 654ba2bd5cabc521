package server

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// registerPageRoutes serves the static landing page. The thanks and
// cancel pages are plain files as well; the landing page script reads
// the session id from the query string.
func (s *Server) registerPageRoutes() {
	webDir := s.cfg.WebDir

	s.engine.StaticFile("/", filepath.Join(webDir, "index.html"))
	s.engine.StaticFile("/thanks", filepath.Join(webDir, "thanks.html"))
	s.engine.StaticFile("/cancel", filepath.Join(webDir, "cancel.html"))
	s.engine.Static("/assets", filepath.Join(webDir, "assets"))

	s.engine.NoRoute(func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.File(filepath.Join(webDir, "index.html"))
			return
		}
		c.JSON(http.StatusNotFound, errorResponse{Error: errorPayload{
			Type:    "not_found",
			Message: "not found",
		}})
	})
}
