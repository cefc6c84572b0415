package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete}
	corsHeaders = []string{"Authorization", "Content-Type"}
)

// createCORSMiddleware returns nil unless CORS is enabled with at least one
// usable origin. Credentials are never allowed.
func createCORSMiddleware(enabled bool, allowOrigins string, logger *slog.Logger) gin.HandlerFunc {
	if !enabled {
		return nil
	}

	origins := parseOrigins(allowOrigins)
	if len(origins) == 0 {
		logger.Warn("cors enabled without usable origins, skipping")
		return nil
	}
	logger.Info("cors enabled", slog.Any("origins", origins))

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           time.Hour,
	})
}

// parseOrigins keeps the http(s) origins of a comma separated list.
func parseOrigins(raw string) []string {
	var origins []string
	for field := range strings.SplitSeq(raw, ",") {
		origin := strings.TrimSpace(field)
		if origin == "" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Host == "" ||
			(u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		origins = append(origins, strings.TrimSuffix(origin, "/"))
	}
	return origins
}
