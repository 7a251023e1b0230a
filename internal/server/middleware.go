package server

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const healthPath = "/api/system/health"

// requestLogger logs one line per request. Health checks log at debug.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			level = slog.LevelError
		case c.Request.URL.Path == healthPath:
			level = slog.LevelDebug
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func corsMiddleware(origin string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Admin-Secret"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if strings.TrimSpace(origin) == "*" {
		cfg.AllowAllOrigins = true
	} else {
		for _, o := range strings.Split(origin, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, o)
			}
		}
		// A list of bare separators names no origin.
		if len(cfg.AllowOrigins) == 0 {
			cfg.AllowAllOrigins = true
		}
	}
	return cors.New(cfg)
}

// adminAuth guards the rubric admin routes. Connections from a loopback
// address pass; others need the configured secret in X-Admin-Secret or
// ?secret=. With no secret configured, remote access is refused outright.
// The peer address comes from the socket, never from Host or forwarding
// headers.
func adminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == healthPath {
			c.Next()
			return
		}

		if ip := net.ParseIP(c.RemoteIP()); ip != nil && ip.IsLoopback() {
			c.Next()
			return
		}

		if secret == "" {
			errorJSON(c, http.StatusForbidden, "Admin access not configured")
			c.Abort()
			return
		}

		provided := c.GetHeader("X-Admin-Secret")
		if provided == "" {
			provided = c.Query("secret")
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			errorJSON(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}

		c.Next()
	}
}
