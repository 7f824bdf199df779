package middleware

import (
	"log/slog"
	"net"
	"strings"

	"github.com/arhen/satset.io/internal/logger"
	"github.com/arhen/satset.io/internal/ratelimit"
	"github.com/arhen/satset.io/pkg/response"
	"github.com/gin-gonic/gin"
)

// RateLimit gates a route behind the fixed-window limiter. The check runs
// before the handler; the spend is recorded only after the handler finishes
// without an error status, so rejected or invalid requests cost nothing.
func RateLimit(limiter *ratelimit.Limiter, op ratelimit.Op) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := ClientIdentity(c)
		if identity == "" {
			response.BadRequest(c, "Bad request")
			c.Abort()
			return
		}

		result, err := limiter.Check(c.Request.Context(), identity, op)
		if err != nil {
			logger.FromContext(c.Request.Context()).Error("Rate limit check failed",
				slog.String("op", string(op)),
				slog.String("error", err.Error()),
			)
			response.InternalServerError(c, "Internal server error")
			c.Abort()
			return
		}

		if !result.Allowed {
			response.RateLimited(c, result.RetryAfter)
			c.Abort()
			return
		}

		c.Next()

		if c.Writer.Status() < 400 {
			if err := limiter.Record(c.Request.Context(), identity, op); err != nil {
				logger.FromContext(c.Request.Context()).Warn("Rate limit record failed",
					slog.String("op", string(op)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// ClientIdentity derives the best available client address for rate limiting:
// CDN header first, then the first hop of X-Forwarded-For, then X-Real-IP,
// then the socket address. An empty result means the request carries no
// derivable identity and must be rejected rather than left unlimited.
func ClientIdentity(c *gin.Context) string {
	if ip := c.GetHeader("CF-Connecting-IP"); ip != "" {
		return ip
	}

	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}

	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
