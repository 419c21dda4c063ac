package server

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit throttles per caller: the authenticated user when known,
// otherwise the client address. Limiter failures let the request through.
func (s *Server) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if actor, ok := actorFrom(c); ok {
			key = "user:" + actor.UserID
		}

		res, err := s.limiter.Allow(c.Request.Context(), key)
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			retry := int(math.Ceil(res.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), routeName(c), "bucket_empty")
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func routeName(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
