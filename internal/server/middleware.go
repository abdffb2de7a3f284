package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/jewelbill/internal/auth/domain"
	obscontext "github.com/smallbiznis/jewelbill/internal/observability/context"
	"github.com/smallbiznis/jewelbill/internal/ratelimit"
	"go.uber.org/zap"
)

const bearerPrefix = "bearer "

// AdminRequired authenticates the bearer token and stores the principal on
// the request context.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := s.authenticate(c); ok {
			c.Next()
		}
	}
}

// Authorize authenticates the caller and checks its role for object/action.
func (s *Server) Authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := s.authenticate(c)
		if !ok {
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), principal.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authenticate(c *gin.Context) (*authdomain.Principal, bool) {
	raw := bearerToken(c.GetHeader("Authorization"))
	if raw == "" {
		AbortWithError(c, authdomain.ErrMissingToken)
		return nil, false
	}

	principal, err := s.authsvc.Authenticate(c.Request.Context(), raw)
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}

	ctx := authdomain.WithPrincipal(c.Request.Context(), principal)
	ctx = obscontext.WithActor(ctx, principal.Role, principal.Subject)
	c.Request = c.Request.WithContext(ctx)
	return principal, true
}

// RateLimit applies the endpoint budget per client IP.
func (s *Server) RateLimit(endpoint ratelimit.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		res, err := s.limiter.Allow(c.Request.Context(), endpoint, c.ClientIP())
		if err != nil {
			// fail open when the bucket is unavailable
			s.log.Warn("rate limit check failed", zap.String("endpoint", string(endpoint)), zap.Error(err))
			c.Next()
			return
		}
		if res.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !res.Allowed {
			seconds := int(math.Ceil(res.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), string(endpoint))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

func principalFrom(c *gin.Context) (*authdomain.Principal, error) {
	principal, ok := authdomain.PrincipalFromContext(c.Request.Context())
	if !ok {
		return nil, ErrUnauthorized
	}
	return principal, nil
}
