package api

import (
	"math"
	"net"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfnotes/shelfnotes-server/internal/config"
	domainerrors "github.com/shelfnotes/shelfnotes-server/internal/errors"
	"github.com/shelfnotes/shelfnotes-server/internal/ratelimit"
)

// routeLimit is a per-client-IP limit applied to a group of operations.
type routeLimit struct {
	limiter *ratelimit.KeyedRateLimiter
	message string
}

// routeLimits holds one independent limiter per route group.
type routeLimits struct {
	auth   routeLimit
	search routeLimit
	review routeLimit
}

func newRouteLimits(cfg config.RateLimitConfig) routeLimits {
	return routeLimits{
		auth:   newRouteLimit(cfg.Auth, "Too many login attempts, please try again later."),
		search: newRouteLimit(cfg.Search, "Too many requests, please try again later."),
		review: newRouteLimit(cfg.Review, "Too many reviews submitted. Please try again later."),
	}
}

func newRouteLimit(rule config.RateLimitRule, message string) routeLimit {
	if rule.Requests <= 0 || rule.Window <= 0 {
		return routeLimit{message: message}
	}
	return routeLimit{
		limiter: ratelimit.PerWindow(rule.Requests, rule.Window),
		message: message,
	}
}

func (l routeLimits) stop() {
	for _, rl := range []routeLimit{l.auth, l.search, l.review} {
		if rl.limiter != nil {
			rl.limiter.Stop()
		}
	}
}

// rateLimit returns an operation middleware enforcing rl by client IP.
// Rejected requests get 429 with a Retry-After header.
func (s *Server) rateLimit(rl routeLimit) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if rl.limiter == nil {
			next(ctx)
			return
		}

		key := clientIP(ctx.RemoteAddr())
		allowed, wait := rl.limiter.Reserve(key)
		if !allowed {
			s.logger.Warn("rate limit exceeded", "ip", key, "path", ctx.URL().Path)
			retryAfter := max(1, int(math.Ceil(wait.Seconds())))
			ctx.SetHeader("Retry-After", strconv.Itoa(retryAfter))
			s.writeErr(ctx, domainerrors.RateLimited(rl.message))
			return
		}

		next(ctx)
	}
}

// clientIP strips the port from a remote address. Behind a trusted proxy the
// RealIP middleware has already replaced it with the forwarded address.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
