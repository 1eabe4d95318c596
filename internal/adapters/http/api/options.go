package api

import (
	"golang.org/x/time/rate"

	"github.com/okian/fundora/internal/adapters/http/auth"
	"github.com/okian/fundora/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithResolver sets the bearer-token actor resolver. Without one every
// request is anonymous.
func WithResolver(r *auth.Resolver) Option {
	return func(s *Server) {
		s.resolver = r
	}
}

// WithRateLimit admits perSecond requests on average with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithCurrency sets the ISO code used to render simulation amounts.
func WithCurrency(code string) Option {
	return func(s *Server) {
		if code != "" {
			s.currency = code
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
