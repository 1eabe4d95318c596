// Package auth resolves the acting user of an HTTP request from an HS256
// bearer token. The actor id is the token's "sub" claim.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/fundora/pkg/logger"
)

const bearerPrefix = "bearer "

type actorKey struct{}

// Resolver validates bearer tokens signed with a shared secret.
type Resolver struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
	logger logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLeeway tolerates clock skew when checking exp and iat.
func WithLeeway(d time.Duration) Option {
	return func(r *Resolver) {
		if d >= 0 {
			r.leeway = d
		}
	}
}

// WithClock overrides the time source used for issuing and validation.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver for tokens signed with secret.
func NewResolver(secret string, opts ...Option) *Resolver {
	r := &Resolver{
		secret: []byte(secret),
		now:    time.Now,
		logger: logger.Get().Named("auth"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Issue signs a token for actorID. A non-positive ttl yields a token
// without expiry.
func (r *Resolver) Issue(actorID string, ttl time.Duration) (string, error) {
	if len(r.secret) == 0 {
		return "", ErrNoSecret
	}
	if strings.TrimSpace(actorID) == "" {
		return "", ErrNoSubject
	}
	now := r.now()
	claims := jwt.MapClaims{
		"sub": actorID,
		"iat": now.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses a raw token and returns its subject.
func (r *Resolver) Validate(raw string) (string, error) {
	if len(r.secret) == 0 {
		return "", ErrNoSecret
	}
	if raw == "" {
		return "", ErrMissingToken
	}

	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(r.leeway),
		jwt.WithTimeFunc(r.now),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", ErrNoSubject
	}
	return sub, nil
}

// Actor returns the actor id carried by the request's Authorization
// header, or "" when there is none or it does not validate.
func (r *Resolver) Actor(req *http.Request) string {
	raw, ok := bearer(req.Header.Get("Authorization"))
	if !ok {
		return ""
	}
	actor, err := r.Validate(raw)
	if err != nil {
		r.logger.Debug(req.Context(), "rejected bearer token", logger.Error(err))
		return ""
	}
	return actor
}

// Middleware stores the resolved actor in the request context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if actor := r.Actor(req); actor != "" {
			req = req.WithContext(WithActor(req.Context(), actor))
		}
		next.ServeHTTP(w, req)
	})
}

// WithActor returns a context carrying actorID.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFrom returns the actor stored by Middleware, or "".
func ActorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

func bearer(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
