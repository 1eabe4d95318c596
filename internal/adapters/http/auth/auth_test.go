package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/fundora/internal/adapters/http/auth"
	"github.com/okian/fundora/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResolver(t *testing.T) {
	_ = logger.Init()

	Convey("Given a resolver with a fixed clock", t, func() {
		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		r := auth.NewResolver("s3cret", auth.WithClock(clock))

		Convey("When a token is issued and validated", func() {
			token, err := r.Issue("investor-1", time.Hour)
			So(err, ShouldBeNil)

			actor, err := r.Validate(token)

			Convey("Then the subject is the actor", func() {
				So(err, ShouldBeNil)
				So(actor, ShouldEqual, "investor-1")
			})
		})

		Convey("When the token has expired", func() {
			token, err := r.Issue("investor-1", time.Minute)
			So(err, ShouldBeNil)
			later := auth.NewResolver("s3cret", auth.WithClock(func() time.Time { return now.Add(2 * time.Minute) }))

			_, err = later.Validate(token)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
			})
		})

		Convey("When the token is signed with another secret", func() {
			token, err := auth.NewResolver("other", auth.WithClock(clock)).Issue("investor-1", time.Hour)
			So(err, ShouldBeNil)

			_, err = r.Validate(token)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
			})
		})

		Convey("When the token uses a different algorithm", func() {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "x"}).SignedString([]byte("s3cret"))
			So(err, ShouldBeNil)

			_, err = r.Validate(token)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
			})
		})

		Convey("When the token has no subject", func() {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iat": now.Unix()}).SignedString([]byte("s3cret"))
			So(err, ShouldBeNil)

			_, err = r.Validate(token)

			Convey("Then it is rejected", func() {
				So(err, ShouldEqual, auth.ErrNoSubject)
			})
		})

		Convey("Then issuing needs a subject and a secret", func() {
			_, err := r.Issue("  ", time.Hour)
			So(err, ShouldEqual, auth.ErrNoSubject)
			_, err = auth.NewResolver("").Issue("a", time.Hour)
			So(err, ShouldEqual, auth.ErrNoSecret)
			_, err = r.Validate("")
			So(err, ShouldEqual, auth.ErrMissingToken)
		})
	})
}

func TestActorFromRequest(t *testing.T) {
	_ = logger.Init()

	Convey("Given a resolver and a signed token", t, func() {
		r := auth.NewResolver("s3cret")
		token, err := r.Issue("investor-7", time.Hour)
		So(err, ShouldBeNil)

		Convey("Then the bearer header resolves case-insensitively", func() {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set("Authorization", "bearer "+token)
			So(r.Actor(req), ShouldEqual, "investor-7")
		})

		Convey("Then missing or malformed headers resolve to no actor", func() {
			for _, h := range []string{"", "Bearer", "Basic abc", "Bearer garbage"} {
				req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
				req.Header.Set("Authorization", h)
				So(r.Actor(req), ShouldEqual, "")
			}
		})

		Convey("When the middleware runs", func() {
			var seen string
			h := r.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, req *http.Request) {
				seen = auth.ActorFrom(req.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+token)
			h.ServeHTTP(httptest.NewRecorder(), req)

			Convey("Then the actor is in the request context", func() {
				So(seen, ShouldEqual, "investor-7")
				So(auth.ActorFrom(context.Background()), ShouldEqual, "")
			})
		})
	})
}
