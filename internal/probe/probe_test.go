package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fundora/internal/adapters/http/api"
	"github.com/okian/fundora/internal/adapters/http/auth"
	"github.com/okian/fundora/internal/adapters/repository"
	service "github.com/okian/fundora/internal/app"
	"github.com/okian/fundora/internal/config"
	"github.com/okian/fundora/internal/domain/model"
	"github.com/okian/fundora/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func liveServer() (*httptest.Server, string, func()) {
	catalog, err := repository.NewMemoryCatalog(
		model.Subject{Snapshot: model.Snapshot{SubjectID: "acme"}, Profile: model.Profile{CompanyName: "Acme"}},
		model.Subject{Snapshot: model.Snapshot{SubjectID: "beta"}, Profile: model.Profile{CompanyName: "Beta"}},
		model.Subject{Snapshot: model.Snapshot{SubjectID: "gamma"}, Profile: model.Profile{CompanyName: "Gamma"}},
	)
	if err != nil {
		panic(err)
	}
	cfg := config.New()
	cfg.JWTSecret = "probe-secret"
	cfg.WriterShards = 4

	svc := service.New(service.WithConfig(cfg), service.WithCatalog(catalog))
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	srv := httptest.NewServer(api.NewServer(svc, svc,
		api.WithResolver(auth.NewResolver(cfg.JWTSecret)),
	).Handler())

	return srv, cfg.JWTSecret, func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	}
}

func TestRun(t *testing.T) {
	Convey("Given a live server", t, func() {
		srv, secret, stop := liveServer()
		defer stop()

		Convey("When the probe runs several bursts", func() {
			report, err := Run(context.Background(), Config{
				BaseURL:     srv.URL,
				Secret:      secret,
				Bursts:      4,
				Concurrency: 12,
				Timeout:     5 * time.Second,
				Verbose:     true,
			})

			Convey("Then every burst records exactly once", func() {
				So(err, ShouldBeNil)
				So(report.Ok(), ShouldBeTrue)
				So(report.Bursts, ShouldEqual, 4)
				So(report.Views.Created, ShouldEqual, 4)
				So(report.Views.Duplicates, ShouldEqual, 4*11)
				So(report.Comparisons.Created, ShouldEqual, 4)
				So(report.Comparisons.Duplicates, ShouldEqual, 4*11)
				So(report.Comparisons.Failed, ShouldEqual, 0)
			})
		})

		Convey("When the probe signs with the wrong secret", func() {
			report, err := Run(context.Background(), Config{
				BaseURL: srv.URL,
				Secret:  "other",
				Bursts:  1,
			})

			Convey("Then verification fails with unauthenticated responses", func() {
				So(errors.Is(err, ErrVerification), ShouldBeTrue)
				So(report.Views.Failed, ShouldEqual, DefaultConcurrency)
				So(report.Ok(), ShouldBeFalse)
			})
		})

		Convey("When comparisons need more subjects than exist", func() {
			_, err := Run(context.Background(), Config{BaseURL: srv.URL, Secret: secret, Subjects: 5})

			Convey("Then the probe refuses to start", func() {
				So(errors.Is(err, ErrNoSubjects), ShouldBeTrue)
			})
		})
	})
}

func TestRun_Unhealthy(t *testing.T) {
	Convey("Given a server whose health check fails", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		Convey("Then Run reports it as unhealthy", func() {
			_, err := Run(context.Background(), Config{BaseURL: srv.URL})
			So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
		})
	})
}

func TestBurst(t *testing.T) {
	Convey("Given a burst of identical requests", t, func() {
		Convey("When every request claims to be new", func() {
			stats, err := burst(context.Background(), 5, func(context.Context) (int, error) {
				return http.StatusCreated, nil
			})

			Convey("Then the burst is a violation", func() {
				So(err, ShouldBeNil)
				So(stats.Created, ShouldEqual, 5)
				So(stats.Violations, ShouldEqual, 1)
			})
		})

		Convey("When server errors are mixed in", func() {
			calls := make(chan struct{}, 3)
			stats, err := burst(context.Background(), 3, func(context.Context) (int, error) {
				calls <- struct{}{}
				if len(calls) == 1 {
					return http.StatusCreated, nil
				}
				return http.StatusInternalServerError, nil
			})

			Convey("Then failures are counted", func() {
				So(err, ShouldBeNil)
				So(stats.Created+stats.Failed, ShouldEqual, 3)
				So(stats.Violations, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a zero config", t, func() {
		var cfg Config
		cfg.Normalize()

		Convey("Then defaults apply", func() {
			So(cfg.BaseURL, ShouldEqual, DefaultBaseURL)
			So(cfg.Bursts, ShouldEqual, DefaultBursts)
			So(cfg.Concurrency, ShouldEqual, DefaultConcurrency)
			So(cfg.Timeout, ShouldEqual, DefaultTimeout)
			So(cfg.Subjects, ShouldEqual, DefaultSubjects)
		})
	})
}
