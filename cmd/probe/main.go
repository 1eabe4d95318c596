// Command probe fires concurrent duplicate interactions at a running
// fundora server and verifies each burst is recorded exactly once.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/fundora/internal/config"
	"github.com/okian/fundora/internal/probe"
	"github.com/okian/fundora/pkg/logger"
)

func main() {
	cfg := probe.Config{}
	flag.StringVar(&cfg.BaseURL, "url", probe.DefaultBaseURL, "Base URL of the service")
	flag.StringVar(&cfg.Secret, "secret", envOr("FUNDORA_JWT_SECRET", config.DevJWTSecret), "JWT signing secret shared with the server")
	flag.IntVar(&cfg.Bursts, "bursts", probe.DefaultBursts, "Number of bursts, each with a fresh actor")
	flag.IntVar(&cfg.Concurrency, "concurrency", probe.DefaultConcurrency, "Identical requests per burst and kind")
	flag.IntVar(&cfg.Subjects, "subjects", probe.DefaultSubjects, "Subjects per comparison")
	flag.DurationVar(&cfg.Timeout, "timeout", probe.DefaultTimeout, "HTTP request timeout")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Log every burst")
	format := flag.String("log-format", "text", "Log format: text or json")
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*format)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := probe.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "probe failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
