package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/elobattle/internal/simulation"
	"github.com/okian/elobattle/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		rounds  = flag.Int("rounds", simulation.DefaultRounds, "Number of judgements to submit")
		workers = flag.Int("workers", simulation.DefaultWorkers, "Number of concurrent raters")
		timeout = flag.Duration("timeout", simulation.DefaultTimeout, "HTTP request timeout")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "Seed for hidden strengths and rater choices")
		spread  = flag.Float64("spread", simulation.DefaultSpread, "Standard deviation of hidden strengths")
		limit   = flag.Int("limit", simulation.DefaultLimit, "Leaderboard entries to score")
		settle  = flag.Duration("settle", simulation.DefaultSettle, "How long to wait for queued outcomes")
		format  = flag.String("log-format", "text", "Log format: text or json")
		verbose = flag.Bool("verbose", false, "Log every judgement")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*format)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	_, err := simulation.Run(ctx, &simulation.Config{
		BaseURL: *baseURL,
		Rounds:  *rounds,
		Workers: *workers,
		Timeout: *timeout,
		Seed:    *seed,
		Spread:  *spread,
		Limit:   *limit,
		Settle:  *settle,
		Verbose: *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}
