// Package simulation drives a running ranking service with synthetic raters
// whose judgements follow hidden item strengths, then measures how well the
// leaderboard recovered them.
package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/elobattle/pkg/logger"
)

const (
	maxBackpressureRetries = 5
	backpressureDelay      = 50 * time.Millisecond
	settlePoll             = 100 * time.Millisecond
)

type counters struct {
	submitted    atomic.Int64
	accepted     atomic.Int64
	duplicate    atomic.Int64
	failed       atomic.Int64
	backpressure atomic.Int64
}

// Run plays cfg.Rounds judgements against the service and reports the rank
// correlation between the resulting leaderboard and the hidden strengths.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	c := cfg.withDefaults()
	log := logger.Get().Named("simulation")
	start := time.Now()

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", c.BaseURL),
		logger.Int("rounds", c.Rounds),
		logger.Int("workers", c.Workers),
		logger.Int64("seed", c.Seed),
		logger.Float64("spread", c.Spread),
	)

	cl := newClient(c.BaseURL, c.Timeout)
	if err := cl.health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}
	before, err := cl.applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}

	var cnt counters
	jobs := make(chan int, c.Workers)
	var wg sync.WaitGroup
	for w := 0; w < c.Workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(c.Seed + int64(id) + 1)) //nolint:gosec // simulation only
			for range jobs {
				playRound(ctx, cl, &c, rng, &cnt, log)
			}
		}(w)
	}

feed:
	for i := 0; i < c.Rounds; i++ {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := waitApplied(ctx, cl, before+cnt.accepted.Load(), c.Settle); err != nil {
		log.Warn(ctx, "outcomes still queued after settle period", logger.Error(err))
	}

	board, err := cl.leaderboard(ctx, c.Limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	ratings := make([]float64, len(board))
	hidden := make([]float64, len(board))
	for i, e := range board {
		ratings[i] = e.Rating
		hidden[i] = Strength(c.Seed, e.ItemID, c.Spread)
	}

	report := &Report{
		Submitted:    int(cnt.submitted.Load()),
		Accepted:     int(cnt.accepted.Load()),
		Duplicate:    int(cnt.duplicate.Load()),
		Failed:       int(cnt.failed.Load()),
		Backpressure: int(cnt.backpressure.Load()),
		Entries:      len(board),
		Spearman:     Spearman(ratings, hidden),
		Duration:     time.Since(start),
	}

	log.Info(ctx, "simulation finished",
		logger.Int("submitted", report.Submitted),
		logger.Int("accepted", report.Accepted),
		logger.Int("duplicate", report.Duplicate),
		logger.Int("failed", report.Failed),
		logger.Int("backpressure", report.Backpressure),
		logger.Int("entries", report.Entries),
		logger.Float64("spearman", report.Spearman),
		logger.Duration("duration", report.Duration),
	)
	return report, nil
}

func playRound(ctx context.Context, cl *client, c *Config, rng *rand.Rand, cnt *counters, log logger.Logger) {
	m, err := cl.matchup(ctx)
	if err != nil {
		cnt.failed.Add(1)
		log.Debug(ctx, "matchup failed", logger.Error(err))
		return
	}

	sa := Strength(c.Seed, m.A.ItemID, c.Spread)
	sb := Strength(c.Seed, m.B.ItemID, c.Spread)
	o := Judge(sa, sb, rng.Float64())
	req := outcome{MatchupID: m.MatchupID, ItemA: m.A.ItemID, ItemB: m.B.ItemID, Outcome: o.Label}

	for attempt := 0; ; attempt++ {
		cnt.submitted.Add(1)
		status, a, err := cl.submit(ctx, req)
		switch {
		case err != nil:
			cnt.failed.Add(1)
			log.Debug(ctx, "submit failed", logger.Error(err))
			return
		case status == http.StatusAccepted:
			cnt.accepted.Add(1)
		case status == http.StatusOK && a.Duplicate:
			cnt.duplicate.Add(1)
		case status == http.StatusTooManyRequests && attempt < maxBackpressureRetries:
			cnt.backpressure.Add(1)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backpressureDelay * time.Duration(attempt+1)):
			}
			continue
		default:
			cnt.failed.Add(1)
		}
		break
	}

	if c.Verbose {
		log.Info(ctx, "judged",
			logger.String("matchup_id", m.MatchupID),
			logger.String("a", m.A.ItemID),
			logger.String("b", m.B.ItemID),
			logger.String("outcome", o.Label),
		)
	}
}

// waitApplied polls /stats until the service has applied want outcomes.
func waitApplied(ctx context.Context, cl *client, want int64, settle time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, settle)
	defer cancel()

	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()
	for {
		got, err := cl.applied(ctx)
		if err == nil && got >= want {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("applied %d of %d: %w", got, want, ctx.Err())
		case <-ticker.C:
		}
	}
}
