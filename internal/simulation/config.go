package simulation

import "time"

// Defaults for Config fields left at zero.
const (
	DefaultRounds  = 1000
	DefaultWorkers = 4
	DefaultTimeout = 10 * time.Second
	DefaultSpread  = 200.0
	DefaultLimit   = 100
	DefaultSettle  = 30 * time.Second
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL string        // Base URL of the service
	Rounds  int           // Number of judgements to submit
	Workers int           // Number of concurrent raters
	Timeout time.Duration // HTTP request timeout
	Seed    int64         // Seeds hidden strengths and rater choices
	Spread  float64       // Standard deviation of hidden strengths, in rating points
	Limit   int           // Leaderboard entries to compare against hidden strengths
	Settle  time.Duration // How long to wait for the queue to drain
	Verbose bool          // Log every judgement
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Rounds <= 0 {
		out.Rounds = DefaultRounds
	}
	if out.Workers <= 0 {
		out.Workers = DefaultWorkers
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Spread <= 0 {
		out.Spread = DefaultSpread
	}
	if out.Limit <= 0 {
		out.Limit = DefaultLimit
	}
	if out.Settle <= 0 {
		out.Settle = DefaultSettle
	}
	return out
}

// Report summarizes a run.
type Report struct {
	Submitted    int
	Accepted     int
	Duplicate    int
	Failed       int
	Backpressure int
	Entries      int     // leaderboard entries scored
	Spearman     float64 // rank correlation of leaderboard and hidden strength
	Duration     time.Duration
}
