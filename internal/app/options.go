package service

import (
	"github.com/okian/elobattle/internal/adapters/repository"
	"github.com/okian/elobattle/internal/domain/rating"
	"github.com/okian/elobattle/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects an already opened store. The service does not close an
// injected store on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDatabase sets the driver and DSN used to open the store on Start when
// no store was injected.
func WithDatabase(driver, dsn string) Option {
	return func(s *Service) {
		s.dbDriver = driver
		s.dbDSN = dsn
	}
}

// WithSeedFile sets a YAML catalog merged into the store on Start.
func WithSeedFile(path string) Option {
	return func(s *Service) {
		s.seedPath = path
	}
}

// WithDefaultRating sets the baseline rating for new items and resets.
func WithDefaultRating(r float64) Option {
	return func(s *Service) {
		if r > 0 {
			s.baseline = r
		}
	}
}

// WithKTiers overrides the learning-rate tiers.
func WithKTiers(tiers []rating.Tier) Option {
	return func(s *Service) {
		s.tiers = tiers
	}
}

// WithSelectionExponent sets the matchup weighting exponent.
func WithSelectionExponent(p float64) Option {
	return func(s *Service) {
		if p >= 0 {
			s.exponent = p
		}
	}
}

// WithRandomSeed makes matchup selection reproducible. Zero keeps the
// clock-seeded default.
func WithRandomSeed(seed int64) Option {
	return func(s *Service) {
		s.randomSeed = seed
	}
}

// WithWorkerCount sets the number of outcome appliers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the outcome queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many matchup IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxLeaderboardLimit caps TopN.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
