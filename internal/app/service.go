// Package service wires the rating engine, the matchup selector, the
// catalog store and the outcome queue into the operations used by the HTTP
// API.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/elobattle/internal/adapters/mq/queue"
	workerpool "github.com/okian/elobattle/internal/adapters/mq/worker"
	"github.com/okian/elobattle/internal/adapters/repository"
	"github.com/okian/elobattle/internal/catalog"
	"github.com/okian/elobattle/internal/domain/dedupe"
	"github.com/okian/elobattle/internal/domain/model"
	"github.com/okian/elobattle/internal/domain/rating"
	"github.com/okian/elobattle/internal/domain/selection"
	"github.com/okian/elobattle/internal/domain/types"
	"github.com/okian/elobattle/pkg/logger"
	"github.com/okian/elobattle/pkg/metrics"
)

// Defaults used when no option overrides them.
const (
	DefaultRating              = 1200
	DefaultQueueSize           = 1024
	DefaultWorkerCount         = 1
	DefaultMaxLeaderboardLimit = 100
)

// UnknownGenre is the placeholder tag for items without a known genre.
const UnknownGenre = "Unknown"

// Matchup is a pair of items offered for judgement.
type Matchup struct {
	ID       string      `json:"matchup_id"`
	A        types.Entry `json:"item_a"`
	B        types.Entry `json:"item_b"`
	Fallback bool        `json:"-"`
}

// Submission is a judgement sent by a rater. Either Outcome (one of the
// quantized labels) or Score must be set; when both are set they must agree.
//
// MatchupID is an idempotency key chosen by the client. IDs handed out by
// NextMatchup are the usual source but are not required, and the ID is not
// bound to the pair it was issued for: any ID that has not been seen yet is
// accepted for any two catalog items. A replayed ID is reported as a
// duplicate by the in-memory deduper and, after a restart, skipped by the
// store's comparison log.
type Submission struct {
	MatchupID string
	ItemA     string
	ItemB     string
	Outcome   string
	Score     *float64
}

// Service implements the API dependencies for the ranking service.
type Service struct {
	// mu guards the lifecycle; state guards the catalog and the selector.
	// Apply runs on worker goroutines and only takes state, so Stop can wait
	// for the workers while holding mu.
	mu    sync.Mutex
	state sync.RWMutex

	// Core components
	store     repository.Store
	ownsStore bool
	standings *repository.Standings
	items     model.Catalog
	known     map[string]struct{} // item IDs, fixed after Start
	engine    *rating.Engine
	selector  *selection.Selector
	deduper   dedupe.Deduper
	queue     *eventqueue.InMemoryQueue
	pool      *workerpool.Pool

	// Configuration
	dbDriver    string
	dbDSN       string
	seedPath    string
	baseline    float64
	tiers       []rating.Tier
	exponent    float64
	randomSeed  int64
	workerCount int
	queueSize   int
	dedupeSize  int
	maxLimit    int

	// State
	started bool
	applied atomic.Int64
	resetAt time.Time // outcomes recorded before this are stale; guarded by state

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbDriver:    repository.DriverSQLite,
		dbDSN:       "elobattle.db",
		baseline:    DefaultRating,
		exponent:    selection.DefaultExponent,
		workerCount: DefaultWorkerCount,
		queueSize:   DefaultQueueSize,
		dedupeSize:  dedupe.DefaultMaxSize,
		maxLimit:    DefaultMaxLeaderboardLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store, merges the seed catalog, builds the standings and
// starts the outcome workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting ranking service...")

	engineOpts := []rating.Option{}
	if s.tiers != nil {
		engineOpts = append(engineOpts, rating.WithTiers(s.tiers))
	}
	s.engine = rating.NewEngine(engineOpts...)
	if err := s.engine.TierErr(); err != nil {
		s.logger.Warn(ctx, "k-factor tiers rejected, using fallback rate",
			logger.Float64("k", rating.FallbackK),
			logger.Error(err),
		)
	}

	selOpts := []selection.Option{selection.WithExponent(s.exponent)}
	if s.randomSeed != 0 {
		selOpts = append(selOpts, selection.WithSeed(s.randomSeed))
	}
	s.selector = selection.New(selOpts...)

	if s.store == nil {
		store, err := repository.Open(ctx, s.dbDriver, s.dbDSN)
		if err != nil {
			return fmt.Errorf("service: open store: %w", err)
		}
		s.store = store
		s.ownsStore = true
	}

	items, err := s.loadCatalog(ctx)
	if err != nil {
		s.closeOwnedStore(ctx)
		return err
	}
	s.items = items
	s.known = make(map[string]struct{}, len(items))
	for id := range items {
		s.known[id] = struct{}{}
	}
	s.standings = repository.NewStandings(items)
	metrics.UpdateCatalogSize(len(items))

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("items", len(items)),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop drains the outcome queue and closes the store if the service opened
// it. Outcomes still queued when ctx expires are dropped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping ranking service...")

	var err error
	if s.pool != nil {
		if perr := s.pool.Shutdown(ctx); perr != nil {
			err = fmt.Errorf("service: drain outcomes: %w", perr)
		}
	}
	s.closeOwnedStore(ctx)

	s.started = false
	s.logger.Info(ctx, "ranking service stopped", logger.Int64("applied", s.applied.Load()))
	return err
}

func (s *Service) loadCatalog(ctx context.Context) (model.Catalog, error) {
	items, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: load catalog: %w", err)
	}
	if s.seedPath == "" {
		return items, nil
	}

	seed, err := catalog.LoadSeed(s.seedPath, s.baseline)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	added := catalog.Merge(items, seed, s.baseline)
	if len(added) > 0 {
		if err := s.store.SaveCatalog(ctx, added); err != nil {
			return nil, fmt.Errorf("service: save seeded items: %w", err)
		}
		for id, it := range added {
			items[id] = it
		}
		s.logger.Info(ctx, "seeded catalog", logger.Int("added", len(added)), logger.String("path", s.seedPath))
	}
	return items, nil
}

func (s *Service) closeOwnedStore(ctx context.Context) {
	if !s.ownsStore {
		return
	}

	// Waits for an in-flight Apply before the store goes away.
	s.state.Lock()
	store := s.store
	s.store = nil
	s.ownsStore = false
	s.state.Unlock()

	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}
}

func (s *Service) isStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// NextMatchup draws the next pair to compare.
func (s *Service) NextMatchup(ctx context.Context) (Matchup, error) {
	if !s.isStarted() {
		return Matchup{}, ErrNotStarted
	}

	s.state.Lock()
	pair, err := s.selector.SelectPair(s.items)
	s.state.Unlock()
	if err != nil {
		metrics.RecordErrorByComponent("selection", "insufficient_items")
		return Matchup{}, fmt.Errorf("service: select pair: %w", err)
	}
	if pair.Fallback {
		metrics.RecordSelectionFallback()
		s.logger.Warn(ctx, "matchup weights unusable, drew uniformly",
			logger.Float64("exponent", s.selector.Exponent()),
		)
	}

	a, err := s.standings.Rank(ctx, pair.A)
	if err != nil {
		return Matchup{}, fmt.Errorf("service: rank %s: %w", pair.A, err)
	}
	b, err := s.standings.Rank(ctx, pair.B)
	if err != nil {
		return Matchup{}, fmt.Errorf("service: rank %s: %w", pair.B, err)
	}

	metrics.RecordMatchupServed()
	return Matchup{ID: uuid.NewString(), A: a, B: b, Fallback: pair.Fallback}, nil
}

// Submit validates a judgement and queues it for the workers. It reports
// true when the matchup ID was already submitted, in which case nothing is
// queued.
func (s *Service) Submit(ctx context.Context, sub Submission) (bool, error) {
	if !s.isStarted() {
		return false, ErrNotStarted
	}

	c, err := s.resolve(sub)
	if err != nil {
		metrics.RecordErrorByComponent("service", "invalid_submission")
		return false, err
	}

	if _, ok := s.known[c.ItemA]; !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownItem, c.ItemA)
	}
	if _, ok := s.known[c.ItemB]; !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownItem, c.ItemB)
	}

	if s.deduper.SeenAndRecord(ctx, c.MatchupID) {
		metrics.RecordOutcomeDuplicate()
		s.logger.Debug(ctx, "duplicate outcome skipped", logger.String("matchup_id", c.MatchupID))
		return true, nil
	}

	if err := s.queue.Enqueue(ctx, c); err != nil {
		s.deduper.Unrecord(ctx, c.MatchupID)
		if errors.Is(err, eventqueue.ErrFull) {
			return false, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return false, fmt.Errorf("service: enqueue outcome: %w", err)
	}

	metrics.RecordOutcomeSubmitted()
	s.logger.Debug(ctx, "outcome queued",
		logger.String("matchup_id", c.MatchupID),
		logger.String("outcome", c.Outcome),
	)
	return false, nil
}

func (s *Service) resolve(sub Submission) (model.Comparison, error) {
	c := model.Comparison{
		MatchupID:  strings.TrimSpace(sub.MatchupID),
		ItemA:      strings.TrimSpace(sub.ItemA),
		ItemB:      strings.TrimSpace(sub.ItemB),
		RecordedAt: time.Now().UTC(),
	}
	switch {
	case c.MatchupID == "":
		return c, fmt.Errorf("%w: matchup_id is required", ErrInvalidSubmission)
	case c.ItemA == "" || c.ItemB == "":
		return c, fmt.Errorf("%w: item_a and item_b are required", ErrInvalidSubmission)
	case c.ItemA == c.ItemB:
		return c, fmt.Errorf("%w: %s", ErrSameItem, c.ItemA)
	}

	label := strings.TrimSpace(sub.Outcome)
	switch {
	case label != "":
		o, ok := model.OutcomeByLabel(label)
		if !ok {
			return c, fmt.Errorf("%w: unknown outcome %q", ErrInvalidSubmission, label)
		}
		if sub.Score != nil && *sub.Score != o.Score {
			return c, fmt.Errorf("%w: outcome %q does not match score %v", ErrInvalidSubmission, o.Label, *sub.Score)
		}
		c.Outcome, c.ScoreA = o.Label, o.Score
	case sub.Score != nil:
		if err := rating.ValidateScore(*sub.Score); err != nil {
			return c, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
		}
		c.Outcome, c.ScoreA = model.LabelForScore(*sub.Score), *sub.Score
	default:
		return c, fmt.Errorf("%w: outcome or score is required", ErrInvalidSubmission)
	}
	return c, nil
}

// Apply runs one queued outcome through the rating engine and persists it.
// It implements the worker Applier. An outcome the store already holds is
// skipped without error.
func (s *Service) Apply(ctx context.Context, c model.Comparison) error { //nolint:gocritic // hugeParam: events travel by value
	s.state.Lock()
	defer s.state.Unlock()

	if s.store == nil {
		return s.reject(ctx, c, ErrNotStarted)
	}

	if c.RecordedAt.Before(s.resetAt) {
		metrics.RecordErrorByComponent("service", "stale_outcome")
		s.logger.Debug(ctx, "outcome predates reset, dropped", logger.String("matchup_id", c.MatchupID))
		return nil
	}

	a, okA := s.items[c.ItemA]
	b, okB := s.items[c.ItemB]
	if !okA || !okB {
		return s.reject(ctx, c, fmt.Errorf("%w: %s vs %s", ErrUnknownItem, c.ItemA, c.ItemB))
	}

	res, err := s.engine.Apply(a, b, c.ScoreA)
	if err != nil {
		return s.reject(ctx, c, fmt.Errorf("service: rate %s: %w", c.MatchupID, err))
	}

	if err := s.store.RecordRound(ctx, res.A, res.B, c); err != nil {
		if errors.Is(err, repository.ErrDuplicateRound) {
			metrics.RecordOutcomeDuplicate()
			s.logger.Debug(ctx, "outcome already recorded", logger.String("matchup_id", c.MatchupID))
			return nil
		}
		return s.reject(ctx, c, fmt.Errorf("service: record %s: %w", c.MatchupID, err))
	}

	s.items[res.A.ID] = res.A
	s.items[res.B.ID] = res.B
	s.standings.Upsert(res.A)
	s.standings.Upsert(res.B)
	s.applied.Add(1)

	metrics.RecordOutcomeApplied(res.K, res.Delta)
	s.logger.Debug(ctx, "outcome applied",
		logger.String("matchup_id", c.MatchupID),
		logger.Float64("k", res.K),
		logger.Float64("delta", res.Delta),
		logger.Float64("rating_a", res.A.Rating),
		logger.Float64("rating_b", res.B.Rating),
	)
	return nil
}

// reject counts a failed outcome and forgets its matchup ID so the rater can
// resubmit it.
func (s *Service) reject(ctx context.Context, c model.Comparison, err error) error { //nolint:gocritic // hugeParam: events travel by value
	metrics.RecordOutcomeFailed()
	if s.deduper != nil {
		s.deduper.Unrecord(ctx, c.MatchupID)
	}
	return err
}

// TopN returns the top n leaderboard entries; n is capped at the configured
// maximum.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	if n > s.maxLimit {
		n = s.maxLimit
	}
	return s.standings.TopN(ctx, n)
}

// Rank returns the leaderboard entry of one item.
func (s *Service) Rank(ctx context.Context, id string) (types.Entry, error) {
	if !s.isStarted() {
		return types.Entry{}, ErrNotStarted
	}
	e, err := s.standings.Rank(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return types.Entry{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	return e, err
}

// Genres returns the average rating, rounded to a whole point, of every genre
// shared by more than one item, highest average first. The "Unknown"
// placeholder genre is left out.
func (s *Service) Genres(_ context.Context) ([]types.GenreStat, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}

	type acc struct {
		sum   float64
		count int
	}
	byGenre := make(map[string]*acc)

	s.state.RLock()
	for _, it := range s.items {
		for _, g := range it.Genres {
			if g == UnknownGenre {
				continue
			}
			a := byGenre[g]
			if a == nil {
				a = &acc{}
				byGenre[g] = a
			}
			a.sum += it.Rating
			a.count++
		}
	}
	s.state.RUnlock()

	out := make([]types.GenreStat, 0, len(byGenre))
	for g, a := range byGenre {
		if a.count < 2 {
			continue
		}
		out = append(out, types.GenreStat{
			Genre:         g,
			AverageRating: math.Round(a.sum / float64(a.count)),
			Count:         a.count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageRating != out[j].AverageRating {
			return out[i].AverageRating > out[j].AverageRating
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Genre < out[j].Genre
	})
	return out, nil
}

// Reset puts every item back to the baseline rating, clears the outcome log
// and forgets every submitted matchup ID. Outcomes still queued from before
// the reset are dropped when a worker picks them up.
func (s *Service) Reset(ctx context.Context) error {
	if !s.isStarted() {
		return ErrNotStarted
	}

	s.state.Lock()
	defer s.state.Unlock()

	if err := s.store.Reset(ctx, s.baseline); err != nil {
		return fmt.Errorf("service: reset store: %w", err)
	}
	items, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("service: reload catalog: %w", err)
	}
	s.items = items
	s.standings.Rebuild(items)
	s.deduper.Clear(ctx)
	s.applied.Store(0)
	s.resetAt = time.Now().UTC()

	s.logger.Info(ctx, "ratings reset", logger.Float64("baseline", s.baseline), logger.Int("items", len(items)))
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"exponent":    s.exponent,
	}

	if s.started {
		itemCount := len(s.known)

		stats["queueLength"] = s.queue.Len()
		stats["totalItems"] = itemCount
		stats["seenMatchups"] = s.deduper.Size()
		stats["applied"] = s.applied.Load()
		stats["failed"] = s.pool.Failed()

		metrics.UpdateQueueSize(s.queue.Len())
		metrics.UpdateCatalogSize(itemCount)
	}

	return stats
}
