package repository

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/elobattle/internal/domain/model"
	"github.com/okian/elobattle/internal/domain/types"
	"github.com/okian/elobattle/pkg/metrics"
)

// Standings is an in-memory ranked view of the catalog backed by a treap.
//
// Ordering: rating DESC, then item ID ASC. "less" means ranks earlier, so an
// in-order walk yields the leaderboard from best to worst. Node priorities
// are an xxhash of the item ID, which keeps the tree balanced in expectation
// and makes its shape independent of insertion order.
//
// Ranks use standard competition ranking: 1 + the number of items with a
// strictly higher rating, so tied items share a rank.
type Standings struct {
	mu   sync.RWMutex
	root *node
	byID map[string]model.Item
}

type node struct {
	id     string
	rating float64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aRating float64, aID string, bRating float64, bID string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, rating float64) *node {
	if n == nil {
		return &node{id: id, rating: rating, prio: xxhash.Sum64String(id), size: 1}
	}
	if less(rating, id, n.rating, n.id) {
		n.left = insert(n.left, id, rating)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, rating)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, id string, rating float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.id == id && n.rating == rating:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, rating)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, rating)
		}
	case less(rating, id, n.rating, n.id):
		n.left = remove(n.left, id, rating)
	default:
		n.right = remove(n.right, id, rating)
	}
	fix(n)
	return n
}

// countAbove returns the number of nodes rated strictly higher than rating.
func countAbove(n *node, rating float64) int {
	count := 0
	for n != nil {
		if n.rating > rating {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

func walk(n *node, limit int, visit func(*node)) int {
	if n == nil || limit <= 0 {
		return 0
	}
	seen := walk(n.left, limit, visit)
	if seen < limit {
		visit(n)
		seen++
	}
	if seen < limit {
		seen += walk(n.right, limit-seen, visit)
	}
	return seen
}

// NewStandings builds standings from a catalog.
func NewStandings(catalog model.Catalog) *Standings {
	s := &Standings{}
	s.Rebuild(catalog)
	return s
}

// Rebuild replaces the whole view.
func (s *Standings) Rebuild(catalog model.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.root = nil
	s.byID = make(map[string]model.Item, len(catalog))
	for id, it := range catalog {
		s.byID[id] = it
		s.root = insert(s.root, id, it.Rating)
	}
}

// Upsert inserts an item or moves it to its new position.
func (s *Standings) Upsert(it model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[it.ID]; ok {
		s.root = remove(s.root, old.ID, old.Rating)
	}
	s.byID[it.ID] = it
	s.root = insert(s.root, it.ID, it.Rating)
}

// Rank returns the entry for one item in O(log n).
func (s *Standings) Rank(_ context.Context, id string) (types.Entry, error) {
	defer observe("standings_rank", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("standings", "not_found")
		return types.Entry{}, ErrNotFound
	}
	e := types.FromItem(it)
	e.Rank = 1 + countAbove(s.root, it.Rating)
	return e, nil
}

// TopN returns up to n entries from the top of the leaderboard.
func (s *Standings) TopN(_ context.Context, n int) ([]types.Entry, error) {
	defer observe("standings_top", time.Now())

	if n < 1 {
		metrics.RecordErrorByComponent("standings", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Entry, 0, min(n, len(s.byID)))
	walk(s.root, n, func(nd *node) {
		e := types.FromItem(s.byID[nd.id])
		switch {
		case len(out) == 0:
			e.Rank = 1
		case out[len(out)-1].Rating == e.Rating:
			e.Rank = out[len(out)-1].Rank
		default:
			e.Rank = len(out) + 1
		}
		out = append(out, e)
	})
	return out, nil
}

// Count returns the number of ranked items.
func (s *Standings) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
