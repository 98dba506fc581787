// Package catalog reads the seed file that bootstraps the item catalog.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/elobattle/internal/domain/model"
)

// UntitledItem is the title given to seed entries without one.
const UntitledItem = "Untitled"

// ErrEmptySeed is returned when a seed file lists no items.
var ErrEmptySeed = errors.New("seed file has no items")

// Seed is the on-disk layout of a catalog seed file.
//
//	items:
//	  - id: alien
//	    title: Alien
//	    genres: [Horror, Sci-Fi]
//	    rating: 1250
type Seed struct {
	Items []SeedItem `yaml:"items"`
}

// SeedItem is one entry of a seed file. Rating is a pointer so that an
// explicit 0 can be told apart from a missing value.
type SeedItem struct {
	ID     string   `yaml:"id"`
	Title  string   `yaml:"title"`
	Genres []string `yaml:"genres"`
	Rating *float64 `yaml:"rating"`
}

// LoadSeed reads and normalizes a seed file.
func LoadSeed(path string, baseline float64) ([]model.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read seed %s: %w", path, err)
	}
	return ParseSeed(data, baseline)
}

// ParseSeed decodes seed YAML and applies the loader rules: a missing id
// falls back to the title, a missing title becomes UntitledItem, a missing
// rating takes the baseline, and for duplicate IDs the first entry wins.
func ParseSeed(data []byte, baseline float64) ([]model.Item, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("catalog: decode seed: %w", err)
	}
	if len(seed.Items) == 0 {
		return nil, ErrEmptySeed
	}

	items := make([]model.Item, 0, len(seed.Items))
	seen := make(map[string]struct{}, len(seed.Items))
	for _, si := range seed.Items {
		title := strings.TrimSpace(si.Title)
		if title == "" {
			title = UntitledItem
		}
		id := strings.TrimSpace(si.ID)
		if id == "" {
			id = title
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		rating := baseline
		if si.Rating != nil {
			rating = *si.Rating
		}

		items = append(items, model.Item{
			ID:     id,
			Title:  title,
			Genres: cleanGenres(si.Genres),
			Rating: rating,
		})
	}
	return items, nil
}

// Merge returns the seed items the existing catalog does not know yet,
// with zeroed counters. Known items keep their stored state. Ratings that
// are not finite are replaced by the baseline.
func Merge(existing model.Catalog, seed []model.Item, baseline float64) model.Catalog {
	added := make(model.Catalog)
	for _, it := range seed {
		if _, ok := existing[it.ID]; ok {
			continue
		}
		if math.IsNaN(it.Rating) || math.IsInf(it.Rating, 0) {
			it.Rating = baseline
		}
		it.Comparisons, it.Wins, it.Losses, it.Draws = 0, 0, 0, 0
		added[it.ID] = it
	}
	return added
}

func cleanGenres(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, g := range in {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
