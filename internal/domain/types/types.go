// Package types contains common types used across the application
package types

import "github.com/okian/elobattle/internal/domain/model"

// Entry represents a leaderboard entry
type Entry struct {
	Rank        int      `json:"rank"`
	ItemID      string   `json:"item_id"`
	Title       string   `json:"title"`
	Genres      []string `json:"genres,omitempty"`
	Rating      float64  `json:"rating"`
	Comparisons int      `json:"comparisons"`
	Wins        int      `json:"wins"`
	Losses      int      `json:"losses"`
	Draws       int      `json:"draws"`
}

// FromItem builds an unranked entry from a catalog item.
func FromItem(it model.Item) Entry {
	return Entry{
		ItemID:      it.ID,
		Title:       it.Title,
		Genres:      it.Genres,
		Rating:      it.Rating,
		Comparisons: it.Comparisons,
		Wins:        it.Wins,
		Losses:      it.Losses,
		Draws:       it.Draws,
	}
}

// WinRate returns wins plus half the draws over comparisons, or 0 when the
// item has never been compared.
func (e Entry) WinRate() float64 {
	if e.Comparisons == 0 {
		return 0
	}
	return (float64(e.Wins) + 0.5*float64(e.Draws)) / float64(e.Comparisons)
}

// GenreStat summarises the ratings of all items tagged with one genre.
type GenreStat struct {
	Genre         string  `json:"genre"`
	AverageRating float64 `json:"average_rating"`
	Count         int     `json:"count"`
}
