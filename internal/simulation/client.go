package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrStatus is returned when the service answers with an unexpected status.
var ErrStatus = errors.New("unexpected status")

type entry struct {
	Rank        int     `json:"rank"`
	ItemID      string  `json:"item_id"`
	Rating      float64 `json:"rating"`
	Comparisons int     `json:"comparisons"`
}

type matchup struct {
	MatchupID string `json:"matchup_id"`
	A         entry  `json:"item_a"`
	B         entry  `json:"item_b"`
}

type outcome struct {
	MatchupID string `json:"matchup_id"`
	ItemA     string `json:"item_a"`
	ItemB     string `json:"item_b"`
	Outcome   string `json:"outcome"`
}

type ack struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// client talks to the ranking service over HTTP.
type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{base: base, http: &http.Client{Timeout: timeout}}
}

func (c *client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: get %s: %d", ErrStatus, path, resp.StatusCode)
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *client) health(ctx context.Context) error {
	return c.getJSON(ctx, "/healthz", nil)
}

func (c *client) matchup(ctx context.Context) (matchup, error) {
	var m matchup
	err := c.getJSON(ctx, "/matchup", &m)
	return m, err
}

func (c *client) leaderboard(ctx context.Context, limit int) ([]entry, error) {
	var out []entry
	err := c.getJSON(ctx, "/leaderboard?limit="+strconv.Itoa(limit), &out)
	return out, err
}

func (c *client) applied(ctx context.Context) (int64, error) {
	var stats struct {
		Applied int64 `json:"applied"`
	}
	err := c.getJSON(ctx, "/stats", &stats)
	return stats.Applied, err
}

// submit posts a judgement and returns the HTTP status.
func (c *client) submit(ctx context.Context, o outcome) (int, ack, error) {
	body, err := json.Marshal(o)
	if err != nil {
		return 0, ack{}, fmt.Errorf("encode outcome: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/outcomes", bytes.NewReader(body))
	if err != nil {
		return 0, ack{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, ack{}, fmt.Errorf("post outcome: %w", err)
	}
	defer resp.Body.Close()

	var a ack
	_ = json.NewDecoder(resp.Body).Decode(&a)
	return resp.StatusCode, a, nil
}
