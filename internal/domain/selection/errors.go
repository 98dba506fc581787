package selection

import "errors"

// ErrInsufficientItems is returned when fewer than two items are available.
var ErrInsufficientItems = errors.New("at least two items are required to form a matchup")
