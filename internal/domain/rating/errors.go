package rating

import "errors"

// Sentinel kinds for rating errors.
var (
	ErrInvalidRating  = errors.New("invalid rating")
	ErrInvalidScore   = errors.New("outcome score must be within [0,1]")
	ErrInvalidKFactor = errors.New("invalid k-factor")
	ErrMalformedTiers = errors.New("malformed k-factor tier table")
)
