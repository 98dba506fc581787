package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrUnknownItem       = errors.New("unknown item")
	ErrSameItem          = errors.New("an item cannot be compared with itself")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrBackpressure      = errors.New("outcome queue is full")
)
