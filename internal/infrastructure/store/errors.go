package store

import "errors"

// Error kinds surfaced by the contract. Expected conditions (not found,
// duplicate id, invalid input) are sentinels matched with errors.Is; backend
// failures wrap ErrUnavailable together with the driver error and are
// propagated, never swallowed or retried at this layer.
var (
	ErrNotFound      = errors.New("order not found")
	ErrAlreadyExists = errors.New("order already exists")
	ErrInvalidOrder  = errors.New("invalid order")
	ErrUnavailable   = errors.New("order backend unavailable")
)
