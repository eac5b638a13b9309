package sentinel

import "errors"

// Sentinel errors for storage facts. Identity and session adapters return
// these (optionally wrapped) and services translate them into coded errors
// from pkg/domain-errors.
//
//   - ErrNotFound: no identity with the requested email or id
//   - ErrConflict: an identity with the same email already exists
//   - ErrInvalidState: a write was attempted without a positive TTL
//   - ErrUnavailable: the backing store cannot be reached
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
