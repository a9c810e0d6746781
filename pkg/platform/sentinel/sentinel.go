package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: versioned commit lost the race, caller retries from a fresh snapshot
// - ErrAlreadyUsed: signer already contributed to this decision or collection
// - ErrInvalidState: entity in wrong state for requested operation (e.g. resolved decision)
// - ErrOutOfOrder: anchor epoch does not follow the latest committed epoch
// - ErrUnavailable: collaborator or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrOutOfOrder   = errors.New("out of order")
	ErrUnavailable  = errors.New("unavailable")
)
