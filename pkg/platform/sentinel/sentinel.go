package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Record stores, sinks and clients
// return these (optionally wrapped) so services can translate them into domain
// errors:
//   - ErrNotFound: no record is stored under the key
//   - ErrCorrupt: a stored record exists but cannot be decoded
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: backend temporarily unavailable
//   - ErrClosed: component already shut down
var (
	ErrNotFound     = errors.New("not found")
	ErrCorrupt      = errors.New("corrupt record")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrClosed       = errors.New("closed")
)
