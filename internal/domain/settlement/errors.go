package settlement

import "errors"

var (
	// ErrUpstream wraps gateway failures; the claim was rolled back and the
	// transaction stays retryable.
	ErrUpstream = errors.New("gateway confirmation failed")
	// ErrIntegrity marks a data-integrity anomaly: the owning user or
	// wallet vanished mid-settlement. Rolled back, surfaced to the caller.
	ErrIntegrity = errors.New("settlement integrity anomaly")
)
