package node

import "time"

// Policy describes per-instance values for max_retries, retry_delay,
// timeout, and max_visits. Zero fields stand for "use the registry/engine
// default". The engine does not read Policy: retry, timeout, and visit
// limits come from the registry Interface and the engine options.
type Policy struct {
	MaxRetries     int
	RetryDelay     time.Duration
	TimeoutSeconds float64
	MaxVisits      int
}

// PolicyProvider lets a node instance report a Policy. The engine does
// not consult it, so implementing it does not change a node's registered
// defaults.
type PolicyProvider interface {
	Policy() Policy
}
