package types

import "time"

// NodeIdentity records one registered worker node. The registry is keyed by
// ID, so re-registration never produces a second entry.
type NodeIdentity struct {
	ID           string    `json:"id"`
	RegisteredAt time.Time `json:"registered_at"`
}
