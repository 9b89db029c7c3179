package domain

import "time"

// DeliveryLog is one append-only audit row for a single send attempt.
// ActorID is nil when the acting session could not be resolved; that is a
// normal state, not an error.
type DeliveryLog struct {
	ID           string
	ActorID      *string
	Operation    Operation
	Phone        string
	Success      bool
	ErrorMessage *string
	MediaURL     *string
	Caption      *string
	Meta         map[string]string
	CreatedAt    time.Time
}
