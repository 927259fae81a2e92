// Package events defines the domain events the attendance engine emits and
// the interface for delivering them (e.g. to Kafka).
package events

import "time"

// Event types emitted by the engine.
const (
	TypeCheckIn     = "attendance.checkin"
	TypeRoundClosed = "round.closed"
	TypeRoundActive = "round.active"
)

// Event is a single attendance domain event. Serialized as JSON on the wire.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	RoundID   string    `json:"roundId"`
	// Attendee is the attendance identity key for check-in events.
	Attendee  string    `json:"attendee,omitempty"`
	Status    string    `json:"status,omitempty"`
	Points    int       `json:"points,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
