// Package queue defines message payloads exchanged over the message broker.
package queue

// QueueName is the durable queue carrying reservation lifecycle events.
const QueueName = "reservation.events"

// Event types.
const (
    EventCreated      = "reservation.created"
    EventStateChanged = "reservation.state_changed"
)

// ReservationEvent is published after a reservation is created or its state
// is updated.  For state changes only ReservationID, State and
// AffectedRows are set; AffectedRows is zero when the id did not exist.
type ReservationEvent struct {
    Type          string  `json:"type"`
    ReservationID int64   `json:"reservation_id"`
    UserID        string  `json:"user_id,omitempty"`
    Longitude     float64 `json:"longitude,omitempty"`
    Latitude      float64 `json:"latitude,omitempty"`
    State         string  `json:"state"`
    AffectedRows  int64   `json:"affected_rows,omitempty"`
    OccurredAt    string  `json:"occurred_at"`
}
