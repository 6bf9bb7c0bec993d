// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/iliyamo/lab-equipment-reservation/internal/model"
)

// ReservationQueueName is the durable queue every reservation event goes to.
const ReservationQueueName = "reservation.events"

// Event kinds, one per workflow action.
const (
    EventCreated  = "reservation.created"
    EventUpdated  = "reservation.updated"
    EventApproved = "reservation.approved"
    EventRejected = "reservation.rejected"
    EventAssigned = "reservation.assigned"
    EventDeleted  = "reservation.deleted"
    EventMessage  = "reservation.message"
)

// ReservationEvent is published after a workflow action succeeds on the
// remote API.  It carries enough for downstream consumers to log or
// notify without calling the API again.
type ReservationEvent struct {
    Kind          string       `json:"kind"`
    ReservationID string       `json:"reservation_id"`
    Code          string       `json:"code,omitempty"`
    Subject       string       `json:"subject,omitempty"`
    Instructor    string       `json:"instructor_email,omitempty"`
    Status        model.Status `json:"status,omitempty"`
    Actor         string       `json:"actor"`
    ActorName     string       `json:"actor_name,omitempty"`
    Reason        string       `json:"reason,omitempty"`
    ItemCount     int          `json:"item_count,omitempty"`
    OccurredAt    string       `json:"occurred_at"`
}

// NewReservationEvent fills the common fields from a reservation snapshot.
// r may be nil for deletions.
func NewReservationEvent(kind, id string, r *model.Reservation, actor model.Identity) ReservationEvent {
    ev := ReservationEvent{
        Kind:          kind,
        ReservationID: id,
        Actor:         actor.Sender(),
        ActorName:     actor.DisplayName(),
        OccurredAt:    time.Now().UTC().Format(time.RFC3339),
    }
    if r != nil {
        ev.Code = r.Code
        ev.Subject = r.Subject
        ev.Instructor = r.InstructorEmail
        ev.Status = r.Status
        ev.ItemCount = len(r.RequestedItems)
    }
    return ev
}
