// Package reservation holds the reservation workflow: the draft form
// model, the status state machine, and the derived list views.  It
// talks to the remote API only through the small API interface so the
// guards can be exercised without a network.
package reservation

import (
	"errors"
	"fmt"

	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

// ErrInvalidTransition is returned, before any request is sent, when an
// action is not allowed from the reservation's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// allowedTransitions is the whole state machine.  Assigned and Rejected
// have no outgoing edges: there is no reopen.
var allowedTransitions = map[model.Status]map[model.Status]bool{
	model.StatusPending:  {model.StatusApproved: true, model.StatusRejected: true},
	model.StatusApproved: {model.StatusAssigned: true, model.StatusRejected: true},
	model.StatusAssigned: {},
	model.StatusRejected: {},
}

// CanTransition reports whether from → to is an exposed transition.
func CanTransition(from, to model.Status) bool {
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}

// CanEdit reports whether a reservation in status s may be edited.  Edits
// keep the status unchanged.
func CanEdit(s model.Status) bool {
	return s == model.StatusPending || s == model.StatusApproved
}

func checkTransition(r *model.Reservation, to model.Status) error {
	if r == nil {
		return fmt.Errorf("%w: no reservation", ErrInvalidTransition)
	}
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s cannot become %s", ErrInvalidTransition, r.Status, to)
	}
	return nil
}

// Actions lists what the UI may offer for r, keyed by action name.
type Actions struct {
	Approve bool `json:"approve"`
	Reject  bool `json:"reject"`
	Assign  bool `json:"assign"`
	Edit    bool `json:"edit"`
}

// AvailableActions derives the enabled actions from the status alone.
func AvailableActions(r *model.Reservation) Actions {
	if r == nil {
		return Actions{}
	}
	return Actions{
		Approve: CanTransition(r.Status, model.StatusApproved),
		Reject:  CanTransition(r.Status, model.StatusRejected),
		Assign:  CanTransition(r.Status, model.StatusAssigned),
		Edit:    CanEdit(r.Status),
	}
}
