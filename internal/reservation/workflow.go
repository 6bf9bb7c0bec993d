package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/iliyamo/lab-equipment-reservation/internal/inventory"
	"github.com/iliyamo/lab-equipment-reservation/internal/model"
	"github.com/iliyamo/lab-equipment-reservation/internal/queue"
)

// API is the part of the remote reservation client the workflow needs.
type API interface {
	List(ctx context.Context) ([]model.Reservation, error)
	Get(ctx context.Context, id string) (*model.Reservation, error)
	Create(ctx context.Context, in model.ReservationInput) (*model.Reservation, error)
	Update(ctx context.Context, id string, in model.ReservationInput) (*model.Reservation, error)
	Approve(ctx context.Context, id, approvedBy string) (*model.Reservation, error)
	Reject(ctx context.Context, id, reason, rejectedBy, rejectedName string) (*model.Reservation, error)
	Assign(ctx context.Context, id string, items []model.AssignedItem, assignedBy string) (*model.Reservation, error)
	Delete(ctx context.Context, id string) error
}

// Publisher receives an event after each successful action.
type Publisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

const bulkDeleteConcurrency = 8

// Workflow applies the status guards locally and forwards allowed actions
// to the API.  A failed guard never reaches the network.
type Workflow struct {
	api    API
	events Publisher
	log    *zap.Logger
}

// NewWorkflow wires the workflow.  events may be nil.
func NewWorkflow(api API, events Publisher, log *zap.Logger) *Workflow {
	if api == nil {
		panic("nil API passed to NewWorkflow")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Workflow{api: api, events: events, log: log}
}

func (w *Workflow) publish(ctx context.Context, ev queue.ReservationEvent) {
	if w.events == nil {
		return
	}
	if err := w.events.Publish(ctx, ev); err != nil {
		w.log.Warn("publish reservation event", zap.String("kind", ev.Kind), zap.String("reservation_id", ev.ReservationID), zap.Error(err))
	}
}

// Create validates the draft and submits it.  The API answers with the
// new id, code and Pending status.
func (w *Workflow) Create(ctx context.Context, d *Draft, by model.Identity) (*model.Reservation, error) {
	if strings.TrimSpace(d.InstructorEmail) == "" {
		d.InstructorEmail = by.Email
	}
	in, err := d.BuildPayload()
	if err != nil {
		return nil, err
	}
	res, err := w.api.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	w.log.Info("reservation created", zap.String("id", res.ID), zap.String("code", res.Code), zap.String("by", by.Sender()))
	w.publish(ctx, queue.NewReservationEvent(queue.EventCreated, res.ID, res, by))
	return res, nil
}

// Update edits a Pending or Approved reservation.  The status is left
// alone and the API appends the change to the audit trail.
func (w *Workflow) Update(ctx context.Context, r *model.Reservation, d *Draft, by model.Identity, reason string) (*model.Reservation, error) {
	if r == nil || !CanEdit(r.Status) {
		status := model.Status("")
		if r != nil {
			status = r.Status
		}
		return nil, fmt.Errorf("%w: %s reservations cannot be edited", ErrInvalidTransition, status)
	}
	in, err := d.BuildPayload()
	if err != nil {
		return nil, err
	}
	in.EditedBy = by.Sender()
	in.EditedName = by.DisplayName()
	in.EditReason = strings.TrimSpace(reason)
	res, err := w.api.Update(ctx, r.ID, in)
	if err != nil {
		return nil, fmt.Errorf("update reservation %s: %w", r.ID, err)
	}
	ev := queue.NewReservationEvent(queue.EventUpdated, r.ID, res, by)
	ev.Reason = in.EditReason
	w.publish(ctx, ev)
	return res, nil
}

// Approve moves a Pending reservation to Approved.
func (w *Workflow) Approve(ctx context.Context, r *model.Reservation, by model.Identity) (*model.Reservation, error) {
	if err := checkTransition(r, model.StatusApproved); err != nil {
		return nil, err
	}
	res, err := w.api.Approve(ctx, r.ID, by.Sender())
	if err != nil {
		return nil, fmt.Errorf("approve reservation %s: %w", r.ID, err)
	}
	w.log.Info("reservation approved", zap.String("id", r.ID), zap.String("by", by.Sender()))
	w.publish(ctx, queue.NewReservationEvent(queue.EventApproved, r.ID, res, by))
	return res, nil
}

// Reject moves a Pending or Approved reservation to Rejected.  reason is
// optional.
func (w *Workflow) Reject(ctx context.Context, r *model.Reservation, reason string, by model.Identity) (*model.Reservation, error) {
	if err := checkTransition(r, model.StatusRejected); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	res, err := w.api.Reject(ctx, r.ID, reason, by.Sender(), by.DisplayName())
	if err != nil {
		return nil, fmt.Errorf("reject reservation %s: %w", r.ID, err)
	}
	w.log.Info("reservation rejected", zap.String("id", r.ID), zap.String("by", by.Sender()))
	ev := queue.NewReservationEvent(queue.EventRejected, r.ID, res, by)
	ev.Reason = reason
	w.publish(ctx, ev)
	return res, nil
}

// Assign binds inventory to every requested line of an Approved
// reservation.  All lines must carry an item id.
func (w *Workflow) Assign(ctx context.Context, r *model.Reservation, items []model.AssignedItem, by model.Identity) (*model.Reservation, error) {
	if err := checkTransition(r, model.StatusAssigned); err != nil {
		return nil, err
	}
	if len(items) != len(r.RequestedItems) {
		return nil, fmt.Errorf("%w: %d of %d lines assigned", inventory.ErrIncompleteAssignment, len(items), len(r.RequestedItems))
	}
	for _, it := range items {
		if strings.TrimSpace(it.ItemID) == "" {
			return nil, inventory.ErrIncompleteAssignment
		}
	}
	res, err := w.api.Assign(ctx, r.ID, items, by.Sender())
	if err != nil {
		return nil, fmt.Errorf("assign reservation %s: %w", r.ID, err)
	}
	w.log.Info("reservation assigned", zap.String("id", r.ID), zap.Int("items", len(items)), zap.String("by", by.Sender()))
	w.publish(ctx, queue.NewReservationEvent(queue.EventAssigned, r.ID, res, by))
	return res, nil
}

// AssignSession submits a completed assignment session.
func (w *Workflow) AssignSession(ctx context.Context, r *model.Reservation, s *inventory.Session, by model.Identity) (*model.Reservation, error) {
	if err := checkTransition(r, model.StatusAssigned); err != nil {
		return nil, err
	}
	items, err := s.Build()
	if err != nil {
		return nil, err
	}
	for _, oc := range s.Overcommitted() {
		w.log.Warn("assignment shares inventory beyond stock",
			zap.String("reservation_id", r.ID),
			zap.String("item_id", oc.ItemID),
			zap.Int("available", oc.Available),
			zap.Int("needed", oc.Needed))
	}
	return w.Assign(ctx, r, items, by)
}

// Delete hard-deletes one reservation.
func (w *Workflow) Delete(ctx context.Context, id string, by model.Identity) error {
	if err := w.api.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete reservation %s: %w", id, err)
	}
	w.publish(ctx, queue.NewReservationEvent(queue.EventDeleted, id, nil, by))
	return nil
}

// DeleteResult is the outcome for one id of a bulk delete.
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// BulkDeleteReport lists a result per requested id plus the collection as
// refetched after the deletes.
type BulkDeleteReport struct {
	Results   []DeleteResult      `json:"results"`
	Remaining []model.Reservation `json:"remaining"`
}

// Failed counts ids that still exist after reconciliation.
func (r BulkDeleteReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Deleted {
			n++
		}
	}
	return n
}

// BulkDelete deletes ids concurrently and then reconciles against a fresh
// list: an id whose call failed but which is gone from the list is
// reported as deleted.  The returned error is non-nil only when the
// refetch itself fails; per-id failures are in the report.
func (w *Workflow) BulkDelete(ctx context.Context, ids []string, by model.Identity) (BulkDeleteReport, error) {
	report := BulkDeleteReport{Results: make([]DeleteResult, len(ids))}
	sem := make(chan struct{}, bulkDeleteConcurrency)
	var wg sync.WaitGroup
	for i, id := range ids {
		report.Results[i].ID = id
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if err := w.Delete(ctx, id, by); err != nil {
				report.Results[i].Error = err.Error()
				return
			}
			report.Results[i].Deleted = true
		}(i, id)
	}
	wg.Wait()

	remaining, err := w.api.List(ctx)
	if err != nil {
		return report, fmt.Errorf("refetch after bulk delete: %w", err)
	}
	present := make(map[string]bool, len(remaining))
	for _, r := range remaining {
		present[r.ID] = true
	}
	for i := range report.Results {
		res := &report.Results[i]
		if !res.Deleted && !present[res.ID] {
			res.Deleted = true
			w.log.Info("bulk delete reconciled", zap.String("id", res.ID), zap.String("call_error", res.Error))
		}
	}
	report.Remaining = remaining
	if n := report.Failed(); n > 0 {
		w.log.Warn("bulk delete incomplete", zap.Int("failed", n), zap.Int("requested", len(ids)))
	}
	return report, nil
}

// IsGuardError reports whether err came from a local guard or validation
// and was therefore never sent to the API.
func IsGuardError(err error) bool {
	var ve *ValidationError
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, inventory.ErrIncompleteAssignment) ||
		errors.As(err, &ve)
}
