package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

// ReservationClient talks to the reservation REST API.
type ReservationClient struct {
	*base
}

// NewReservationClient returns a client rooted at baseURL (for example
// "https://lab.example.edu/api").
func NewReservationClient(baseURL string, timeout time.Duration, log *zap.Logger) (*ReservationClient, error) {
	b, err := newBase(baseURL, timeout, log)
	if err != nil {
		return nil, err
	}
	return &ReservationClient{base: b}, nil
}

func reservationPath(id string, suffix string) string {
	return "/reservations/" + url.PathEscape(id) + suffix
}

// List handles GET /reservations.
func (c *ReservationClient) List(ctx context.Context) ([]model.Reservation, error) {
	var out []model.Reservation
	if err := c.do(ctx, http.MethodGet, "/reservations", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByCode handles GET /reservations/code/{code}.  A missing code yields
// an error matching ErrNotFound.
func (c *ReservationClient) GetByCode(ctx context.Context, code string) (*model.Reservation, error) {
	var out model.Reservation
	if err := c.do(ctx, http.MethodGet, "/reservations/code/"+url.PathEscape(code), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get handles GET /reservations/{id}.  The chat poller calls it on every tick.
func (c *ReservationClient) Get(ctx context.Context, id string) (*model.Reservation, error) {
	var out model.Reservation
	if err := c.do(ctx, http.MethodGet, reservationPath(id, ""), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create handles POST /reservations.  The response carries the generated
// id, code and Pending status.
func (c *ReservationClient) Create(ctx context.Context, in model.ReservationInput) (*model.Reservation, error) {
	var out model.Reservation
	if err := c.do(ctx, http.MethodPost, "/reservations", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update handles PUT /reservations/{id}.  in must carry the edit metadata.
func (c *ReservationClient) Update(ctx context.Context, id string, in model.ReservationInput) (*model.Reservation, error) {
	var out model.Reservation
	if err := c.do(ctx, http.MethodPut, reservationPath(id, ""), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Approve handles POST /reservations/{id}/approve.
func (c *ReservationClient) Approve(ctx context.Context, id, approvedBy string) (*model.Reservation, error) {
	body := struct {
		ApprovedBy string `json:"approved_by"`
	}{approvedBy}
	var out model.Reservation
	if err := c.do(ctx, http.MethodPost, reservationPath(id, "/approve"), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reject handles POST /reservations/{id}/reject.
func (c *ReservationClient) Reject(ctx context.Context, id, reason, rejectedBy, rejectedName string) (*model.Reservation, error) {
	body := struct {
		Reason       string `json:"reason"`
		RejectedBy   string `json:"rejected_by"`
		RejectedName string `json:"rejected_name"`
	}{reason, rejectedBy, rejectedName}
	var out model.Reservation
	if err := c.do(ctx, http.MethodPost, reservationPath(id, "/reject"), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Assign handles POST /reservations/{id}/assign.
func (c *ReservationClient) Assign(ctx context.Context, id string, items []model.AssignedItem, assignedBy string) (*model.Reservation, error) {
	body := struct {
		AssignedItems []model.AssignedItem `json:"assigned_items"`
		AssignedBy    string               `json:"assigned_by"`
	}{items, assignedBy}
	var out model.Reservation
	if err := c.do(ctx, http.MethodPost, reservationPath(id, "/assign"), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage handles POST /reservations/{id}/message.  The response is
// the reservation with the new message appended.
func (c *ReservationClient) SendMessage(ctx context.Context, id, sender, senderName, text string) (*model.Reservation, error) {
	body := struct {
		Sender     string `json:"sender"`
		SenderName string `json:"sender_name"`
		Message    string `json:"message"`
	}{sender, senderName, text}
	var out model.Reservation
	if err := c.do(ctx, http.MethodPost, reservationPath(id, "/message"), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkSeen handles POST /reservations/{id}/messages-seen.
func (c *ReservationClient) MarkSeen(ctx context.Context, id, userEmail string) error {
	body := struct {
		UserEmail string `json:"user_email"`
	}{userEmail}
	return c.do(ctx, http.MethodPost, reservationPath(id, "/messages-seen"), nil, body, nil)
}

// Delete handles DELETE /reservations/{id}.  It is a hard delete.
func (c *ReservationClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, reservationPath(id, ""), nil, nil, nil)
}

// Inventory handles GET /inventory.
func (c *ReservationClient) Inventory(ctx context.Context) ([]model.InventoryItem, error) {
	var out []model.InventoryItem
	if err := c.do(ctx, http.MethodGet, "/inventory", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
