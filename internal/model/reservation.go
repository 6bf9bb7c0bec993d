package model

import "time"

// Status is the lifecycle state of a reservation as reported by the
// reservation API.  Only the four values below are valid.
type Status string

const (
    StatusPending  Status = "Pending"
    StatusApproved Status = "Approved"
    StatusAssigned Status = "Assigned"
    StatusRejected Status = "Rejected"
)

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{StatusPending, StatusApproved, StatusAssigned, StatusRejected}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
    switch s {
    case StatusPending, StatusApproved, StatusAssigned, StatusRejected:
        return true
    }
    return false
}

// Terminal reports whether no further transition is exposed from s.
func (s Status) Terminal() bool {
    return s == StatusAssigned || s == StatusRejected
}

// ItemType classifies a requested line and decides which inventory pool
// it can draw from.
type ItemType string

const (
    ItemConsumable    ItemType = "consumable"
    ItemNonConsumable ItemType = "non-consumable"
)

// UserType is the ownership mode of a reservation.  Group multiplies the
// per-unit quantities by GroupCount.
type UserType string

const (
    UserIndividual UserType = "Individual"
    UserGroup      UserType = "Group"
)

// Reservation mirrors the reservation document served by the remote API.
//
// Fields:
//  ID              – server-assigned identifier used in API paths.
//  Code            – human readable reservation code.
//  Schedule        – single ISO date or "Every ..." recurring description.
//  GroupCount      – number of groups; 1 for individual reservations.
//  RequestedItems  – ordered requested lines.
//  AssignedItems   – filled once staff assign inventory.
//  Messages        – append-only chat thread.
//  Edits           – server maintained audit trail.
//  Version         – monotonic snapshot counter when the API provides one.
//  UpdatedAt       – last modification time when the API provides one.
type Reservation struct {
    ID              string          `json:"id"`
    Code            string          `json:"code"`
    Subject         string          `json:"subject"`
    Instructor      string          `json:"instructor"`
    InstructorEmail string          `json:"instructor_email"`
    Course          string          `json:"course"`
    Room            string          `json:"room"`
    Schedule        string          `json:"schedule"`
    StartTime       string          `json:"startTime"`
    EndTime         string          `json:"endTime"`
    GroupCount      int             `json:"group_count"`
    UserType        UserType        `json:"user_type,omitempty"`
    NeedsItems      bool            `json:"needsItems"`
    RequestedItems  []RequestedItem `json:"requested_items"`
    Status          Status          `json:"status"`
    AssignedItems   []AssignedItem  `json:"assigned_items,omitempty"`
    Messages        []Message       `json:"messages,omitempty"`
    Edits           []Edit          `json:"edits,omitempty"`
    ApprovedBy      string          `json:"approved_by,omitempty"`
    RejectedBy      string          `json:"rejected_by,omitempty"`
    RejectedName    string          `json:"rejected_name,omitempty"`
    RejectReason    string          `json:"reason,omitempty"`
    AssignedBy      string          `json:"assigned_by,omitempty"`
    DateCreated     time.Time       `json:"date_created"`
    UpdatedAt       time.Time       `json:"updated_at,omitempty"`
    Version         int64           `json:"version,omitempty"`
}

// RequestedItem is one line of a reservation's item request.  Quantity is
// per group.  LineID is minted when the reservation is created and stays
// stable across edits.
type RequestedItem struct {
    LineID   string   `json:"line_id,omitempty" validate:"omitempty,uuid"`
    ItemName string   `json:"item_name" validate:"required"`
    Quantity int      `json:"quantity" validate:"gt=0"`
    ItemType ItemType `json:"item_type" validate:"oneof=consumable non-consumable"`
}

// AssignedItem binds an inventory item to a requested line.  LineID is the
// authoritative back-reference; RequestedItemIndex is kept for API
// compatibility.
type AssignedItem struct {
    LineID             string   `json:"line_id,omitempty"`
    RequestedItemIndex int      `json:"requested_item_index"`
    ItemID             string   `json:"item_id"`
    ItemName           string   `json:"item_name"`
    ItemType           ItemType `json:"item_type"`
    Quantity           int      `json:"quantity"`
}

// Message is one entry of the reservation chat thread.
type Message struct {
    Sender     string    `json:"sender"`
    SenderName string    `json:"sender_name"`
    Message    string    `json:"message"`
    Timestamp  time.Time `json:"timestamp"`
    SeenBy     []string  `json:"seen_by"`
}

// SeenByUser reports whether identity appears in the message's seen set.
func (m Message) SeenByUser(identity string) bool {
    for _, s := range m.SeenBy {
        if s == identity {
            return true
        }
    }
    return false
}

// Edit is an audit trail entry written by the API when a reservation is
// updated.  Previous holds the raw snapshot of the prior state.
type Edit struct {
    EditedBy   string         `json:"editedBy"`
    EditedName string         `json:"editedName"`
    EditedAt   time.Time      `json:"editedAt"`
    Reason     string         `json:"reason"`
    Previous   map[string]any `json:"previous,omitempty"`
}

// ReservationInput is the body sent to create or update a reservation.
// It carries the draft without id and status.  Edit metadata is set only
// on updates.
type ReservationInput struct {
    Subject         string          `json:"subject"`
    Instructor      string          `json:"instructor"`
    InstructorEmail string          `json:"instructor_email"`
    Course          string          `json:"course"`
    Room            string          `json:"room"`
    Schedule        string          `json:"schedule"`
    StartTime       string          `json:"startTime"`
    EndTime         string          `json:"endTime"`
    GroupCount      int             `json:"group_count"`
    UserType        UserType        `json:"user_type"`
    NeedsItems      bool            `json:"needsItems"`
    RequestedItems  []RequestedItem `json:"requested_items"`
    EditedBy        string          `json:"editedBy,omitempty"`
    EditedName      string          `json:"editedName,omitempty"`
    EditReason      string          `json:"editReason,omitempty"`
}
