// Package inventory matches requested reservation lines against an
// inventory snapshot and tracks a staff member's manual assignment of one
// inventory item per line.
package inventory

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

var (
	// ErrInsufficientStock is returned when a non-selectable candidate is picked.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrIncompleteAssignment is returned while any line has no item.
	ErrIncompleteAssignment = errors.New("every requested line needs an item")
	// ErrTypeMismatch is returned when an item from the wrong pool is picked.
	ErrTypeMismatch = errors.New("item type does not match requested line")
)

// Candidate is one inventory item offered for a requested line.
// Candidates with HasEnough=false are shown but must not be selectable.
type Candidate struct {
	Item        model.InventoryItem `json:"item"`
	HasEnough   bool                `json:"hasEnough"`
	TotalNeeded int                 `json:"totalNeeded"`
}

// TotalNeeded is the per-group quantity times the number of groups.
func TotalNeeded(perGroupQty, groupCount int) int {
	return perGroupQty * groupCount
}

// CandidatesFor filters the snapshot to items of the requested type with
// stock on hand, optionally narrowed by a case-insensitive name search,
// and sorts them by name.  The snapshot is not modified.
func CandidatesFor(items []model.InventoryItem, itemType model.ItemType, groupCount, perGroupQty int, search string) []Candidate {
	wantConsumable := itemType == model.ItemConsumable
	needle := strings.ToLower(strings.TrimSpace(search))
	total := TotalNeeded(perGroupQty, groupCount)

	out := make([]Candidate, 0, len(items))
	for _, it := range items {
		if it.IsConsumable != wantConsumable || it.Available <= 0 {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(it.EquipmentName), needle) {
			continue
		}
		out = append(out, Candidate{Item: it, HasEnough: it.Available >= total, TotalNeeded: total})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Item.EquipmentName < out[j].Item.EquipmentName
	})
	return out
}

// Row is the assignment state of one requested line.
type Row struct {
	Index       int                 `json:"index"`
	Line        model.RequestedItem `json:"line"`
	TotalNeeded int                 `json:"totalNeeded"`
	ItemID      string              `json:"item_id"`
	ItemName    string              `json:"item_name"`
	Available   int                 `json:"available"`
}

// Assigned reports whether the row has an item.
func (r Row) Assigned() bool { return r.ItemID != "" }

// Session is one staff member's assignment pass over a reservation.  Each
// row is assigned independently; availability is not decremented across
// rows (see Overcommitted).
type Session struct {
	groupCount int
	rows       []Row
}

// NewSession prepares one empty row per requested line.
func NewSession(r *model.Reservation) *Session {
	groups := r.GroupCount
	if groups < 1 {
		groups = 1
	}
	s := &Session{groupCount: groups, rows: make([]Row, len(r.RequestedItems))}
	for i, line := range r.RequestedItems {
		s.rows[i] = Row{Index: i, Line: line, TotalNeeded: TotalNeeded(line.Quantity, groups)}
	}
	return s
}

// Rows returns a copy of the current rows.
func (s *Session) Rows() []Row {
	out := make([]Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// Candidates lists the snapshot candidates for row i.
func (s *Session) Candidates(items []model.InventoryItem, i int, search string) ([]Candidate, error) {
	if i < 0 || i >= len(s.rows) {
		return nil, fmt.Errorf("line %d out of range", i)
	}
	line := s.rows[i].Line
	return CandidatesFor(items, line.ItemType, s.groupCount, line.Quantity, search), nil
}

// Select binds item to row i.  Items without enough stock or from the
// wrong pool are refused.
func (s *Session) Select(i int, item model.InventoryItem) error {
	if i < 0 || i >= len(s.rows) {
		return fmt.Errorf("line %d out of range", i)
	}
	row := &s.rows[i]
	if item.IsConsumable != (row.Line.ItemType == model.ItemConsumable) {
		return fmt.Errorf("%w: %s is %s, line wants %s", ErrTypeMismatch, item.EquipmentName, item.ItemType(), row.Line.ItemType)
	}
	if item.Available < row.TotalNeeded {
		return fmt.Errorf("%w: %s has %d, line needs %d", ErrInsufficientStock, item.EquipmentName, item.Available, row.TotalNeeded)
	}
	row.ItemID = item.Num
	row.ItemName = item.EquipmentName
	row.Available = item.Available
	return nil
}

// Clear unbinds row i.
func (s *Session) Clear(i int) {
	if i >= 0 && i < len(s.rows) {
		r := &s.rows[i]
		r.ItemID, r.ItemName, r.Available = "", "", 0
	}
}

// CanSubmit is false while any row is empty.  There is no partial mode.
func (s *Session) CanSubmit() bool {
	for _, r := range s.rows {
		if !r.Assigned() {
			return false
		}
	}
	return true
}

// Build returns the assigned items for the assign call.
func (s *Session) Build() ([]model.AssignedItem, error) {
	if !s.CanSubmit() {
		return nil, ErrIncompleteAssignment
	}
	out := make([]model.AssignedItem, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, model.AssignedItem{
			LineID:             r.Line.LineID,
			RequestedItemIndex: r.Index,
			ItemID:             r.ItemID,
			ItemName:           r.ItemName,
			ItemType:           r.Line.ItemType,
			Quantity:           r.TotalNeeded,
		})
	}
	return out, nil
}

// Overcommit describes an inventory item chosen by several rows whose
// combined need exceeds what it had available.
type Overcommit struct {
	ItemID    string `json:"item_id"`
	ItemName  string `json:"item_name"`
	Available int    `json:"available"`
	Needed    int    `json:"needed"`
	Rows      []int  `json:"rows"`
}

// Overcommitted reports shared picks that together exceed stock.  It is a
// warning only; whether the API enforces atomic assignment is unknown.
func (s *Session) Overcommitted() []Overcommit {
	byItem := map[string]*Overcommit{}
	var order []string
	for _, r := range s.rows {
		if !r.Assigned() {
			continue
		}
		oc, ok := byItem[r.ItemID]
		if !ok {
			oc = &Overcommit{ItemID: r.ItemID, ItemName: r.ItemName, Available: r.Available}
			byItem[r.ItemID] = oc
			order = append(order, r.ItemID)
		}
		oc.Needed += r.TotalNeeded
		oc.Rows = append(oc.Rows, r.Index)
	}
	var out []Overcommit
	for _, id := range order {
		oc := byItem[id]
		if len(oc.Rows) > 1 && oc.Needed > oc.Available {
			out = append(out, *oc)
		}
	}
	return out
}
