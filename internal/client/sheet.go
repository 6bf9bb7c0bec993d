package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

// Sheet names and actions understood by the macro endpoint.
const (
	SheetInventory   = "Inventory"
	SheetMaintenance = "Maintenance"
	SheetStaff       = "Staff"
	SheetTodo        = "Todo"
	SheetUsers       = "Users"

	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionLogin  = "login"
)

var (
	// ErrSheetFailed is wrapped when the endpoint answers success=false.
	ErrSheetFailed = errors.New("sheet request failed")
	// ErrInvalidCredentials is returned by Login when the sheet rejects the pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// SheetResponse is the envelope returned by every sheet action.
type SheetResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// SheetClient talks to the spreadsheet-backed macro endpoint.  Reads are
// GET requests, writes are POST requests with a JSON body; sheet and
// action always travel in the query string.
type SheetClient struct {
	*base
}

// NewSheetClient returns a client for the macro URL.
func NewSheetClient(macroURL string, timeout time.Duration, log *zap.Logger) (*SheetClient, error) {
	b, err := newBase(macroURL, timeout, log)
	if err != nil {
		return nil, err
	}
	return &SheetClient{base: b}, nil
}

// Do runs one action against one sheet.  data is sent as the "data" field
// of the body for non-read actions.
func (c *SheetClient) Do(ctx context.Context, sheet, action string, data any) (*SheetResponse, error) {
	q := url.Values{"sheet": {sheet}, "action": {action}}
	method := http.MethodPost
	var body any
	if action == ActionRead {
		method = http.MethodGet
	} else {
		body = map[string]any{"sheet": sheet, "action": action, "data": data}
	}
	var out SheetResponse
	if err := c.do(ctx, method, "", q, body, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "no message"
		}
		return &out, fmt.Errorf("%s %s: %w: %s", sheet, action, ErrSheetFailed, msg)
	}
	return &out, nil
}

// Read returns the sheet as a header-addressed table.
func (c *SheetClient) Read(ctx context.Context, sheet string) (*Table, error) {
	resp, err := c.Do(ctx, sheet, ActionRead, nil)
	if err != nil {
		return nil, err
	}
	return ParseTable(resp.Data)
}

// Maintenance reads the calibration schedule.
func (c *SheetClient) Maintenance(ctx context.Context) ([]model.MaintenanceItem, error) {
	t, err := c.Read(ctx, SheetMaintenance)
	if err != nil {
		return nil, err
	}
	out := make([]model.MaintenanceItem, 0, len(t.Rows))
	for i := range t.Rows {
		out = append(out, model.MaintenanceItem{
			Num:              t.Get(i, "num", "no", "number"),
			EquipmentName:    t.Get(i, "equipment_name", "equipment", "name"),
			BrandModel:       t.Get(i, "brand_model", "brand", "model"),
			SerialNumber:     t.Get(i, "serial_number", "serial_no", "serial"),
			Month:            t.Get(i, "month"),
			DateAccomplished: t.Get(i, "date_accomplished", "accomplished_on", "date"),
			AccomplishedBy:   t.Get(i, "accomplished_by", "done_by"),
		})
	}
	return out, nil
}

// UpdateMaintenance records a calibration on row num.
func (c *SheetClient) UpdateMaintenance(ctx context.Context, num, dateAccomplished, accomplishedBy string) error {
	_, err := c.Do(ctx, SheetMaintenance, ActionUpdate, map[string]string{
		"num":               num,
		"date_accomplished": dateAccomplished,
		"accomplished_by":   accomplishedBy,
	})
	return err
}

// Staff reads the staff sheet.
func (c *SheetClient) Staff(ctx context.Context) ([]model.StaffMember, error) {
	t, err := c.Read(ctx, SheetStaff)
	if err != nil {
		return nil, err
	}
	out := make([]model.StaffMember, 0, len(t.Rows))
	for i := range t.Rows {
		out = append(out, model.StaffMember{
			Num:       t.Get(i, "num", "no"),
			FirstName: t.Get(i, "firstname", "first_name"),
			LastName:  t.Get(i, "lastname", "last_name"),
			Email:     t.Get(i, "email"),
			Position:  t.Get(i, "position", "role"),
		})
	}
	return out, nil
}

// Login asks the users sheet to verify the pair and returns the user
// record.  The sheet answers with a header row and a single data row.
func (c *SheetClient) Login(ctx context.Context, email, password string) (model.Identity, error) {
	resp, err := c.Do(ctx, SheetUsers, ActionLogin, map[string]string{"email": email, "password": password})
	if err != nil {
		if errors.Is(err, ErrSheetFailed) {
			return model.Identity{}, fmt.Errorf("%w: %s", ErrInvalidCredentials, resp.Message)
		}
		return model.Identity{}, err
	}
	t, err := ParseTable(resp.Data)
	if err != nil {
		return model.Identity{}, err
	}
	if len(t.Rows) == 0 {
		return model.Identity{}, ErrInvalidCredentials
	}
	id := model.Identity{
		Email:     strings.ToLower(t.Get(0, "email")),
		Role:      model.NormalizeRole(t.Get(0, "role")),
		FirstName: t.Get(0, "firstname", "first_name"),
		LastName:  t.Get(0, "lastname", "last_name"),
		Name:      t.Get(0, "name"),
	}
	if id.Email == "" {
		id.Email = strings.ToLower(email)
	}
	if id.Name == "" {
		id.Name = id.DisplayName()
	}
	return id, nil
}

// Table is a sheet read result.  Columns are located by header name at
// read time, so reordering columns in the sheet does not break callers.
type Table struct {
	Headers []string
	Rows    [][]string
	index   map[string]int
}

// ParseTable decodes the data field: the first row is the header, the
// remaining rows are data.  Cell values of any JSON type are rendered as
// strings; null becomes "".
func ParseTable(raw json.RawMessage) (*Table, error) {
	var cells [][]any
	if len(raw) == 0 || string(raw) == "null" {
		return &Table{index: map[string]int{}}, nil
	}
	if err := json.Unmarshal(raw, &cells); err != nil {
		return nil, fmt.Errorf("decode sheet table: %w", err)
	}
	t := &Table{index: map[string]int{}}
	for r, row := range cells {
		vals := make([]string, len(row))
		for i, v := range row {
			vals[i] = cellString(v)
		}
		if r == 0 {
			t.Headers = vals
			for i, h := range vals {
				k := HeaderKey(h)
				if _, dup := t.index[k]; !dup && k != "" {
					t.index[k] = i
				}
			}
			continue
		}
		t.Rows = append(t.Rows, vals)
	}
	return t, nil
}

// Column returns the index of the first header matching one of names.
func (t *Table) Column(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := t.index[HeaderKey(n)]; ok {
			return i, true
		}
	}
	return -1, false
}

// Get returns the trimmed cell of row under the first matching header, or
// "" when no header matches or the row is short.
func (t *Table) Get(row int, names ...string) string {
	col, ok := t.Column(names...)
	if !ok || row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// Records returns every row as a map keyed by normalised header.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for k, i := range t.index {
			if i < len(row) {
				rec[k] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// HeaderKey normalises a header: lower case, every run of non
// alphanumerics collapsed to "_", no leading or trailing "_".
func HeaderKey(h string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}
