package reservation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iliyamo/lab-equipment-reservation/internal/inventory"
	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

// ScheduleType selects how the schedule string is produced.
type ScheduleType string

const (
	ScheduleSingle    ScheduleType = "single"
	ScheduleRecurring ScheduleType = "recurring"
)

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var validate = validator.New()

// ValidationError names the first unmet requirement of a draft.  It is
// never sent to the server.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string { return e.Message }

// Draft is the in-progress reservation form.  The recurrence structure
// (ScheduleType, RecurringDays, RecurringEndDate) exists only here; the
// API stores the rendered schedule string.
type Draft struct {
	Subject          string               `json:"subject"`
	Instructor       string               `json:"instructor"`
	InstructorEmail  string               `json:"instructor_email"`
	Course           string               `json:"course"`
	Room             string               `json:"room"`
	ScheduleType     ScheduleType         `json:"scheduleType"`
	Date             string               `json:"date"`
	RecurringDays    []string             `json:"recurringDays"`
	RecurringEndDate string               `json:"recurringEndDate"`
	StartTime        string               `json:"startTime"`
	EndTime          string               `json:"endTime"`
	UserType         model.UserType       `json:"user_type"`
	GroupCount       int                  `json:"group_count"`
	NeedsItems       bool                 `json:"needsItems"`
	Consumables      []model.RequestedItem `json:"consumables"`
	NonConsumables   []model.RequestedItem `json:"nonConsumables"`
}

// NewDraft returns an empty individual, single-date draft attributed to id.
func NewDraft(id model.Identity) *Draft {
	return &Draft{
		Instructor:      id.DisplayName(),
		InstructorEmail: id.Email,
		ScheduleType:    ScheduleSingle,
		UserType:        model.UserIndividual,
		GroupCount:      1,
	}
}

// SetUserType switches the ownership mode.  Individual clears both item
// lists and forces one group; Group keeps at least two groups.
func (d *Draft) SetUserType(t model.UserType) {
	switch t {
	case model.UserIndividual:
		d.UserType = model.UserIndividual
		d.Consumables = nil
		d.NonConsumables = nil
		d.GroupCount = 1
	case model.UserGroup:
		d.UserType = model.UserGroup
		d.GroupCount = max(2, d.GroupCount)
	}
}

// SetGroupCount changes the number of groups within the rules of the
// current user type.
func (d *Draft) SetGroupCount(n int) {
	if d.UserType == model.UserGroup {
		d.GroupCount = max(2, n)
		return
	}
	d.GroupCount = 1
}

// ToggleDay adds a weekday to the recurrence, or removes it when already
// present.  Insertion order is kept; unknown names are ignored.
func (d *Draft) ToggleDay(day string) {
	name, ok := normalizeDay(day)
	if !ok {
		return
	}
	for i, existing := range d.RecurringDays {
		if existing == name {
			d.RecurringDays = append(d.RecurringDays[:i], d.RecurringDays[i+1:]...)
			return
		}
	}
	d.RecurringDays = append(d.RecurringDays, name)
}

// AddItem appends a requested line to the list matching its type.
func (d *Draft) AddItem(name string, qty int, t model.ItemType) {
	it := model.RequestedItem{ItemName: name, Quantity: qty, ItemType: t}
	if t == model.ItemConsumable {
		d.Consumables = append(d.Consumables, it)
		return
	}
	it.ItemType = model.ItemNonConsumable
	d.NonConsumables = append(d.NonConsumables, it)
}

// items merges consumables then non-consumables and stamps each line with
// the type of the list it came from.
func (d *Draft) items() []model.RequestedItem {
	out := make([]model.RequestedItem, 0, len(d.Consumables)+len(d.NonConsumables))
	for _, it := range d.Consumables {
		it.ItemType = model.ItemConsumable
		out = append(out, it)
	}
	for _, it := range d.NonConsumables {
		it.ItemType = model.ItemNonConsumable
		out = append(out, it)
	}
	return out
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// Validate returns the first unmet requirement, checked in a fixed order,
// or nil.
func (d *Draft) Validate() error {
	switch {
	case blank(d.Subject):
		return &ValidationError{Field: "subject", Message: "Subject is required"}
	case blank(d.Instructor):
		return &ValidationError{Field: "instructor", Message: "Instructor is required"}
	case blank(d.Course):
		return &ValidationError{Field: "course", Message: "Course is required"}
	case blank(d.Room):
		return &ValidationError{Field: "room", Message: "Room is required"}
	case d.NeedsItems && len(d.Consumables)+len(d.NonConsumables) == 0:
		return &ValidationError{Field: "requested_items", Message: "Add at least one item or turn off item requests"}
	case d.ScheduleType != ScheduleRecurring && blank(d.Date):
		return &ValidationError{Field: "date", Message: "Select a date"}
	case d.ScheduleType == ScheduleRecurring && len(d.RecurringDays) == 0:
		return &ValidationError{Field: "recurringDays", Message: "Select at least one day"}
	case blank(d.StartTime) || blank(d.EndTime):
		return &ValidationError{Field: "time", Message: "Start and end time are required"}
	}
	if !d.NeedsItems {
		return nil
	}
	for i, it := range d.items() {
		if err := validate.Struct(it); err != nil {
			return itemError(i, it, err)
		}
	}
	return nil
}

func itemError(i int, it model.RequestedItem, err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &ValidationError{Field: fmt.Sprintf("requested_items[%d]", i), Message: err.Error()}
	}
	fe := verrs[0]
	label := it.ItemName
	if blank(label) {
		label = fmt.Sprintf("item %d", i+1)
	}
	var msg string
	switch fe.Field() {
	case "ItemName":
		msg = fmt.Sprintf("Item %d needs a name", i+1)
	case "Quantity":
		msg = fmt.Sprintf("Quantity for %s must be greater than zero", label)
	case "LineID":
		msg = fmt.Sprintf("Line id for %s is malformed", label)
	default:
		msg = fmt.Sprintf("Item type for %s is invalid", label)
	}
	return &ValidationError{Field: fmt.Sprintf("requested_items[%d].%s", i, fe.Field()), Message: msg}
}

// Schedule renders the schedule string stored by the API.
func (d *Draft) Schedule() string {
	if d.ScheduleType != ScheduleRecurring {
		return strings.TrimSpace(d.Date)
	}
	s := "Every " + strings.Join(d.RecurringDays, ", ")
	if end := strings.TrimSpace(d.RecurringEndDate); end != "" {
		return s + ", until " + end
	}
	return s + " (ongoing)"
}

// BuildPayload validates the draft and returns the create/update body.
// Lines without an id get a fresh one, written back to the draft so that
// repeated builds agree.
func (d *Draft) BuildPayload() (model.ReservationInput, error) {
	if err := d.Validate(); err != nil {
		return model.ReservationInput{}, err
	}
	for i := range d.Consumables {
		if d.Consumables[i].LineID == "" {
			d.Consumables[i].LineID = uuid.NewString()
		}
	}
	for i := range d.NonConsumables {
		if d.NonConsumables[i].LineID == "" {
			d.NonConsumables[i].LineID = uuid.NewString()
		}
	}
	items := []model.RequestedItem{}
	if d.NeedsItems {
		items = d.items()
	}
	groups := d.GroupCount
	ut := d.UserType
	if ut != model.UserGroup {
		ut = model.UserIndividual
		groups = 1
	}
	return model.ReservationInput{
		Subject:         strings.TrimSpace(d.Subject),
		Instructor:      strings.TrimSpace(d.Instructor),
		InstructorEmail: strings.TrimSpace(d.InstructorEmail),
		Course:          strings.TrimSpace(d.Course),
		Room:            strings.TrimSpace(d.Room),
		Schedule:        d.Schedule(),
		StartTime:       d.StartTime,
		EndTime:         d.EndTime,
		GroupCount:      groups,
		UserType:        ut,
		NeedsItems:      d.NeedsItems,
		RequestedItems:  items,
	}, nil
}

// Totals returns quantity × group count for every merged line, in payload
// order.
func (d *Draft) Totals() []int {
	items := d.items()
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = inventory.TotalNeeded(it.Quantity, d.GroupCount)
	}
	return out
}

// DraftFromReservation rebuilds an editable draft.  Item lists are
// partitioned by type and keep their line ids.  A recurring schedule is
// reconstructed best-effort from the stored "Every ..." text; the exact
// original selection may not be recoverable.
func DraftFromReservation(r *model.Reservation) *Draft {
	d := &Draft{
		Subject:         r.Subject,
		Instructor:      r.Instructor,
		InstructorEmail: r.InstructorEmail,
		Course:          r.Course,
		Room:            r.Room,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		UserType:        r.UserType,
		GroupCount:      r.GroupCount,
		NeedsItems:      r.NeedsItems || len(r.RequestedItems) > 0,
	}
	if d.UserType == "" {
		d.UserType = model.UserIndividual
		if r.GroupCount > 1 {
			d.UserType = model.UserGroup
		}
	}
	if d.GroupCount < 1 {
		d.GroupCount = 1
	}
	for _, it := range r.RequestedItems {
		if it.ItemType == model.ItemConsumable {
			d.Consumables = append(d.Consumables, it)
		} else {
			d.NonConsumables = append(d.NonConsumables, it)
		}
	}
	d.ScheduleType, d.Date, d.RecurringDays, d.RecurringEndDate = ParseSchedule(r.Schedule)
	return d
}

// ParseSchedule splits a stored schedule string.  Strings without the
// "Every" prefix are single dates.
func ParseSchedule(s string) (kind ScheduleType, date string, days []string, endDate string) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "Every") {
		return ScheduleSingle, s, nil, ""
	}
	rest := strings.TrimSpace(strings.TrimPrefix(s, "Every"))
	if strings.HasSuffix(rest, "(ongoing)") {
		rest = strings.TrimSpace(strings.TrimSuffix(rest, "(ongoing)"))
	} else if i := strings.LastIndex(rest, "until "); i >= 0 {
		endDate = strings.TrimSpace(rest[i+len("until "):])
		rest = strings.TrimRight(strings.TrimSpace(rest[:i]), ",")
	}
	for _, part := range strings.Split(rest, ",") {
		if name, ok := normalizeDay(part); ok {
			days = append(days, name)
		}
	}
	return ScheduleRecurring, "", days, endDate
}

func normalizeDay(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, w := range weekdays {
		if strings.EqualFold(w, s) {
			return w, true
		}
	}
	return "", false
}

// TotalFor is the UI total for one line: quantity × group count.
func TotalFor(it model.RequestedItem, groupCount int) int {
	return inventory.TotalNeeded(it.Quantity, groupCount)
}
