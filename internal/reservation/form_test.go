package reservation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

func faculty() model.Identity {
	return model.Identity{Email: "x@uni.edu", Role: model.RoleFaculty, Name: "Dr. X"}
}

func circuitsDraft() *Draft {
	d := NewDraft(faculty())
	d.Subject = "Circuits 1"
	d.Course = "ECE101"
	d.Room = "Lab A"
	d.Date = "2024-09-20"
	d.StartTime = "08:00"
	d.EndTime = "10:00"
	return d
}

func TestNewDraftPrefillsIdentity(t *testing.T) {
	d := NewDraft(faculty())
	assert.Equal(t, "Dr. X", d.Instructor)
	assert.Equal(t, "x@uni.edu", d.InstructorEmail)
	assert.Equal(t, model.UserIndividual, d.UserType)
	assert.Equal(t, 1, d.GroupCount)
}

func TestValidateOrder(t *testing.T) {
	d := &Draft{NeedsItems: true, ScheduleType: ScheduleRecurring}
	steps := []struct {
		field string
		fix   func()
	}{
		{"subject", func() { d.Subject = "s" }},
		{"instructor", func() { d.Instructor = "i" }},
		{"course", func() { d.Course = "c" }},
		{"room", func() { d.Room = "r" }},
		{"requested_items", func() { d.AddItem("Wire", 1, model.ItemConsumable) }},
		{"recurringDays", func() { d.ToggleDay("monday") }},
		{"time", func() { d.StartTime, d.EndTime = "08:00", "09:00" }},
	}
	for _, s := range steps {
		err := d.Validate()
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, s.field)
		assert.Equal(t, s.field, ve.Field)
		s.fix()
	}
	assert.NoError(t, d.Validate())
}

func TestValidateSingleNeedsDate(t *testing.T) {
	d := circuitsDraft()
	d.Date = " "
	var ve *ValidationError
	require.ErrorAs(t, d.Validate(), &ve)
	assert.Equal(t, "date", ve.Field)
}

func TestValidateItemRows(t *testing.T) {
	d := circuitsDraft()
	d.NeedsItems = true
	d.AddItem("Resistor", 0, model.ItemConsumable)
	var ve *ValidationError
	require.ErrorAs(t, d.Validate(), &ve)
	assert.Equal(t, "requested_items[0].Quantity", ve.Field)
	assert.Contains(t, ve.Message, "Resistor")

	d.Consumables[0].Quantity = 2
	d.AddItem("", 1, model.ItemNonConsumable)
	require.ErrorAs(t, d.Validate(), &ve)
	assert.Equal(t, "requested_items[1].ItemName", ve.Field)
}

func TestItemsIgnoredWhenNotNeeded(t *testing.T) {
	d := circuitsDraft()
	d.SetUserType(model.UserGroup)
	d.AddItem("", 0, model.ItemConsumable) // invalid but irrelevant
	in, err := d.BuildPayload()
	require.NoError(t, err)
	assert.NotNil(t, in.RequestedItems)
	assert.Empty(t, in.RequestedItems)
}

// Scenario: one consumable line, three groups.
func TestBuildPayloadCircuitsScenario(t *testing.T) {
	d := circuitsDraft()
	d.SetUserType(model.UserGroup)
	d.SetGroupCount(3)
	d.NeedsItems = true
	d.AddItem("Resistor", 5, model.ItemConsumable)

	in, err := d.BuildPayload()
	require.NoError(t, err)
	require.Len(t, in.RequestedItems, 1)
	line := in.RequestedItems[0]
	assert.Equal(t, "Resistor", line.ItemName)
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, model.ItemConsumable, line.ItemType)
	_, err = uuid.Parse(line.LineID)
	assert.NoError(t, err)
	assert.Equal(t, 3, in.GroupCount)
	assert.Equal(t, "2024-09-20", in.Schedule)
	assert.Equal(t, []int{15}, d.Totals())
	assert.Equal(t, 15, TotalFor(line, in.GroupCount))

	again, err := d.BuildPayload()
	require.NoError(t, err)
	assert.Equal(t, line.LineID, again.RequestedItems[0].LineID)
}

func TestBuildPayloadMergesConsumablesFirst(t *testing.T) {
	d := circuitsDraft()
	d.NeedsItems = true
	d.AddItem("Scope", 1, model.ItemNonConsumable)
	d.AddItem("Wire", 2, model.ItemConsumable)
	in, err := d.BuildPayload()
	require.NoError(t, err)
	require.Len(t, in.RequestedItems, 2)
	assert.Equal(t, "Wire", in.RequestedItems[0].ItemName)
	assert.Equal(t, "Scope", in.RequestedItems[1].ItemName)
}

func TestSetUserType(t *testing.T) {
	for _, start := range []int{0, 1, 2, 5} {
		d := circuitsDraft()
		d.AddItem("Wire", 1, model.ItemConsumable)
		d.AddItem("Scope", 1, model.ItemNonConsumable)
		d.UserType = model.UserGroup
		d.GroupCount = start

		d.SetUserType(model.UserGroup)
		assert.GreaterOrEqual(t, d.GroupCount, 2)
		d.SetGroupCount(start)
		assert.GreaterOrEqual(t, d.GroupCount, 2)

		d.SetUserType(model.UserIndividual)
		assert.Equal(t, 1, d.GroupCount)
		assert.Empty(t, d.Consumables)
		assert.Empty(t, d.NonConsumables)
		d.SetGroupCount(start)
		assert.Equal(t, 1, d.GroupCount)
	}
}

func TestRecurringSchedule(t *testing.T) {
	d := circuitsDraft()
	d.ScheduleType = ScheduleRecurring
	d.ToggleDay("Wednesday")
	d.ToggleDay("monday")
	d.ToggleDay("Funday")
	assert.Equal(t, "Every Wednesday, Monday (ongoing)", d.Schedule())

	d.RecurringEndDate = "2024-12-01"
	assert.Equal(t, "Every Wednesday, Monday, until 2024-12-01", d.Schedule())

	d.ToggleDay("Wednesday")
	assert.Equal(t, []string{"Monday"}, d.RecurringDays)
}

func TestParseScheduleRoundTrip(t *testing.T) {
	kind, date, days, end := ParseSchedule("Every Tuesday, Thursday, until 2024-12-01")
	assert.Equal(t, ScheduleRecurring, kind)
	assert.Empty(t, date)
	assert.Equal(t, []string{"Tuesday", "Thursday"}, days)
	assert.Equal(t, "2024-12-01", end)

	kind, _, days, end = ParseSchedule("Every Friday (ongoing)")
	assert.Equal(t, ScheduleRecurring, kind)
	assert.Equal(t, []string{"Friday"}, days)
	assert.Empty(t, end)

	kind, date, _, _ = ParseSchedule("2024-09-20")
	assert.Equal(t, ScheduleSingle, kind)
	assert.Equal(t, "2024-09-20", date)
}

func TestDraftFromReservation(t *testing.T) {
	r := &model.Reservation{
		Subject:    "Circuits 1",
		Instructor: "Dr. X",
		Course:     "ECE101",
		Room:       "Lab A",
		Schedule:   "Every Monday, until 2024-12-01",
		StartTime:  "08:00",
		EndTime:    "10:00",
		GroupCount: 3,
		RequestedItems: []model.RequestedItem{
			{LineID: "a", ItemName: "Scope", Quantity: 1, ItemType: model.ItemNonConsumable},
			{LineID: "b", ItemName: "Wire", Quantity: 4, ItemType: model.ItemConsumable},
		},
	}
	d := DraftFromReservation(r)
	assert.Equal(t, model.UserGroup, d.UserType)
	assert.True(t, d.NeedsItems)
	require.Len(t, d.Consumables, 1)
	require.Len(t, d.NonConsumables, 1)
	assert.Equal(t, "b", d.Consumables[0].LineID)
	assert.Equal(t, "a", d.NonConsumables[0].LineID)
	assert.Equal(t, r.Schedule, d.Schedule())
}
