// Package maintenance derives the calibration status of schedule rows.
// Status is a pure function of the record and the caller's clock and is
// never stored.
package maintenance

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

// Status values shown next to every schedule row.
const (
	StatusCalibrate          = "Calibrate"
	StatusCompletedThisMonth = "Completed This Month"
	StatusCompleted          = "Completed"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05.000Z07:00", "2006-01-02 15:04:05", "1/2/2006"}

// ParseDate accepts the date formats the schedule sheet has been seen to
// return.  Dates without a zone are read as UTC.
func ParseDate(s string) (time.Time, bool) {
	return ParseDateIn(s, time.UTC)
}

// ParseDateIn is ParseDate with zone-less dates read in loc.  Timestamps
// carrying their own offset keep it.
func ParseDateIn(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Classify returns the status of a record last calibrated on
// dateAccomplished, as seen at now.  Missing or unparsable dates and
// dates from another year mean the item needs calibrating.  Year and
// month are compared on the viewer's calendar, the one now is in.
func Classify(dateAccomplished string, now time.Time) string {
	done, ok := ParseDateIn(dateAccomplished, now.Location())
	if !ok {
		return StatusCalibrate
	}
	done = done.In(now.Location())
	if done.Year() != now.Year() {
		return StatusCalibrate
	}
	if done.Month() == now.Month() {
		return StatusCompletedThisMonth
	}
	return StatusCompleted
}

var monthCodes = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// ParseMonth maps a three letter month code (any case, longer names
// allowed) to its time.Month.
func ParseMonth(s string) (time.Month, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 3 {
		for i, code := range monthCodes {
			if strings.EqualFold(s[:3], code) {
				return time.Month(i + 1), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown month %q", s)
}

// MonthCode is the inverse of ParseMonth.
func MonthCode(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthCodes[m-1]
}

// Row is a schedule record with its derived status.
type Row struct {
	model.MaintenanceItem
	Status string `json:"status"`
}

// WithStatus classifies every item against now.
func WithStatus(items []model.MaintenanceItem, now time.Time) []Row {
	out := make([]Row, len(items))
	for i, it := range items {
		out[i] = Row{MaintenanceItem: it, Status: Classify(it.DateAccomplished, now)}
	}
	return out
}

// DueIn returns the items scheduled for month m.
func DueIn(items []model.MaintenanceItem, m time.Month) []model.MaintenanceItem {
	var out []model.MaintenanceItem
	for _, it := range items {
		if got, err := ParseMonth(it.Month); err == nil && got == m {
			out = append(out, it)
		}
	}
	return out
}

// Summary counts items per status.
type Summary struct {
	Calibrate          int `json:"calibrate"`
	CompletedThisMonth int `json:"completed_this_month"`
	Completed          int `json:"completed"`
}

// Summarize counts items per Classify bucket as seen at now.
func Summarize(items []model.MaintenanceItem, now time.Time) Summary {
	var s Summary
	for _, it := range items {
		switch Classify(it.DateAccomplished, now) {
		case StatusCalibrate:
			s.Calibrate++
		case StatusCompletedThisMonth:
			s.CompletedThisMonth++
		default:
			s.Completed++
		}
	}
	return s
}
