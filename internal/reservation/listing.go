package reservation

import (
	"sort"
	"strings"

	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

// Query narrows a reservation list.  An empty Status matches all.
type Query struct {
	Search string       `query:"search"`
	Status model.Status `query:"status"`
}

// Filter returns the reservations matching q, newest first.  Search is a
// case-insensitive substring over code, subject, instructor and course;
// any one field matching is enough.  The input is not modified.
func Filter(all []model.Reservation, q Query) []model.Reservation {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]model.Reservation, 0, len(all))
	for _, r := range all {
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		if needle != "" && !matches(r, needle) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateCreated.After(out[j].DateCreated)
	})
	return out
}

func matches(r model.Reservation, needle string) bool {
	for _, f := range []string{r.Code, r.Subject, r.Instructor, r.Course} {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Page is one window of a filtered list.
type Page struct {
	Items      []model.Reservation `json:"items"`
	Page       int                 `json:"page"`
	PerPage    int                 `json:"per_page"`
	Total      int                 `json:"total"`
	TotalPages int                 `json:"total_pages"`
}

// Paginate slices list into pages of perPage (default 10) and returns
// page (1-based, clamped to the valid range).
func Paginate(list []model.Reservation, page, perPage int) Page {
	if perPage <= 0 {
		perPage = 10
	}
	total := len(list)
	pages := (total + perPage - 1) / perPage
	if page < 1 {
		page = 1
	}
	if pages > 0 && page > pages {
		page = pages
	}
	start := (page - 1) * perPage
	end := min(start+perPage, total)
	items := []model.Reservation{}
	if start < total {
		items = list[start:end]
	}
	return Page{Items: items, Page: page, PerPage: perPage, Total: total, TotalPages: pages}
}

// ReplaceByID swaps in r for the entry with the same id, keeping its
// position.  r is appended only when no entry matches.
func ReplaceByID(list []model.Reservation, r model.Reservation) []model.Reservation {
	for i := range list {
		if list[i].ID == r.ID {
			list[i] = r
			return list
		}
	}
	return append(list, r)
}

// ForInstructor keeps the reservations submitted under email.
func ForInstructor(list []model.Reservation, email string) []model.Reservation {
	out := make([]model.Reservation, 0, len(list))
	for _, r := range list {
		if strings.EqualFold(r.InstructorEmail, email) {
			out = append(out, r)
		}
	}
	return out
}
