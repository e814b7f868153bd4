package listview

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/deskboard/internal/dto"
)

// SortOrder selects how project lists are ordered.
type SortOrder string

const (
	// SortRecent puts the latest end date first.
	SortRecent SortOrder = "recent"
	// SortOldest puts the earliest end date first.
	SortOldest SortOrder = "oldest"
)

// ParseSortOrder accepts "recent" or "oldest"; "" means recent.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortRecent:
		return SortRecent, nil
	case SortOldest:
		return SortOldest, nil
	default:
		return "", fmt.Errorf("unknown sort order %q (want recent or oldest)", s)
	}
}

// matcher tests fields for a case-insensitive substring. A Caser is not
// safe for concurrent use, so each filter call builds its own.
type matcher struct {
	fold  cases.Caser
	query string
}

func newMatcher(query string) *matcher {
	m := &matcher{fold: cases.Fold()}
	m.query = m.fold.String(query)
	return m
}

// matches reports whether the query is empty or occurs in one of fields.
func (m *matcher) matches(fields ...string) bool {
	if m.query == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(m.fold.String(f), m.query) {
			return true
		}
	}
	return false
}

// FilterProjects keeps projects whose name, description or client contains
// query, ignoring case. An empty query keeps everything.
func FilterProjects(items []dto.Project, query string) []dto.Project {
	m := newMatcher(query)
	out := make([]dto.Project, 0, len(items))
	for _, p := range items {
		if m.matches(p.ProjectName, p.Description, p.ClientName) {
			out = append(out, p)
		}
	}
	return out
}

// SortProjects orders projects by end date, falling back to creation date.
// Projects without either date count as the oldest. Ties keep input order.
func SortProjects(items []dto.Project, order SortOrder) []dto.Project {
	out := slices.Clone(items)
	if out == nil {
		out = []dto.Project{}
	}
	slices.SortStableFunc(out, func(a, b dto.Project) int {
		c := compareDates(a.SortDate(), b.SortDate())
		if order == SortOldest {
			return c
		}
		return -c
	})
	return out
}

// compareDates orders absent dates before every present one.
func compareDates(a, b dto.Date) int {
	switch {
	case !a.Valid() && !b.Valid():
		return 0
	case !a.Valid():
		return -1
	case !b.Valid():
		return 1
	default:
		return a.Compare(b.Time)
	}
}

// ArchiveView is the archive page list: filtered by query, then sorted.
func ArchiveView(items []dto.Project, query string, order SortOrder) []dto.Project {
	return SortProjects(FilterProjects(items, query), order)
}

// DisplayDate renders d as DD.MM.YYYY, or "—" when absent.
func DisplayDate(d dto.Date) string {
	return d.Display()
}
