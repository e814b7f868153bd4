package listview

import (
	"github.com/roach88/deskboard/internal/dto"
)

// FilterEmployees keeps employees whose name, email or displayed position
// contains query, ignoring case.
func FilterEmployees(items []dto.Employee, query string) []dto.Employee {
	m := newMatcher(query)
	out := make([]dto.Employee, 0, len(items))
	for _, e := range items {
		if m.matches(e.FullName, e.Email, e.PositionName()) {
			out = append(out, e)
		}
	}
	return out
}
