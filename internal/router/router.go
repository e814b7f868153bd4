// Package router picks the top-level view from the session.
package router

import (
	"errors"

	"github.com/roach88/deskboard/internal/session"
)

// View is a top-level screen.
type View int

const (
	// ViewEnter is the login screen.
	ViewEnter View = iota
	// ViewDashboard is everything behind login.
	ViewDashboard
)

func (v View) String() string {
	switch v {
	case ViewDashboard:
		return "dashboard"
	default:
		return "enter"
	}
}

// ErrLoginRequired is returned when a dashboard action runs without a session.
var ErrLoginRequired = errors.New("login required")

// Resolve returns ViewDashboard for a logged-in session and ViewEnter otherwise.
func Resolve(s session.Session) View {
	if s.LoggedIn() && s.Employee() != nil {
		return ViewDashboard
	}
	return ViewEnter
}

// RequireDashboard returns ErrLoginRequired unless s resolves to the dashboard.
func RequireDashboard(s session.Session) error {
	if Resolve(s) != ViewDashboard {
		return ErrLoginRequired
	}
	return nil
}
