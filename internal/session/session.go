// Package session holds who is logged in.
//
// A Session is an immutable value read once from durable storage at startup.
// Login and Logout persist the change synchronously and return a new value;
// nothing re-reads storage afterwards.
package session

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/deskboard/internal/dto"
)

// Storage keys, shared with the web client.
const (
	KeyLoggedIn        = "isLoggedIn"
	KeyCurrentEmployee = "currentEmployee"
)

// Storage is durable string key/value storage.
type Storage interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Session is the logged-in state.
type Session struct {
	loggedIn bool
	employee *dto.Employee
}

// LoggedIn reports whether an employee is logged in.
func (s Session) LoggedIn() bool {
	return s.loggedIn
}

// Employee returns a copy of the logged-in employee, or nil.
func (s Session) Employee() *dto.Employee {
	if s.employee == nil {
		return nil
	}
	e := *s.employee
	return &e
}

// Load reads the session from storage. A session counts as logged in only
// when the flag is "true" and the stored employee decodes.
func Load(st Storage) (Session, error) {
	flag, ok, err := st.GetItem(KeyLoggedIn)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if !ok || flag != "true" {
		return Session{}, nil
	}

	raw, ok, err := st.GetItem(KeyCurrentEmployee)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if !ok || raw == "" {
		return Session{}, nil
	}

	var emp dto.Employee
	if err := json.Unmarshal([]byte(raw), &emp); err != nil {
		return Session{}, nil
	}
	return Session{loggedIn: true, employee: &emp}, nil
}

// Login persists emp as the current employee and returns the new session.
func Login(st Storage, emp dto.Employee) (Session, error) {
	data, err := json.Marshal(emp)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	if err := st.SetItem(KeyLoggedIn, "true"); err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	if err := st.SetItem(KeyCurrentEmployee, string(data)); err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	return Session{loggedIn: true, employee: &emp}, nil
}

// Logout removes both keys and returns the empty session.
func Logout(st Storage) (Session, error) {
	if err := st.RemoveItem(KeyLoggedIn); err != nil {
		return Session{}, fmt.Errorf("logout: %w", err)
	}
	if err := st.RemoveItem(KeyCurrentEmployee); err != nil {
		return Session{}, fmt.Errorf("logout: %w", err)
	}
	return Session{}, nil
}
