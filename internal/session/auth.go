package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/roach88/deskboard/internal/dto"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	// ErrInvalidEmail is returned for input that does not look like an email.
	ErrInvalidEmail = errors.New("Введите корректный email!")
	// ErrUnknownEmail is returned when no employee has the email.
	ErrUnknownEmail = errors.New("Неверный email. Попробуйте снова.")
)

// EmployeeLister fetches the roster used for email lookup.
type EmployeeLister interface {
	ListEmployees(ctx context.Context) ([]dto.Employee, error)
}

// ValidEmail reports whether s has the shape local@domain.tld.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Authenticate finds the employee whose email equals email exactly.
// This is a lookup, not authentication in any security sense.
func Authenticate(ctx context.Context, lister EmployeeLister, email string) (dto.Employee, error) {
	if !ValidEmail(email) {
		return dto.Employee{}, ErrInvalidEmail
	}

	employees, err := lister.ListEmployees(ctx)
	if err != nil {
		return dto.Employee{}, fmt.Errorf("load employees: %w", err)
	}

	for _, e := range employees {
		if e.Email == email {
			return e, nil
		}
	}
	return dto.Employee{}, ErrUnknownEmail
}
