package staff

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator"

	"github.com/roach88/deskboard/internal/dto"
)

// PositionPlaceholder is the dropdown text before a position is chosen.
const PositionPlaceholder = "Выбор должности"

// Positions are the choices offered by the position dropdown.
var Positions = []string{
	"Графический дизайнер",
	"Web-дизайнер",
	"UX/UI дизайнер",
	"Менеджер проекта",
	"Главный дизайнер",
	"Руководитель проекта",
	"Главный бухгалтер",
}

// ErrInvalidForm is returned when a required field is empty.
var ErrInvalidForm = errors.New("missing required employee fields")

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// Form is the add/edit employee dialog.
type Form struct {
	Name     string `validate:"required"`
	Email    string `validate:"required"`
	Position string `validate:"required,position"`
	Phone    string
}

// FormFor prefills the edit dialog from e.
func FormFor(e dto.Employee) Form {
	position := PositionPlaceholder
	if e.Position != nil && e.Position.PositionName != "" {
		position = e.Position.PositionName
	} else if e.Specialization != "" {
		position = e.Specialization
	}
	return Form{
		Name:     e.FullName,
		Email:    e.Email,
		Position: position,
		Phone:    e.Phone(),
	}
}

// PhoneLooksValid reports whether the phone is empty or has 10-15 digits
// with an optional leading plus.
func (f Form) PhoneLooksValid() bool {
	return f.Phone == "" || phonePattern.MatchString(f.Phone)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// A position still showing the placeholder was never chosen.
	_ = v.RegisterValidation("position", func(fl validator.FieldLevel) bool {
		return fl.Field().String() != PositionPlaceholder
	})
	return v
}

// Validate checks the required fields of f.
func (f Form) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate employee: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fmt.Errorf("%w: %s", ErrInvalidForm, strings.Join(fields, ", "))
}

func (f Form) createRequest() dto.CreateEmployeeRequest {
	req := dto.CreateEmployeeRequest{
		FullName:       strings.TrimSpace(f.Name),
		Email:          strings.TrimSpace(f.Email),
		Specialization: f.Position,
	}
	if f.Phone != "" {
		phone := f.Phone
		req.Phone = &phone
	}
	return req
}

func (f Form) updateRequest() dto.UpdateEmployeeRequest {
	return dto.UpdateEmployeeRequest{
		FullName:       strings.TrimSpace(f.Name),
		Email:          strings.TrimSpace(f.Email),
		Specialization: f.Position,
		Contacts:       map[string]string{"phone": f.Phone},
	}
}
