package dto

import "fmt"

// NoPosition is shown when an employee has neither a position nor a specialization.
const NoPosition = "Должность не указана"

// Position is the structured job title attached to an employee.
type Position struct {
	PositionID   int64  `json:"position_id"`
	PositionName string `json:"position_name"`
}

// Department groups employees.
type Department struct {
	DepartmentID        int64  `json:"department_id"`
	DepartmentName      string `json:"department_name"`
	FunctionDescription string `json:"function_description,omitempty"`
}

// Employee is a staff member. Email doubles as the login key.
type Employee struct {
	EmployeeID     int64          `json:"employee_id"`
	UserID         *int64         `json:"user_id,omitempty"`
	FullName       string         `json:"full_name"`
	Email          string         `json:"email,omitempty"`
	Specialization string         `json:"specialization,omitempty"`
	Position       *Position      `json:"position,omitempty"`
	Department     *Department    `json:"department,omitempty"`
	Contacts       map[string]any `json:"contacts,omitempty"`
	HireDate       Date           `json:"hire_date"`
}

// PositionName prefers the structured position, then the free-text specialization.
func (e Employee) PositionName() string {
	if e.Position != nil && e.Position.PositionName != "" {
		return e.Position.PositionName
	}
	if e.Specialization != "" {
		return e.Specialization
	}
	return NoPosition
}

// Phone returns the phone from the contacts block, if any.
func (e Employee) Phone() string {
	if e.Contacts == nil {
		return ""
	}
	switch v := e.Contacts["phone"].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// CreateEmployeeRequest is the body of POST /api/employees.
type CreateEmployeeRequest struct {
	FullName       string  `json:"full_name"`
	Email          string  `json:"email"`
	Specialization string  `json:"specialization"`
	Phone          *string `json:"phone"`
}

// UpdateEmployeeRequest is the body of PUT /api/employees/{id}.
type UpdateEmployeeRequest struct {
	FullName       string            `json:"full_name"`
	Email          string            `json:"email"`
	Specialization string            `json:"specialization"`
	Contacts       map[string]string `json:"contacts"`
}

// TaskCount is returned by GET /api/employees/{id}/tasks/count.
type TaskCount struct {
	Count int `json:"count"`
}
