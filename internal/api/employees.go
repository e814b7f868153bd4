package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/roach88/deskboard/internal/dto"
)

// ListEmployees calls GET /api/employees.
func (c *Client) ListEmployees(ctx context.Context) ([]dto.Employee, error) {
	var out []dto.Employee
	err := c.do(ctx, http.MethodGet, "/api/employees", nil, &out)
	return out, err
}

// EmployeeTaskCount calls GET /api/employees/{id}/tasks/count.
func (c *Client) EmployeeTaskCount(ctx context.Context, employeeID int64) (int, error) {
	var out dto.TaskCount
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/employees/%d/tasks/count", employeeID), nil, &out)
	return out.Count, err
}

// CreateEmployee calls POST /api/employees.
func (c *Client) CreateEmployee(ctx context.Context, req dto.CreateEmployeeRequest) (*dto.Employee, error) {
	var out dto.Employee
	if err := c.do(ctx, http.MethodPost, "/api/employees", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEmployee calls PUT /api/employees/{id}.
func (c *Client) UpdateEmployee(ctx context.Context, employeeID int64, req dto.UpdateEmployeeRequest) (*dto.Employee, error) {
	var out dto.Employee
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/employees/%d", employeeID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEmployee calls DELETE /api/employees/{id}.
func (c *Client) DeleteEmployee(ctx context.Context, employeeID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/employees/%d", employeeID), nil, nil)
}
