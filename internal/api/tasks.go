package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/roach88/deskboard/internal/dto"
)

// GetTask calls GET /api/tasks/{id} and normalizes the response.
func (c *Client) GetTask(ctx context.Context, taskID int64) (dto.Task, error) {
	var w dto.TaskWire
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d", taskID), nil, &w); err != nil {
		return dto.Task{}, err
	}
	return dto.TaskFromWire(w), nil
}

// GetTaskFiles calls GET /api/tasks/{id}/files.
func (c *Client) GetTaskFiles(ctx context.Context, taskID int64) ([]dto.TaskFile, error) {
	var out []dto.TaskFile
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d/files", taskID), nil, &out)
	return out, err
}

// UpdateTaskStatus calls PUT /api/tasks/{id}/status.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID int64, status string) error {
	body := struct {
		Status string `json:"status"`
	}{Status: status}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/tasks/%d/status", taskID), body, nil)
}

// FileViewURL is the address that renders a stored file in the browser.
func (c *Client) FileViewURL(fileID int64) string {
	return fmt.Sprintf("%s/api/files/%d/view", c.baseURL, fileID)
}
