package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/roach88/deskboard/internal/dto"
)

// ListProjects calls GET /api/projects.
func (c *Client) ListProjects(ctx context.Context) ([]dto.Project, error) {
	var out []dto.Project
	err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out)
	return out, err
}

// ListArchivedProjects calls GET /api/projects/archived?manager_id=.
func (c *Client) ListArchivedProjects(ctx context.Context, managerID int64) ([]dto.Project, error) {
	q := url.Values{}
	q.Set("manager_id", strconv.FormatInt(managerID, 10))

	var out []dto.Project
	err := c.do(ctx, http.MethodGet, "/api/projects/archived?"+q.Encode(), nil, &out)
	return out, err
}

// CreateProject calls POST /api/projects. The returned project carries the
// server-assigned id.
func (c *Client) CreateProject(ctx context.Context, req dto.CreateProjectRequest) (*dto.Project, error) {
	var out dto.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddProjectMember calls POST /api/projects/{id}/employees.
func (c *Client) AddProjectMember(ctx context.Context, projectID, employeeID int64) error {
	path := fmt.Sprintf("/api/projects/%d/employees", projectID)
	return c.do(ctx, http.MethodPost, path, dto.AddMemberRequest{EmployeeID: employeeID}, nil)
}

// UploadProjectFile calls POST /api/projects/{id}/files with a multipart
// "file" field. content is streamed, not buffered, and is no longer read
// once the call returns.
func (c *Client) UploadProjectFile(ctx context.Context, projectID int64, filename string, content io.Reader) (*dto.UploadedFile, error) {
	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		part, err := w.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = w.Close()
		}
		pw.CloseWithError(err)
	}()

	var out dto.UploadedFile
	path := fmt.Sprintf("/api/projects/%d/files", projectID)
	err := c.send(ctx, http.MethodPost, path, w.FormDataContentType(), pr, &out)
	// The server may answer before the body is consumed.
	pr.Close()
	<-done
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	return &out, nil
}

// AddProjectMaterial calls POST /api/projects/{id}/materials.
func (c *Client) AddProjectMaterial(ctx context.Context, projectID int64, req dto.MaterialRequest) (*dto.Material, error) {
	var out dto.Material
	path := fmt.Sprintf("/api/projects/%d/materials", projectID)
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddProjectStage calls POST /api/projects/{id}/stages.
func (c *Client) AddProjectStage(ctx context.Context, projectID int64, req dto.StageRequest) (*dto.Stage, error) {
	var out dto.Stage
	path := fmt.Sprintf("/api/projects/%d/stages", projectID)
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
