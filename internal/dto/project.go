package dto

// Project statuses as reported by the listing endpoints.
const (
	ProjectActive    = "active"
	ProjectArchived  = "archived"
	ProjectCompleted = "completed"
)

// Project is a project record as returned by the listing and create endpoints.
type Project struct {
	ProjectID   int64  `json:"project_id"`
	ProjectName string `json:"project_name"`
	Description string `json:"description,omitempty"`
	StartDate   Date   `json:"start_date"`
	EndDate     Date   `json:"end_date"`
	Status      string `json:"status,omitempty"`
	ClientName  string `json:"client_name,omitempty"`
	ClientEmail string `json:"client_email,omitempty"`
	ClientPhone string `json:"client_phone,omitempty"`
	ManagerID   int64  `json:"manager_id,omitempty"`
	ManagerName string `json:"manager_name,omitempty"`
	CreatedDate Date   `json:"created_date"`
}

// SortDate is the date a project is ordered by: its end date, falling back to
// its creation date. The result may be absent.
func (p Project) SortDate() Date {
	if p.EndDate.Valid() {
		return p.EndDate
	}
	return p.CreatedDate
}

// CreateProjectRequest is the body of POST /api/projects.
// Optional strings are sent as null when empty.
type CreateProjectRequest struct {
	ProjectName string  `json:"project_name"`
	Description *string `json:"description"`
	ClientName  string  `json:"client_name"`
	ClientEmail *string `json:"client_email"`
	ClientPhone *string `json:"client_phone"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	ManagerID   int64   `json:"manager_id"`
}

// AddMemberRequest is the body of POST /api/projects/{id}/employees.
type AddMemberRequest struct {
	EmployeeID int64 `json:"employee_id"`
}

// MaterialTypeLink marks a material as a hyperlink.
const MaterialTypeLink = "link"

// MaterialRequest is the body of POST /api/projects/{id}/materials.
type MaterialRequest struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// StageStatusActive is the initial status of every new stage.
const StageStatusActive = "active"

// StageRequest is the body of POST /api/projects/{id}/stages.
type StageRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	Status      string `json:"status"`
}

// Stage is a created project stage.
type Stage struct {
	StageID     int64  `json:"stage_id,omitempty"`
	ProjectID   int64  `json:"project_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
	Status      string `json:"status"`
}

// Material is a created project material.
type Material struct {
	MaterialID  int64  `json:"material_id,omitempty"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// UploadedFile is the response of a project or task file upload.
type UploadedFile struct {
	FileID   int64  `json:"file_id"`
	Filename string `json:"filename"`
	FilePath string `json:"file_path,omitempty"`
	Size     int64  `json:"size,omitempty"`
}
