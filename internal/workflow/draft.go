package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/roach88/deskboard/internal/dto"
)

// DefaultStageTitle seeds every new draft's stage list.
const DefaultStageTitle = "Начало проекта"

// MsgFillRequired is shown when local validation blocks a submission.
const MsgFillRequired = "Заполните все обязательные поля"

// ErrMissingRequired is returned when a draft lacks a required field.
var ErrMissingRequired = errors.New("missing required fields")

// FileUpload is a file selected for upload.
type FileUpload struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileFromPath selects the file at path; it is opened only when uploaded.
func FileFromPath(path string) FileUpload {
	return FileUpload{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// FileFromBytes selects in-memory content.
func FileFromBytes(name string, data []byte) FileUpload {
	return FileUpload{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// StageDraft is a stage entered in the form.
type StageDraft struct {
	Title       string
	Description string
}

// Draft is the unsaved project form.
type Draft struct {
	ProjectName string `validate:"required"`
	Description string
	ClientName  string `validate:"required"`
	ClientEmail string
	ClientPhone string
	// DateRange holds the start and end dates.
	DateRange []time.Time `validate:"len=2"`
	ManagerID int64       `validate:"required"`

	MemberIDs []int64
	Files     []FileUpload
	Links     []string
	Stages    []StageDraft
}

// NewDraft returns an empty draft seeded with the default stage.
func NewDraft() Draft {
	return Draft{Stages: []StageDraft{{Title: DefaultStageTitle}}}
}

// AddLink normalizes raw and appends it. Blank input is ignored.
func (d *Draft) AddLink(raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	d.Links = append(d.Links, NormalizeURL(raw))
}

// AddStage appends a stage. Blank titles are ignored.
func (d *Draft) AddStage(title, description string) {
	if strings.TrimSpace(title) == "" {
		return
	}
	d.Stages = append(d.Stages, StageDraft{Title: title, Description: description})
}

// AddMember adds id to the team unless it is already selected.
func (d *Draft) AddMember(id int64) {
	if !slices.Contains(d.MemberIDs, id) {
		d.MemberIDs = append(d.MemberIDs, id)
	}
}

// ToggleMember adds id to the team, or removes it if already selected.
func (d *Draft) ToggleMember(id int64) {
	for i, m := range d.MemberIDs {
		if m == id {
			d.MemberIDs = append(d.MemberIDs[:i:i], d.MemberIDs[i+1:]...)
			return
		}
	}
	d.MemberIDs = append(d.MemberIDs, id)
}

// NormalizeURL prefixes https:// unless the URL already starts with
// http:// or https://.
func NormalizeURL(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}

var validate = validator.New()

// Validate checks the fields a project cannot be created without.
// The returned error wraps ErrMissingRequired and names the fields.
func Validate(d Draft) error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate draft: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(fields, ", "))
}

// snapshot copies every collection so the run is unaffected by later edits
// to the caller's draft.
func (d Draft) snapshot() Draft {
	d.DateRange = append([]time.Time(nil), d.DateRange...)
	d.MemberIDs = append([]int64(nil), d.MemberIDs...)
	d.Files = append([]FileUpload(nil), d.Files...)
	d.Links = append([]string(nil), d.Links...)
	d.Stages = append([]StageDraft(nil), d.Stages...)
	return d
}

func (d Draft) projectRequest() dto.CreateProjectRequest {
	return dto.CreateProjectRequest{
		ProjectName: d.ProjectName,
		Description: nullable(d.Description),
		ClientName:  d.ClientName,
		ClientEmail: nullable(d.ClientEmail),
		ClientPhone: nullable(d.ClientPhone),
		StartDate:   d.DateRange[0].Format(dto.DateLayout),
		EndDate:     d.DateRange[1].Format(dto.DateLayout),
		ManagerID:   d.ManagerID,
	}
}

func (d Draft) stageRequests() []dto.StageRequest {
	out := make([]dto.StageRequest, len(d.Stages))
	for i, s := range d.Stages {
		out[i] = dto.StageRequest{
			Title:       s.Title,
			Description: s.Description,
			Order:       i + 1,
			Status:      dto.StageStatusActive,
		}
	}
	return out
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
