// Package tasks backs the read-only task dialog: the task itself, its
// attached files and the address each file opens at.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/roach88/deskboard/internal/dto"
	"github.com/roach88/deskboard/internal/events"
	"github.com/roach88/deskboard/internal/notify"
)

// ErrFileUnavailable is returned for a file record with no usable location.
var ErrFileUnavailable = errors.New("file unavailable")

// ErrNoTask is returned when the dialog is opened without a task id.
var ErrNoTask = errors.New("no task selected")

// User-facing messages.
const (
	MsgCompleted       = "Задача отмечена как выполненная"
	msgCompleteFailed  = "Не удалось обновить статус задачи: %s"
	msgFileUnavailable = "Файл %q не доступен"
)

// Client is the subset of the backend the dialog calls.
type Client interface {
	GetTask(ctx context.Context, taskID int64) (dto.Task, error)
	GetTaskFiles(ctx context.Context, taskID int64) ([]dto.TaskFile, error)
	UpdateTaskStatus(ctx context.Context, taskID int64, status string) error
}

// View is what the dialog shows.
type View struct {
	Task  dto.Task
	Files []dto.TaskFile
	// Fallback is set when the task could not be fetched and Task is the
	// summary the dialog was opened with.
	Fallback bool
}

// Dialog opens tasks against one backend.
type Dialog struct {
	client    Client
	baseURL   string
	notifier  notify.Notifier
	publisher events.Publisher
	logger    *slog.Logger
}

// Option configures a Dialog.
type Option func(*Dialog)

// WithNotifier sets where user-facing messages go.
func WithNotifier(n notify.Notifier) Option {
	return func(d *Dialog) { d.notifier = n }
}

// WithPublisher sets where status changes are announced.
func WithPublisher(p events.Publisher) Option {
	return func(d *Dialog) { d.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dialog) { d.logger = l }
}

// NewDialog creates a dialog; baseURL is used to build file addresses.
func NewDialog(client Client, baseURL string, opts ...Option) *Dialog {
	d := &Dialog{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		notifier:  notify.Discard,
		publisher: events.Discard,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Open loads the full task behind summary. If the task cannot be fetched the
// summary is shown instead; if its files cannot be fetched the list is empty.
// Neither failure is returned.
func (d *Dialog) Open(ctx context.Context, summary dto.Task) (View, error) {
	if summary.TaskID == 0 {
		return View{}, ErrNoTask
	}
	logger := d.logger.With("task_id", summary.TaskID)

	task, err := d.client.GetTask(ctx, summary.TaskID)
	if err != nil {
		logger.Error("task not loaded, showing summary", "error", err)
		return View{Task: summary, Files: []dto.TaskFile{}, Fallback: true}, nil
	}

	files, err := d.client.GetTaskFiles(ctx, summary.TaskID)
	if err != nil {
		logger.Info("task files not loaded", "error", err)
		files = nil
	}
	if files == nil {
		files = []dto.TaskFile{}
	}

	return View{Task: merge(task, summary), Files: files}, nil
}

// merge fills the descriptive fields the server left empty from summary.
func merge(task, summary dto.Task) dto.Task {
	if task.TaskID == 0 {
		task.TaskID = summary.TaskID
	}
	if task.Name == "" {
		task.Name = summary.Name
	}
	if task.Description == "" {
		task.Description = summary.Description
	}
	if task.ExecutorName == "" {
		task.ExecutorName = summary.ExecutorName
	}
	if task.ProjectName == "" {
		task.ProjectName = summary.ProjectName
	}
	return task
}

// Complete marks the task completed.
func (d *Dialog) Complete(ctx context.Context, taskID int64) error {
	if err := d.client.UpdateTaskStatus(ctx, taskID, dto.TaskStatusCompleted); err != nil {
		d.logger.Error("task status not updated", "task_id", taskID, "error", err)
		d.notifier.Error(fmt.Sprintf(msgCompleteFailed, err))
		return fmt.Errorf("complete task %d: %w", taskID, err)
	}
	d.notifier.Success(MsgCompleted)
	d.publisher.Publish(events.Event{Kind: events.TaskStatusChanged, TaskID: taskID})
	return nil
}

// FileURL is ViewURL against the dialog's backend. An unavailable file is
// reported to the notifier.
func (d *Dialog) FileURL(f dto.TaskFile) (string, error) {
	u, err := ViewURL(d.baseURL, f)
	if err != nil {
		d.notifier.Error(fmt.Sprintf(msgFileUnavailable, f.DisplayName()))
		return "", err
	}
	return u, nil
}

// ViewURL returns the address a task file opens at. Candidates are tried in
// order: the file id view endpoint, an absolute file path, a path relative
// to the backend, then the legacy url field.
func ViewURL(baseURL string, f dto.TaskFile) (string, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	switch {
	case f.FileID != 0:
		return fmt.Sprintf("%s/api/files/%d/view", baseURL, f.FileID), nil
	case isAbsolute(f.FilePath):
		return f.FilePath, nil
	case strings.HasPrefix(f.FilePath, "/"):
		return baseURL + f.FilePath, nil
	case f.FilePath != "":
		return baseURL + "/" + f.FilePath, nil
	case f.URL != "":
		return f.URL, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrFileUnavailable, f.DisplayName())
	}
}

func isAbsolute(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// SizeText renders a file size for humans, or "" when unknown.
func SizeText(f dto.TaskFile) string {
	if f.Size <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(f.Size))
}
