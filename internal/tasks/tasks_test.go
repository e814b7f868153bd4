package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deskboard/internal/api"
	"github.com/roach88/deskboard/internal/dto"
	"github.com/roach88/deskboard/internal/events"
	"github.com/roach88/deskboard/internal/notify"
	"github.com/roach88/deskboard/internal/testutil"
)

func newDialog(t *testing.T) (*Dialog, *testutil.Backend, *notify.Recorder) {
	t.Helper()
	backend := testutil.NewBackend(t)
	toasts := &notify.Recorder{}
	d := NewDialog(api.New(backend.URL()), backend.URL(),
		WithNotifier(toasts),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return d, backend, toasts
}

func TestOpen(t *testing.T) {
	d, backend, _ := newDialog(t)
	backend.Tasks[7] = map[string]any{
		"task_id":       7,
		"task_name":     "Макет главной",
		"executor_name": "Анна",
		"status":        "in_progress",
		"end_date":      "2024-04-01",
	}
	backend.TaskFiles[7] = []dto.TaskFile{{FileID: 3, Filename: "mockup.fig", Size: 2048}}

	v, err := d.Open(context.Background(), dto.Task{TaskID: 7, ProjectName: "Сайт"})
	require.NoError(t, err)
	assert.False(t, v.Fallback)
	assert.Equal(t, "Макет главной", v.Task.Name)
	assert.Equal(t, "Сайт", v.Task.ProjectName, "summary fills missing fields")
	assert.Equal(t, "01.04.2024", v.Task.EndDate.Display())
	require.Len(t, v.Files, 1)
	assert.Equal(t, "mockup.fig", v.Files[0].DisplayName())
}

func TestOpenWithoutFilesEndpoint(t *testing.T) {
	d, backend, toasts := newDialog(t)
	backend.Tasks[7] = map[string]any{"idtask": 7, "name": "Ревью"}

	v, err := d.Open(context.Background(), dto.Task{TaskID: 7})
	require.NoError(t, err)
	assert.False(t, v.Fallback)
	assert.Equal(t, "Ревью", v.Task.Name)
	assert.NotNil(t, v.Files)
	assert.Empty(t, v.Files)
	assert.Empty(t, toasts.Toasts())
}

func TestOpenFallsBackToSummary(t *testing.T) {
	d, backend, _ := newDialog(t)
	summary := dto.Task{TaskID: 9, Name: "Из списка", Status: "new"}

	v, err := d.Open(context.Background(), summary)
	require.NoError(t, err)
	assert.True(t, v.Fallback)
	assert.Equal(t, summary, v.Task)
	assert.Empty(t, v.Files)
	assert.Empty(t, backend.RequestsTo(http.MethodGet, "/api/tasks/9/files"))
}

func TestOpenWithoutID(t *testing.T) {
	d, backend, _ := newDialog(t)
	_, err := d.Open(context.Background(), dto.Task{})
	assert.ErrorIs(t, err, ErrNoTask)
	assert.Empty(t, backend.Requests())
}

func TestComplete(t *testing.T) {
	backend := testutil.NewBackend(t)
	toasts := &notify.Recorder{}
	bus := events.NewBus()
	sub, cancel := bus.Subscribe(1)
	defer cancel()

	d := NewDialog(api.New(backend.URL()), backend.URL(), WithNotifier(toasts), WithPublisher(bus))
	require.NoError(t, d.Complete(context.Background(), 4))

	reqs := backend.RequestsTo(http.MethodPut, "/api/tasks/4/status")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"status":"completed"}`, string(reqs[0].Body))
	assert.Equal(t, []string{MsgCompleted}, toasts.Level(notify.LevelSuccess))
	assert.Equal(t, events.Event{Kind: events.TaskStatusChanged, TaskID: 4}, <-sub)
}

func TestCompleteFailure(t *testing.T) {
	d, backend, toasts := newDialog(t)
	backend.Fail(http.MethodPut, "/api/tasks/4/status", http.StatusNotFound, "Задача не найден")

	err := d.Complete(context.Background(), 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrNotFound))
	assert.Len(t, toasts.Level(notify.LevelError), 1)
}

func TestViewURL(t *testing.T) {
	const base = "http://127.0.0.1:8000"
	tests := []struct {
		name string
		file dto.TaskFile
		want string
	}{
		{"file id wins", dto.TaskFile{FileID: 15, FilePath: "https://cdn.test/a.pdf", URL: "https://old.test"}, base + "/api/files/15/view"},
		{"absolute path", dto.TaskFile{FilePath: "https://cdn.test/a.pdf"}, "https://cdn.test/a.pdf"},
		{"http path", dto.TaskFile{FilePath: "http://cdn.test/a.pdf"}, "http://cdn.test/a.pdf"},
		{"rooted path", dto.TaskFile{FilePath: "/uploads/a.pdf"}, base + "/uploads/a.pdf"},
		{"relative path", dto.TaskFile{FilePath: "uploads/a.pdf"}, base + "/uploads/a.pdf"},
		{"legacy url", dto.TaskFile{URL: "https://old.test/a.pdf"}, "https://old.test/a.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ViewURL(base+"/", tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ViewURL(base, dto.TaskFile{Filename: "x.pdf"})
	assert.ErrorIs(t, err, ErrFileUnavailable)
}

func TestFileURLNotifiesUnavailable(t *testing.T) {
	d, _, toasts := newDialog(t)
	_, err := d.FileURL(dto.TaskFile{Name: "plan.docx"})
	require.Error(t, err)
	assert.Equal(t, []string{`Файл "plan.docx" не доступен`}, toasts.Level(notify.LevelError))
}

func TestSizeText(t *testing.T) {
	assert.Equal(t, "", SizeText(dto.TaskFile{}))
	assert.Equal(t, "2.0 kB", SizeText(dto.TaskFile{Size: 2048}))
	assert.Equal(t, "1.5 MB", SizeText(dto.TaskFile{Size: 1_500_000}))
}
