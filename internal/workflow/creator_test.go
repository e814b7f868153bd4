package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deskboard/internal/api"
	"github.com/roach88/deskboard/internal/dto"
	"github.com/roach88/deskboard/internal/events"
	"github.com/roach88/deskboard/internal/metrics"
	"github.com/roach88/deskboard/internal/notify"
	"github.com/roach88/deskboard/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validDraft() Draft {
	d := NewDraft()
	d.ProjectName = "Редизайн сайта"
	d.ClientName = "ООО Ромашка"
	d.ManagerID = 7
	d.DateRange = []time.Time{
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	return d
}

type fixture struct {
	backend  *testutil.Backend
	toasts   *notify.Recorder
	bus      *events.Bus
	metrics  *metrics.Metrics
	creator  *Creator
	states   []State
	statesMu sync.Mutex
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		backend: testutil.NewBackend(t),
		toasts:  &notify.Recorder{},
		bus:     events.NewBus(),
		metrics: metrics.New(),
	}
	base := []Option{
		WithNotifier(f.toasts),
		WithPublisher(f.bus),
		WithLogger(quietLogger()),
		WithMetrics(f.metrics),
		WithTokenGenerator(testutil.NewFixedTokenGenerator("flow-test")),
		WithStateObserver(func(s State) {
			f.statesMu.Lock()
			defer f.statesMu.Unlock()
			f.states = append(f.states, s)
		}),
	}
	f.creator = NewCreator(api.New(f.backend.URL()), append(base, opts...)...)
	return f
}

func (f *fixture) labels() []string {
	f.statesMu.Lock()
	defer f.statesMu.Unlock()
	out := make([]string, len(f.states))
	for i, s := range f.states {
		out[i] = s.Label()
	}
	return out
}

func TestCreateInvalidDraftMakesNoRequests(t *testing.T) {
	cases := map[string]func(*Draft){
		"no name":    func(d *Draft) { d.ProjectName = "" },
		"no client":  func(d *Draft) { d.ClientName = "" },
		"no manager": func(d *Draft) { d.ManagerID = 0 },
		"one date":   func(d *Draft) { d.DateRange = d.DateRange[:1] },
		"no dates":   func(d *Draft) { d.DateRange = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			d := validDraft()
			mutate(&d)

			out, err := f.creator.Create(context.Background(), d)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, ErrMissingRequired))
			assert.Empty(t, f.backend.Requests())
			assert.Equal(t, []string{MsgFillRequired}, f.toasts.Level(notify.LevelError))
			assert.Len(t, f.toasts.Toasts(), 1)
			assert.Empty(t, f.labels(), "gate must not be taken")
		})
	}
}

func TestValidateNamesMissingFields(t *testing.T) {
	d := validDraft()
	d.ProjectName = ""
	d.ManagerID = 0

	err := Validate(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ProjectName")
	assert.Contains(t, err.Error(), "ManagerID")
	assert.NotContains(t, err.Error(), "ClientName")
}

func TestCreateFullRun(t *testing.T) {
	f := newFixture(t)
	sub, cancel := f.bus.Subscribe(1)
	defer cancel()

	d := validDraft()
	d.Description = "Новый сайт"
	d.ToggleMember(3)
	d.ToggleMember(4)
	d.Files = []FileUpload{FileFromBytes("brief.pdf", []byte("%PDF"))}
	d.AddLink("example.com/spec")
	d.AddStage("Дизайн", "Макеты")

	out, err := f.creator.Create(context.Background(), d)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, int64(100), out.Project.ProjectID)
	assert.Equal(t, "flow-test", out.FlowToken)
	assert.True(t, out.Complete())
	assert.ElementsMatch(t, []int64{3, 4}, out.Members.Succeeded)
	assert.Equal(t, []string{"brief.pdf"}, out.Files.Succeeded)
	assert.Equal(t, []string{"https://example.com/spec"}, out.Links.Succeeded)
	assert.Len(t, out.Stages.Succeeded, 2)

	assert.Equal(t, []string{MsgCreated}, f.toasts.Level(notify.LevelSuccess))
	assert.Empty(t, f.toasts.Level(notify.LevelWarning))
	assert.Empty(t, f.toasts.Level(notify.LevelError))

	select {
	case e := <-sub:
		assert.Equal(t, events.Event{Kind: events.ProjectCreated, ProjectID: 100}, e)
	default:
		t.Fatal("ProjectCreated not published")
	}

	// One project, two members, one file, one link, two stages.
	reqs := f.backend.Requests()
	assert.Len(t, reqs, 7)
	for _, r := range reqs {
		assert.Equal(t, "flow-test", r.RequestID, r.Key())
	}

	var created dto.CreateProjectRequest
	require.NoError(t, f.backend.RequestsTo(http.MethodPost, "/api/projects")[0].DecodeBody(&created))
	assert.Equal(t, "2024-03-01", created.StartDate)
	assert.Equal(t, "2024-06-30", created.EndDate)
	require.NotNil(t, created.Description)
	assert.Equal(t, "Новый сайт", *created.Description)
	assert.Nil(t, created.ClientEmail)
	assert.Nil(t, created.ClientPhone)
}

func TestDependentRequestsFollowCreate(t *testing.T) {
	f := newFixture(t)
	f.backend.NextProjectID = 555

	d := validDraft()
	d.MemberIDs = []int64{1, 2, 3}
	d.Files = []FileUpload{FileFromBytes("a.txt", []byte("a")), FileFromBytes("b.txt", []byte("b"))}
	d.Links = []string{"https://x.test", "y.test"}
	d.AddStage("Второй", "")

	_, err := f.creator.Create(context.Background(), d)
	require.NoError(t, err)

	reqs := f.backend.Requests()
	require.NotEmpty(t, reqs)
	create := reqs[0]
	require.Equal(t, "POST /api/projects", create.Key())

	for _, r := range reqs[1:] {
		assert.True(t, strings.HasPrefix(r.Path, "/api/projects/555/"), r.Path)
		assert.Greater(t, r.Started, create.Finished, r.Key())
	}
}

func TestDraftMembers(t *testing.T) {
	d := NewDraft()
	d.AddMember(3)
	d.AddMember(3)
	d.AddMember(4)
	assert.Equal(t, []int64{3, 4}, d.MemberIDs)

	d.ToggleMember(3)
	assert.Equal(t, []int64{4}, d.MemberIDs)
	d.ToggleMember(3)
	assert.Equal(t, []int64{4, 3}, d.MemberIDs)
}

func TestPhasesRunInOrder(t *testing.T) {
	f := newFixture(t, WithConcurrency(2))

	d := validDraft()
	d.MemberIDs = []int64{1, 2, 3}
	d.Files = []FileUpload{FileFromBytes("a.txt", []byte("a")), FileFromBytes("b.txt", []byte("b"))}
	d.Links = []string{"https://x.test", "y.test"}
	d.AddStage("Дизайн", "")
	d.AddStage("Вёрстка", "")

	_, err := f.creator.Create(context.Background(), d)
	require.NoError(t, err)

	phases := []string{"/employees", "/files", "/materials", "/stages"}
	type span struct{ first, last int64 }
	spans := make([]span, len(phases))
	counts := make([]int, len(phases))
	for _, r := range f.backend.Requests()[1:] {
		for i, suffix := range phases {
			if !strings.HasSuffix(r.Path, suffix) {
				continue
			}
			if counts[i] == 0 || r.Started < spans[i].first {
				spans[i].first = r.Started
			}
			if r.Finished > spans[i].last {
				spans[i].last = r.Finished
			}
			counts[i]++
		}
	}
	assert.Equal(t, []int{3, 2, 2, 3}, counts)
	for i := 1; i < len(phases); i++ {
		assert.Greater(t, spans[i].first, spans[i-1].last,
			"%s started before %s finished", phases[i], phases[i-1])
	}
}

func TestOneMemberFailureLeavesOthers(t *testing.T) {
	f := newFixture(t)
	f.backend.FailWhen(func(r testutil.Request) bool {
		var body dto.AddMemberRequest
		return strings.HasSuffix(r.Path, "/employees") && r.DecodeBody(&body) == nil && body.EmployeeID == 4
	}, http.StatusInternalServerError, "db down")

	d := validDraft()
	d.MemberIDs = []int64{3, 4, 5}

	out, err := f.creator.Create(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5}, out.Members.Succeeded)
	assert.Equal(t, []int64{4}, out.Members.FailedInputs())
	assert.Len(t, f.backend.RequestsTo(http.MethodPost, "/api/projects/100/employees"), 3)
	assert.Equal(t, []string{MsgCreated}, f.toasts.Level(notify.LevelSuccess))
	assert.Empty(t, f.toasts.Level(notify.LevelWarning))
}

func TestCreateFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail(http.MethodPost, "/api/projects", http.StatusBadRequest, "Менеджер не найден")

	d := validDraft()
	d.MemberIDs = []int64{1}
	d.Links = []string{"https://a.test"}
	before := d.snapshot()

	out, err := f.creator.Create(context.Background(), d)
	require.Error(t, err)
	assert.Nil(t, out)

	var createErr *CreateError
	require.True(t, errors.As(err, &createErr))
	assert.Equal(t, "Менеджер не найден", api.ErrorDetail(err))

	assert.Len(t, f.backend.Requests(), 1)
	assert.Equal(t, []string{"Ошибка создания проекта: Менеджер не найден"}, f.toasts.Level(notify.LevelError))
	assert.Empty(t, f.toasts.Level(notify.LevelSuccess))
	assert.Equal(t, before, d)
	assert.False(t, f.creator.State().Busy())
}

func TestCreateFailureWithoutResponse(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	toasts := &notify.Recorder{}
	c := NewCreator(api.New(url), WithNotifier(toasts), WithLogger(quietLogger()))

	_, err := c.Create(context.Background(), validDraft())
	require.Error(t, err)
	assert.Equal(t, []string{msgCreateNoResponse}, toasts.Level(notify.LevelError))
	assert.False(t, c.State().Busy())
}

func TestMemberFailureIsSilent(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail(http.MethodPost, "/api/projects/100/employees", http.StatusInternalServerError, "db down")

	d := validDraft()
	d.MemberIDs = []int64{5}

	out, err := f.creator.Create(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, out.Members.FailedInputs())
	assert.Equal(t, "db down", out.Members.Failed[0].Detail)
	assert.False(t, out.Complete())

	assert.Equal(t, []string{MsgCreated}, f.toasts.Level(notify.LevelSuccess))
	assert.Empty(t, f.toasts.Level(notify.LevelWarning))
	assert.Empty(t, f.toasts.Level(notify.LevelError))
}

func TestFileFailureContinues(t *testing.T) {
	f := newFixture(t)
	f.backend.FailWhen(func(r testutil.Request) bool {
		return r.FileName == "b.txt"
	}, http.StatusRequestEntityTooLarge, "Файл слишком большой")

	d := validDraft()
	d.Files = []FileUpload{
		FileFromBytes("a.txt", []byte("a")),
		FileFromBytes("b.txt", []byte("b")),
		FileFromBytes("c.txt", []byte("c")),
	}

	out, err := f.creator.Create(context.Background(), d)
	require.NoError(t, err)

	uploads := f.backend.RequestsTo(http.MethodPost, "/api/projects/100/files")
	require.Len(t, uploads, 3)
	assert.Equal(t, "a.txt", uploads[0].FileName)
	assert.Equal(t, "b.txt", uploads[1].FileName)
	assert.Equal(t, "c.txt", uploads[2].FileName)
	assert.Greater(t, uploads[1].Started, uploads[0].Finished)
	assert.Greater(t, uploads[2].Started, uploads[1].Finished)

	assert.Equal(t, []string{"a.txt", "c.txt"}, out.Files.Succeeded)
	assert.Equal(t, []string{"b.txt"}, out.Files.FailedInputs())
	assert.Equal(t, []string{"Файл b.txt не загружен: Файл слишком большой"}, f.toasts.Level(notify.LevelWarning))
	assert.Equal(t, []string{MsgCreated}, f.toasts.Level(notify.LevelSuccess))
}

func TestFileFailureWithoutDetail(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail(http.MethodPost, "/api/projects/100/files", http.StatusInternalServerError, "")

	d := validDraft()
	d.Files = []FileUpload{FileFromBytes("x.bin", nil)}

	_, err := f.creator.Create(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []string{"Файл x.bin не загружен: неизвестная ошибка"}, f.toasts.Level(notify.LevelWarning))
}

func TestUnreadableFileWarns(t *testing.T) {
	f := newFixture(t)

	d := validDraft()
	d.Files = []FileUpload{FileFromPath("/nonexistent/plan.docx")}

	out, err := f.creator.Create(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []string{"plan.docx"}, out.Files.FailedInputs())
	assert.Empty(t, f.backend.RequestsTo(http.MethodPost, "/api/projects/100/files"))
	assert.Equal(t, []string{"Файл plan.docx не загружен: неизвестная ошибка"}, f.toasts.Level(notify.LevelWarning))
}

func TestLinksNormalized(t *testing.T) {
	d := validDraft()
	d.AddLink("example.com")
	d.AddLink("  ")
	d.AddLink("http://plain.test")
	assert.Equal(t, []string{"https://example.com", "http://plain.test"}, d.Links)

	f := newFixture(t)
	d.Links = append(d.Links, "raw.test/page")

	out, err := f.creator.Create(context.Background(), d)
	require.NoError(t, err)

	reqs := f.backend.RequestsTo(http.MethodPost, "/api/projects/100/materials")
	require.Len(t, reqs, 3)
	want := []string{"https://example.com", "http://plain.test", "https://raw.test/page"}
	for i, r := range reqs {
		var m dto.MaterialRequest
		require.NoError(t, r.DecodeBody(&m))
		assert.Equal(t, want[i], m.URL)
		assert.Equal(t, dto.MaterialTypeLink, m.Type)
		assert.Equal(t, "Добавлена при создании проекта", m.Description)
		assert.Equal(t, "Ссылка "+string(rune('1'+i)), m.Title)
	}
	assert.Equal(t, want, out.Links.Succeeded)
}

func TestLinkFailureWarns(t *testing.T) {
	f := newFixture(t)
	f.backend.FailWhen(func(r testutil.Request) bool {
		return strings.HasSuffix(r.Path, "/materials") && strings.Contains(string(r.Body), "bad.test")
	}, http.StatusUnprocessableEntity, "Некорректный URL")

	d := validDraft()
	d.Links = []string{"bad.test", "good.test"}

	out, err := f.creator.Create(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://good.test"}, out.Links.Succeeded)
	assert.Equal(t, []string{`Ссылка "bad.test" не добавлена: Некорректный URL`}, f.toasts.Level(notify.LevelWarning))
}

func TestStageOrderFromSnapshot(t *testing.T) {
	f := newFixture(t, WithConcurrency(1))

	d := validDraft()
	d.AddStage("Дизайн", "Макеты")
	d.AddStage("Разработка", "")

	out, err := f.creator.Create(context.Background(), d)
	require.NoError(t, err)

	reqs := f.backend.RequestsTo(http.MethodPost, "/api/projects/100/stages")
	require.Len(t, reqs, 3)
	got := map[int]dto.StageRequest{}
	for _, r := range reqs {
		var s dto.StageRequest
		require.NoError(t, r.DecodeBody(&s))
		got[s.Order] = s
	}
	assert.Equal(t, DefaultStageTitle, got[1].Title)
	assert.Equal(t, "Дизайн", got[2].Title)
	assert.Equal(t, "Макеты", got[2].Description)
	assert.Equal(t, "Разработка", got[3].Title)
	for _, s := range got {
		assert.Equal(t, dto.StageStatusActive, s.Status)
	}
	assert.Len(t, out.Stages.Succeeded, 3)
}

func TestStageFailureIsSilent(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail(http.MethodPost, "/api/projects/100/stages", http.StatusInternalServerError, "nope")

	out, err := f.creator.Create(context.Background(), validDraft())
	require.NoError(t, err)
	assert.Len(t, out.Stages.Failed, 1)
	assert.Empty(t, f.toasts.Level(notify.LevelWarning))
	assert.Equal(t, []string{MsgCreated}, f.toasts.Level(notify.LevelSuccess))
}

func TestBusyLabels(t *testing.T) {
	f := newFixture(t)

	d := validDraft()
	d.Files = []FileUpload{FileFromBytes("a.txt", []byte("a"))}

	_, err := f.creator.Create(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []string{LabelSaving, LabelUploading, LabelSaving, LabelIdle}, f.labels())
	assert.False(t, f.creator.State().Busy())
}

func TestConcurrentCreateIsBusy(t *testing.T) {
	f := newFixture(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	f.backend.FailWhen(func(r testutil.Request) bool {
		if r.Key() == "POST /api/projects" {
			close(entered)
			<-release
		}
		return false
	}, http.StatusTeapot, "")

	done := make(chan error, 1)
	go func() {
		_, err := f.creator.Create(context.Background(), validDraft())
		done <- err
	}()

	<-entered
	assert.True(t, f.creator.State().Busy())
	_, err := f.creator.Create(context.Background(), validDraft())
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, f.creator.State().Busy())
}

func TestCancelAfterCreate(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, unsubscribe := f.bus.Subscribe(1)
	defer unsubscribe()

	f.backend.FailWhen(func(r testutil.Request) bool {
		if r.FileName == "a.txt" {
			cancel()
		}
		return false
	}, http.StatusTeapot, "")

	d := validDraft()
	d.Files = []FileUpload{FileFromBytes("a.txt", []byte("a")), FileFromBytes("b.txt", []byte("b"))}
	d.Links = []string{"https://x.test"}

	out, err := f.creator.Create(ctx, d)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, out)
	assert.Equal(t, int64(100), out.Project.ProjectID)

	assert.Equal(t, []string{"b.txt"}, out.Files.Skipped)
	assert.Equal(t, []string{"https://x.test"}, out.Links.Skipped)
	assert.Len(t, out.Stages.Skipped, 1)

	assert.Empty(t, f.backend.RequestsTo(http.MethodPost, "/api/projects/100/materials"))
	assert.Empty(t, f.backend.RequestsTo(http.MethodPost, "/api/projects/100/stages"))
	assert.Empty(t, f.toasts.Toasts())
	assert.Empty(t, sub)
	assert.False(t, f.creator.State().Busy())
}

func TestMetricsRecorded(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail(http.MethodPost, "/api/projects/100/employees", http.StatusInternalServerError, "")

	d := validDraft()
	d.MemberIDs = []int64{1, 2}
	_, err := f.creator.Create(context.Background(), d)
	require.NoError(t, err)

	bad := validDraft()
	bad.ProjectName = ""
	_, err = f.creator.Create(context.Background(), bad)
	require.Error(t, err)

	expected := `
# HELP deskboard_project_create_runs_total Project creation attempts by outcome.
# TYPE deskboard_project_create_runs_total counter
deskboard_project_create_runs_total{outcome="created"} 1
deskboard_project_create_runs_total{outcome="invalid"} 1
`
	require.NoError(t, promtest.GatherAndCompare(f.metrics.Registry(), strings.NewReader(expected),
		"deskboard_project_create_runs_total"))

	expected = `
# HELP deskboard_project_dependent_items_total Dependent resource submissions by phase and result.
# TYPE deskboard_project_dependent_items_total counter
deskboard_project_dependent_items_total{phase="members",result="failed"} 2
deskboard_project_dependent_items_total{phase="members",result="ok"} 0
deskboard_project_dependent_items_total{phase="stages",result="failed"} 0
deskboard_project_dependent_items_total{phase="stages",result="ok"} 1
`
	require.NoError(t, promtest.GatherAndCompare(f.metrics.Registry(), strings.NewReader(expected),
		"deskboard_project_dependent_items_total"))
}
