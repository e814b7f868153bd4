package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/deskboard/internal/api"
	"github.com/roach88/deskboard/internal/dto"
	"github.com/roach88/deskboard/internal/events"
	"github.com/roach88/deskboard/internal/metrics"
	"github.com/roach88/deskboard/internal/notify"
)

// User-facing messages.
const (
	MsgCreated          = "Проект успешно создан!"
	msgCreateFailed     = "Ошибка создания проекта: %s"
	msgCreateNoResponse = "Ошибка создания проекта. Проверьте консоль для деталей."
	msgFileFailed       = "Файл %s не загружен: %s"
	msgLinkFailed       = "Ссылка %q не добавлена: %s"
	msgUnknownError     = "неизвестная ошибка"

	linkTitle       = "Ссылка %d"
	linkDescription = "Добавлена при создании проекта"
)

// Phase names, used in logs and metrics.
const (
	PhaseProject = "project"
	PhaseMembers = "members"
	PhaseFiles   = "files"
	PhaseLinks   = "links"
	PhaseStages  = "stages"
)

// ErrBusy is returned when Create is called while another run holds the gate.
var ErrBusy = errors.New("project creation already in progress")

// ProjectClient is the subset of the backend the workflow calls.
type ProjectClient interface {
	CreateProject(ctx context.Context, req dto.CreateProjectRequest) (*dto.Project, error)
	AddProjectMember(ctx context.Context, projectID, employeeID int64) error
	UploadProjectFile(ctx context.Context, projectID int64, filename string, content io.Reader) (*dto.UploadedFile, error)
	AddProjectMaterial(ctx context.Context, projectID int64, req dto.MaterialRequest) (*dto.Material, error)
	AddProjectStage(ctx context.Context, projectID int64, req dto.StageRequest) (*dto.Stage, error)
}

// Outcome is what a run produced once the project record exists.
type Outcome struct {
	Project   dto.Project
	FlowToken string
	Members   BatchResult[int64]
	Files     BatchResult[string]
	Links     BatchResult[string]
	Stages    BatchResult[dto.StageRequest]
}

// Complete reports whether every dependent item was accepted.
func (o *Outcome) Complete() bool {
	return o.Members.OK() && o.Files.OK() && o.Links.OK() && o.Stages.OK()
}

// CreateError is returned when the project record itself was not created.
type CreateError struct {
	Err error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("create project: %v", e.Err)
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// Creator runs the creation workflow. One Creator backs one form: it admits a
// single run at a time.
type Creator struct {
	client      ProjectClient
	notifier    notify.Notifier
	publisher   events.Publisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tokens      TokenGenerator
	concurrency int
	gate        stateGate
}

// Option configures a Creator.
type Option func(*Creator)

// WithNotifier sets where user-facing messages go.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Creator) { c.notifier = n }
}

// WithPublisher sets where the ProjectCreated event goes.
func WithPublisher(p events.Publisher) Option {
	return func(c *Creator) { c.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Creator) { c.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Creator) { c.metrics = m }
}

// WithTokenGenerator overrides the flow token source (for testing).
func WithTokenGenerator(g TokenGenerator) Option {
	return func(c *Creator) { c.tokens = g }
}

// WithConcurrency bounds in-flight requests in the parallel phases.
// Zero or less means unbounded.
func WithConcurrency(n int) Option {
	return func(c *Creator) { c.concurrency = n }
}

// WithStateObserver is called on every busy-state change.
func WithStateObserver(fn func(State)) Option {
	return func(c *Creator) { c.gate.observer = fn }
}

// NewCreator creates a Creator that submits through client.
func NewCreator(client ProjectClient, opts ...Option) *Creator {
	c := &Creator{
		client:    client,
		notifier:  notify.Discard,
		publisher: events.Discard,
		logger:    slog.Default(),
		tokens:    UUIDv7Generator{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current busy state.
func (c *Creator) State() State {
	return c.gate.current()
}

// Create validates d and, if it is complete, runs the five phases.
//
// A validation failure returns an error wrapping ErrMissingRequired before any
// request is made. A phase 1 failure returns a *CreateError and leaves d as it
// was so the caller can retry. After phase 1 the run succeeds regardless of
// dependent-item failures, which are reported in the Outcome. If ctx ends
// after phase 1, the partial Outcome is returned along with ctx's error.
func (c *Creator) Create(ctx context.Context, d Draft) (*Outcome, error) {
	if err := Validate(d); err != nil {
		c.notifier.Error(MsgFillRequired)
		c.metrics.ObserveRun(metrics.OutcomeInvalid)
		return nil, err
	}
	if !c.gate.begin() {
		return nil, ErrBusy
	}
	defer c.gate.end()

	d = d.snapshot()
	token := c.tokens.Generate()
	ctx = api.WithRequestID(ctx, token)
	logger := c.logger.With("flow_token", token)

	logger.Info("creating project", "name", d.ProjectName, "manager_id", d.ManagerID)
	start := time.Now()
	project, err := c.client.CreateProject(ctx, d.projectRequest())
	c.metrics.ObservePhase(PhaseProject, time.Since(start))
	if err != nil {
		logger.Error("project not created", "error", err)
		if ctx.Err() != nil {
			c.metrics.ObserveRun(metrics.OutcomeCancelled)
			return nil, &CreateError{Err: err}
		}
		c.notifier.Error(createErrorMessage(err))
		c.metrics.ObserveRun(metrics.OutcomeFailed)
		return nil, &CreateError{Err: err}
	}

	projectID := project.ProjectID
	logger = logger.With("project_id", projectID)
	logger.Info("project created")

	out := &Outcome{Project: *project, FlowToken: token}
	out.Members = c.attachMembers(ctx, logger, projectID, d.MemberIDs)
	out.Files = c.uploadFiles(ctx, logger, projectID, d.Files)
	out.Links = c.attachLinks(ctx, logger, projectID, d.Links)
	out.Stages = c.attachStages(ctx, logger, projectID, d.stageRequests())

	if err := ctx.Err(); err != nil {
		logger.Warn("project created, enrichment cancelled", "error", err)
		c.metrics.ObserveRun(metrics.OutcomeCancelled)
		return out, fmt.Errorf("project %d created, enrichment cancelled: %w", projectID, err)
	}

	logger.Info("project fully processed", "complete", out.Complete())
	c.metrics.ObserveRun(metrics.OutcomeCreated)
	c.notifier.Success(MsgCreated)
	c.publisher.Publish(events.Event{Kind: events.ProjectCreated, ProjectID: projectID})
	return out, nil
}

func (c *Creator) attachMembers(ctx context.Context, logger *slog.Logger, projectID int64, ids []int64) BatchResult[int64] {
	if len(ids) == 0 {
		return BatchResult[int64]{}
	}
	defer c.timePhase(PhaseMembers)()

	errs := c.parallel(ctx, len(ids), func(i int) error {
		return c.client.AddProjectMember(ctx, projectID, ids[i])
	})
	res := collect(ids, errs)
	for _, f := range res.Failed {
		logger.Warn("member not attached", "employee_id", f.Input, "error", f.Err)
	}
	c.observe(PhaseMembers, len(res.Succeeded), len(res.Failed))
	logger.Debug("members processed", "ok", len(res.Succeeded), "failed", len(res.Failed))
	return res
}

func (c *Creator) uploadFiles(ctx context.Context, logger *slog.Logger, projectID int64, files []FileUpload) BatchResult[string] {
	var res BatchResult[string]
	if len(files) == 0 {
		return res
	}
	defer c.timePhase(PhaseFiles)()

	c.gate.setUploading(true)
	defer c.gate.setUploading(false)

	for i, f := range files {
		if ctx.Err() != nil {
			for _, rest := range files[i:] {
				res.Skipped = append(res.Skipped, rest.Name)
			}
			break
		}
		err := c.uploadOne(ctx, projectID, f)
		if err == nil {
			logger.Debug("file uploaded", "file", f.Name)
			res.Succeeded = append(res.Succeeded, f.Name)
			continue
		}
		res.Failed = append(res.Failed, ItemFailure[string]{Input: f.Name, Detail: detailOf(err), Err: err})
		logger.Warn("file not uploaded", "file", f.Name, "error", err)
		if ctx.Err() == nil {
			c.notifier.Warning(fmt.Sprintf(msgFileFailed, f.Name, serverDetail(err)))
		}
	}
	c.observe(PhaseFiles, len(res.Succeeded), len(res.Failed))
	return res
}

func (c *Creator) uploadOne(ctx context.Context, projectID int64, f FileUpload) error {
	if f.Open == nil {
		return fmt.Errorf("file %s has no content", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	_, err = c.client.UploadProjectFile(ctx, projectID, f.Name, rc)
	return err
}

func (c *Creator) attachLinks(ctx context.Context, logger *slog.Logger, projectID int64, links []string) BatchResult[string] {
	var res BatchResult[string]
	if len(links) == 0 {
		return res
	}
	defer c.timePhase(PhaseLinks)()

	for i, link := range links {
		if ctx.Err() != nil {
			res.Skipped = append(res.Skipped, links[i:]...)
			break
		}
		url := NormalizeURL(link)
		_, err := c.client.AddProjectMaterial(ctx, projectID, dto.MaterialRequest{
			Title:       fmt.Sprintf(linkTitle, i+1),
			URL:         url,
			Type:        dto.MaterialTypeLink,
			Description: linkDescription,
		})
		if err == nil {
			res.Succeeded = append(res.Succeeded, url)
			continue
		}
		res.Failed = append(res.Failed, ItemFailure[string]{Input: url, Detail: detailOf(err), Err: err})
		logger.Warn("link not attached", "url", link, "position", i+1, "error", err)
		if ctx.Err() == nil {
			c.notifier.Warning(fmt.Sprintf(msgLinkFailed, link, serverDetail(err)))
		}
	}
	c.observe(PhaseLinks, len(res.Succeeded), len(res.Failed))
	return res
}

func (c *Creator) attachStages(ctx context.Context, logger *slog.Logger, projectID int64, stages []dto.StageRequest) BatchResult[dto.StageRequest] {
	if len(stages) == 0 {
		return BatchResult[dto.StageRequest]{}
	}
	defer c.timePhase(PhaseStages)()

	errs := c.parallel(ctx, len(stages), func(i int) error {
		_, err := c.client.AddProjectStage(ctx, projectID, stages[i])
		return err
	})
	res := collect(stages, errs)
	for _, f := range res.Failed {
		logger.Warn("stage not created", "title", f.Input.Title, "order", f.Input.Order, "error", f.Err)
	}
	c.observe(PhaseStages, len(res.Succeeded), len(res.Failed))
	return res
}

// errSkipped marks an item that was not submitted because ctx ended first.
var errSkipped = errors.New("skipped")

// parallel runs submit for every index and waits for all of them. Individual
// errors are returned per index, never propagated to the group.
func (c *Creator) parallel(ctx context.Context, n int, submit func(i int) error) []error {
	errs := make([]error, n)
	var g errgroup.Group
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if ctx.Err() != nil {
				errs[i] = errSkipped
				return nil
			}
			errs[i] = submit(i)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func collect[T any](inputs []T, errs []error) BatchResult[T] {
	var res BatchResult[T]
	for i, in := range inputs {
		switch err := errs[i]; {
		case err == nil:
			res.Succeeded = append(res.Succeeded, in)
		case errors.Is(err, errSkipped):
			res.Skipped = append(res.Skipped, in)
		default:
			res.Failed = append(res.Failed, ItemFailure[T]{Input: in, Detail: detailOf(err), Err: err})
		}
	}
	return res
}

func (c *Creator) observe(phase string, ok, failed int) {
	c.metrics.ObserveItems(phase, ok, failed)
}

func (c *Creator) timePhase(phase string) func() {
	start := time.Now()
	return func() { c.metrics.ObservePhase(phase, time.Since(start)) }
}

// detailOf prefers the server explanation over the error text.
func detailOf(err error) string {
	if d := api.ErrorDetail(err); d != "" {
		return d
	}
	return err.Error()
}

// serverDetail is the server explanation, or a generic phrase.
func serverDetail(err error) string {
	if d := api.ErrorDetail(err); d != "" {
		return d
	}
	return msgUnknownError
}

func createErrorMessage(err error) string {
	if !api.IsResponseError(err) {
		return msgCreateNoResponse
	}
	return fmt.Sprintf(msgCreateFailed, detailOf(err))
}
