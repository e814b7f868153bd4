package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/deskboard/internal/api"
	"github.com/roach88/deskboard/internal/config"
	"github.com/roach88/deskboard/internal/dto"
	"github.com/roach88/deskboard/internal/events"
	"github.com/roach88/deskboard/internal/metrics"
	"github.com/roach88/deskboard/internal/notify"
	"github.com/roach88/deskboard/internal/router"
	"github.com/roach88/deskboard/internal/session"
	"github.com/roach88/deskboard/internal/store"
)

// app is everything a command needs, built once per invocation.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	client  *api.Client
	store   *store.Store
	session session.Session
	bus     *events.Bus
	metrics *metrics.Metrics
	toasts  *notify.Recorder
	out     *OutputFormatter

	stopEvents func()
	eventsDone chan struct{}
}

// openApp loads the config, opens local storage and reads the session.
// Call close when the command is done.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg, err := config.Load(opts.Config, lookup)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level := cfg.Level()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create data directory", err)
	}
	logger.Debug("opening local storage", "path", cfg.DBPath())
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open local storage", err)
	}
	sess, err := session.Load(st)
	if err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read session", err)
	}

	toasts := &notify.Recorder{}
	a := &app{
		cfg:     cfg,
		logger:  logger,
		client:  api.New(cfg.BaseURL, api.WithTimeout(cfg.Timeout), api.WithLogger(logger)),
		store:   st,
		session: sess,
		bus:     events.NewBus(),
		metrics: metrics.New(),
		toasts:  toasts,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
			Toasts:    toasts,
		},
	}
	a.watchEvents()
	return a, nil
}

// watchEvents logs every published change at debug level.
func (a *app) watchEvents() {
	ch, stop := a.bus.Subscribe(16)
	a.stopEvents = stop
	a.eventsDone = make(chan struct{})
	go func() {
		defer close(a.eventsDone)
		for e := range ch {
			a.logger.Debug("event", "kind", e.Kind,
				"project_id", e.ProjectID, "employee_id", e.EmployeeID, "task_id", e.TaskID)
		}
	}()
}

func (a *app) close() {
	a.stopEvents()
	<-a.eventsDone
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing local storage", "error", err)
	}
}

// requireDashboard returns the logged-in employee, or an error when the
// session resolves to the login view.
func (a *app) requireDashboard() (*dto.Employee, error) {
	if err := router.RequireDashboard(a.session); err != nil {
		return nil, a.fail(ExitCommandError, CodeLoginRequired, "not logged in, run `deskboard login <email>` first", err)
	}
	return a.session.Employee(), nil
}

// fail reports the error through the formatter and returns it as an
// ExitError that is not printed again.
func (a *app) fail(exitCode int, code, message string, err error) error {
	var details any
	if err != nil {
		details = err.Error()
	}
	if outErr := a.out.Error(code, message, details); outErr != nil {
		return outErr
	}
	exitErr := WrapExitError(exitCode, message, err)
	exitErr.Reported = true
	return exitErr
}

// writeMetrics exports the run counters when a textfile is configured.
func (a *app) writeMetrics() {
	if a.cfg.MetricsTextfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		a.logger.Warn("metrics not written", "path", a.cfg.MetricsTextfile, "error", err)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, "invalid "+what+" id: "+s)
	}
	return id, nil
}

// errorCode picks the response code for a failed backend call.
func errorCode(err error) string {
	if errors.Is(err, context.Canceled) {
		return CodeLocal
	}
	return CodeRequestFailed
}
