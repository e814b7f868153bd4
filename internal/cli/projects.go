package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/deskboard/internal/dto"
	"github.com/roach88/deskboard/internal/listview"
	"github.com/roach88/deskboard/internal/workflow"
)

// ProjectList is a filtered, sorted project list.
type ProjectList struct {
	Projects []dto.Project `json:"projects"`
}

func (l ProjectList) renderText(w io.Writer) {
	if len(l.Projects) == 0 {
		fmt.Fprintln(w, "No projects found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROJECT\tCLIENT\tMANAGER\tDATE\tSTATUS")
	for _, p := range l.Projects {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			p.ProjectID, p.ProjectName, p.ClientName, p.ManagerName, listview.DisplayDate(p.SortDate()), p.Status)
	}
	_ = tw.Flush()
	fmt.Fprintln(w, listview.ProjectCount(len(l.Projects)))
}

// ListOptions holds the list view flags.
type ListOptions struct {
	*RootOptions
	Search string
	Sort   string
}

func (o *ListOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Search, "search", "s", "", "filter by name, description or client")
	cmd.Flags().StringVar(&o.Sort, "sort", string(listview.SortRecent), "sort by end date: recent|oldest")
}

// NewProjectsCommand creates the projects command.
func NewProjectsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List active projects",
		Long: `List active projects, filtered by --search and sorted by end date.

Example:
  deskboard projects --search сайт --sort oldest`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectList(opts, cmd, func(ctx context.Context, a *app, emp *dto.Employee) ([]dto.Project, error) {
				return a.client.ListProjects(ctx)
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

// NewArchiveCommand creates the archive command.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "List archived projects you managed",
		Long: `List the archived projects managed by the logged-in employee,
filtered by --search and sorted by end date (creation date when absent).

Example:
  deskboard archive --sort recent`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectList(opts, cmd, func(ctx context.Context, a *app, emp *dto.Employee) ([]dto.Project, error) {
				return a.client.ListArchivedProjects(ctx, emp.EmployeeID)
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

type projectFetcher func(ctx context.Context, a *app, emp *dto.Employee) ([]dto.Project, error)

func runProjectList(opts *ListOptions, cmd *cobra.Command, fetch projectFetcher) error {
	order, err := listview.ParseSortOrder(opts.Sort)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --sort", err)
	}
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.close()
	emp, err := a.requireDashboard()
	if err != nil {
		return err
	}

	items, err := fetch(commandContext(cmd), a, emp)
	if err != nil {
		a.logger.Error("projects not loaded", "error", err)
		return a.fail(ExitFailure, CodeRequestFailed, "failed to load projects", err)
	}
	return a.out.Success(ProjectList{Projects: listview.ArchiveView(items, opts.Search, order)})
}

// ProjectCreateOptions holds the new project form.
type ProjectCreateOptions struct {
	*RootOptions
	Name           string
	Description    string
	Client         string
	ClientEmail    string
	ClientPhone    string
	Start          string
	End            string
	Manager        int64
	Members        []int64
	Files          []string
	Links          []string
	Stages         []string
	NoDefaultStage bool

	// TokenGenerator overrides the flow token generator (for testing).
	TokenGenerator workflow.TokenGenerator
}

// CreateResult summarizes a project creation run.
type CreateResult struct {
	ProjectID   int64        `json:"project_id"`
	ProjectName string       `json:"project_name"`
	FlowToken   string       `json:"flow_token"`
	Members     PhaseSummary `json:"members"`
	Files       PhaseSummary `json:"files"`
	Links       PhaseSummary `json:"links"`
	Stages      PhaseSummary `json:"stages"`
}

// PhaseSummary counts the items of one dependent phase.
type PhaseSummary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped,omitempty"`
}

func (r CreateResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "project #%d %q\n", r.ProjectID, r.ProjectName)
	for _, p := range []struct {
		name string
		s    PhaseSummary
	}{
		{workflow.PhaseMembers, r.Members},
		{workflow.PhaseFiles, r.Files},
		{workflow.PhaseLinks, r.Links},
		{workflow.PhaseStages, r.Stages},
	} {
		total := p.s.Succeeded + p.s.Failed + p.s.Skipped
		if total == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-8s %d/%d", p.name, p.s.Succeeded, total)
		if p.s.Skipped > 0 {
			fmt.Fprintf(w, " (%d skipped)", p.s.Skipped)
		}
		fmt.Fprintln(w)
	}
}

func summarize[T any](b workflow.BatchResult[T]) PhaseSummary {
	return PhaseSummary{Succeeded: len(b.Succeeded), Failed: len(b.Failed), Skipped: len(b.Skipped)}
}

// NewProjectCommand creates the project command group.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create projects",
	}
	cmd.AddCommand(NewProjectCreateCommand(&ProjectCreateOptions{RootOptions: rootOpts}))
	return cmd
}

// NewProjectCreateCommand creates the project create command.
func NewProjectCreateCommand(opts *ProjectCreateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project with its team, files, links and stages",
		Long: `Create a project, then attach its team members, files, links and stages.

The project itself must be accepted by the server; if it is not, nothing else
is sent. Each member, file, link and stage is then submitted on its own: a
rejected file or link is reported and the rest continue.

Every project starts with the stage "` + workflow.DefaultStageTitle + `" unless
--no-default-stage is given. --stage takes "title" or "title: description".

Exit codes:
  0 - Project created (some attachments may have failed, see messages)
  1 - Form incomplete or project rejected
  2 - Command error (not logged in, bad config)

Example:
  deskboard project create --name "Редизайн сайта" --client "ООО Ромашка" \
    --manager 7 --start 2024-03-01 --end 2024-06-30 \
    --member 3 --member 4 --file brief.pdf --link example.com/spec \
    --stage "Дизайн: Макеты страниц"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "project name (required)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "project description")
	cmd.Flags().StringVar(&opts.Client, "client", "", "client name (required)")
	cmd.Flags().StringVar(&opts.ClientEmail, "client-email", "", "client email")
	cmd.Flags().StringVar(&opts.ClientPhone, "client-phone", "", "client phone")
	cmd.Flags().StringVar(&opts.Start, "start", "", "start date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&opts.End, "end", "", "end date YYYY-MM-DD (required)")
	cmd.Flags().Int64Var(&opts.Manager, "manager", 0, "manager employee id (required)")
	cmd.Flags().Int64SliceVar(&opts.Members, "member", nil, "team member employee id (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Files, "file", nil, "file to upload (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Links, "link", nil, "link to attach (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Stages, "stage", nil, `extra stage "title[: description]" (repeatable)`)
	cmd.Flags().BoolVar(&opts.NoDefaultStage, "no-default-stage", false, "drop the default first stage")

	return cmd
}

// draft builds the form from the flags.
func (o *ProjectCreateOptions) draft() (workflow.Draft, error) {
	d := workflow.NewDraft()
	if o.NoDefaultStage {
		d.Stages = nil
	}
	d.ProjectName = o.Name
	d.Description = o.Description
	d.ClientName = o.Client
	d.ClientEmail = o.ClientEmail
	d.ClientPhone = o.ClientPhone
	d.ManagerID = o.Manager

	for _, s := range []string{o.Start, o.End} {
		if s == "" {
			continue
		}
		t, err := time.Parse(dto.DateLayout, s)
		if err != nil {
			return workflow.Draft{}, fmt.Errorf("date %q is not YYYY-MM-DD", s)
		}
		d.DateRange = append(d.DateRange, t)
	}
	for _, id := range o.Members {
		d.AddMember(id)
	}
	for _, p := range o.Files {
		d.Files = append(d.Files, workflow.FileFromPath(p))
	}
	for _, l := range o.Links {
		d.AddLink(l)
	}
	for _, s := range o.Stages {
		title, description, _ := strings.Cut(s, ":")
		d.AddStage(strings.TrimSpace(title), strings.TrimSpace(description))
	}
	return d, nil
}

func runProjectCreate(opts *ProjectCreateOptions, cmd *cobra.Command) error {
	draft, err := opts.draft()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid project form", err)
	}

	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.close()
	if _, err := a.requireDashboard(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creatorOpts := []workflow.Option{
		workflow.WithNotifier(a.toasts),
		workflow.WithPublisher(a.bus),
		workflow.WithLogger(a.logger),
		workflow.WithMetrics(a.metrics),
		workflow.WithConcurrency(a.cfg.Concurrency),
		workflow.WithStateObserver(func(s workflow.State) {
			a.out.VerboseLog("%s", s.Label())
		}),
	}
	if opts.TokenGenerator != nil {
		creatorOpts = append(creatorOpts, workflow.WithTokenGenerator(opts.TokenGenerator))
	}
	creator := workflow.NewCreator(a.client, creatorOpts...)

	out, err := creator.Create(ctx, draft)
	a.writeMetrics()
	if out != nil {
		a.out.TraceID = out.FlowToken
	}

	var createErr *workflow.CreateError
	switch {
	case errors.Is(err, workflow.ErrMissingRequired):
		return a.fail(ExitFailure, CodeInvalidInput, "project form incomplete", err)
	case errors.As(err, &createErr):
		return a.fail(ExitFailure, errorCode(err), "project not created", err)
	case err != nil && out != nil:
		return a.fail(ExitFailure, CodeLocal, fmt.Sprintf("project %d created, attachments interrupted", out.Project.ProjectID), err)
	case err != nil:
		return a.fail(ExitFailure, errorCode(err), "project not created", err)
	}

	return a.out.Success(CreateResult{
		ProjectID:   out.Project.ProjectID,
		ProjectName: out.Project.ProjectName,
		FlowToken:   out.FlowToken,
		Members:     summarize(out.Members),
		Files:       summarize(out.Files),
		Links:       summarize(out.Links),
		Stages:      summarize(out.Stages),
	})
}
