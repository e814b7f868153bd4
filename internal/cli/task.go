package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/deskboard/internal/dto"
	"github.com/roach88/deskboard/internal/listview"
	"github.com/roach88/deskboard/internal/tasks"
)

// TaskFileRow is a task file with the address it opens at.
type TaskFileRow struct {
	dto.TaskFile
	ViewURL  string `json:"view_url,omitempty"`
	SizeText string `json:"size_text,omitempty"`
}

// TaskResult is an opened task card.
type TaskResult struct {
	Task  dto.Task      `json:"task"`
	Files []TaskFileRow `json:"files"`
}

func (r TaskResult) renderText(w io.Writer) {
	t := r.Task
	fmt.Fprintf(w, "task #%d %s\n", t.TaskID, t.Name)
	if t.Description != "" {
		fmt.Fprintf(w, "  %s\n", t.Description)
	}
	fmt.Fprintf(w, "  project:  %s\n", t.ProjectName)
	fmt.Fprintf(w, "  executor: %s\n", t.ExecutorName)
	fmt.Fprintf(w, "  dates:    %s - %s\n", listview.DisplayDate(t.StartDate), listview.DisplayDate(t.EndDate))
	fmt.Fprintf(w, "  status:   %s\n", t.Status)
	if t.Priority != "" {
		fmt.Fprintf(w, "  priority: %s\n", t.Priority)
	}
	if len(r.Files) == 0 {
		fmt.Fprintln(w, "  no files")
		return
	}
	fmt.Fprintln(w, "  files:")
	for _, f := range r.Files {
		fmt.Fprintf(w, "    %s", f.DisplayName())
		if f.SizeText != "" {
			fmt.Fprintf(w, " (%s)", f.SizeText)
		}
		if f.ViewURL != "" {
			fmt.Fprintf(w, " %s", f.ViewURL)
		}
		fmt.Fprintln(w)
	}
}

// FileURLResult is the address a task file opens at.
type FileURLResult struct {
	URL string `json:"url"`
}

func (r FileURLResult) renderText(w io.Writer) {
	fmt.Fprintln(w, r.URL)
}

// NewTaskCommand creates the task command group.
func NewTaskCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Open, complete and fetch files of tasks",
	}
	cmd.AddCommand(newTaskShowCommand(rootOpts))
	cmd.AddCommand(newTaskFileURLCommand(rootOpts))
	cmd.AddCommand(newTaskCompleteCommand(rootOpts))
	return cmd
}

func (a *app) taskDialog() *tasks.Dialog {
	return tasks.NewDialog(a.client, a.cfg.BaseURL,
		tasks.WithNotifier(a.toasts),
		tasks.WithPublisher(a.bus),
		tasks.WithLogger(a.logger),
	)
}

// openTask opens task id. The command line knows only the id, so a dialog
// that fell back to its summary has nothing to show and counts as a failure.
func (a *app) openTask(cmd *cobra.Command, dialog *tasks.Dialog, id int64) (tasks.View, error) {
	view, err := dialog.Open(commandContext(cmd), dto.Task{TaskID: id})
	if err != nil {
		return tasks.View{}, a.fail(ExitFailure, CodeInvalidInput, "task not opened", err)
	}
	if view.Fallback && view.Task.Name == "" {
		return tasks.View{}, a.fail(ExitFailure, CodeRequestFailed, "task not loaded", fmt.Errorf("task %d", id))
	}
	return view, nil
}

func newTaskShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with its files",
		Long: `Show a task card with its attached files.

A task whose files cannot be listed is shown without files. A task that
cannot be loaded is an error.

Example:
  deskboard task show 17`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.requireDashboard(); err != nil {
				return err
			}

			view, err := a.openTask(cmd, a.taskDialog(), id)
			if err != nil {
				return err
			}
			out := TaskResult{Task: view.Task, Files: make([]TaskFileRow, len(view.Files))}
			for i, f := range view.Files {
				u, _ := tasks.ViewURL(a.cfg.BaseURL, f)
				out.Files[i] = TaskFileRow{TaskFile: f, ViewURL: u, SizeText: tasks.SizeText(f)}
			}
			return a.out.Success(out)
		},
	}
}

func newTaskFileURLCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "file-url <task-id> <file-id>",
		Short: "Print the address a task file opens at",
		Long: `Print the address a task file opens at.

file-id is the file's id, or its name for files the server lists without one.

Example:
  deskboard task file-url 17 5`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.requireDashboard(); err != nil {
				return err
			}

			dialog := a.taskDialog()
			view, err := a.openTask(cmd, dialog, id)
			if err != nil {
				return err
			}
			f, ok := findTaskFile(view.Files, args[1])
			if !ok {
				return a.fail(ExitFailure, CodeInvalidInput, fmt.Sprintf("task %d has no file %s", id, args[1]), nil)
			}
			u, err := dialog.FileURL(f)
			if errors.Is(err, tasks.ErrFileUnavailable) {
				return a.fail(ExitFailure, CodeInvalidInput, "file unavailable", err)
			}
			return a.out.Success(FileURLResult{URL: u})
		},
	}
}

// findTaskFile matches ref against file ids, then file names.
func findTaskFile(files []dto.TaskFile, ref string) (dto.TaskFile, bool) {
	for _, f := range files {
		if f.FileID != 0 && fmt.Sprint(f.FileID) == ref {
			return f, true
		}
	}
	for _, f := range files {
		if f.Filename == ref || f.Name == ref {
			return f, true
		}
	}
	return dto.TaskFile{}, false
}

func newTaskCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "complete <task-id>",
		Short:         "Mark a task completed",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.requireDashboard(); err != nil {
				return err
			}

			if err := a.taskDialog().Complete(commandContext(cmd), id); err != nil {
				return a.fail(ExitFailure, CodeRequestFailed, "task not completed", err)
			}
			return a.out.Success(nil)
		},
	}
}
