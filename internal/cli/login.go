package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/deskboard/internal/dto"
	"github.com/roach88/deskboard/internal/router"
	"github.com/roach88/deskboard/internal/session"
)

// ViewResult reports which top-level view the session resolves to.
type ViewResult struct {
	View     string        `json:"view"`
	Employee *dto.Employee `json:"employee,omitempty"`
}

func (r ViewResult) renderText(w io.Writer) {
	if r.Employee == nil {
		fmt.Fprintf(w, "view: %s (not logged in)\n", r.View)
		return
	}
	fmt.Fprintf(w, "view: %s\n", r.View)
	fmt.Fprintf(w, "employee: %s <%s>, %s\n", r.Employee.FullName, r.Employee.Email, r.Employee.PositionName())
}

func viewResult(s session.Session) ViewResult {
	return ViewResult{View: router.Resolve(s).String(), Employee: s.Employee()}
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Log in with a work email",
		Long: `Log in as the employee with the given email.

The email is looked up in the employee list; there is no password.
The session is kept in local storage until logout.

Example:
  deskboard login anna@example.com`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			emp, err := session.Authenticate(commandContext(cmd), a.client, args[0])
			switch {
			case errors.Is(err, session.ErrInvalidEmail), errors.Is(err, session.ErrUnknownEmail):
				a.toasts.Error(err.Error())
				return a.fail(ExitFailure, CodeInvalidInput, "login rejected", err)
			case err != nil:
				return a.fail(ExitFailure, CodeRequestFailed, "failed to load employees", err)
			}

			s, err := session.Login(a.store, emp)
			if err != nil {
				return a.fail(ExitCommandError, CodeLocal, "failed to save session", err)
			}
			a.logger.Info("logged in", "employee_id", emp.EmployeeID)
			return a.out.Success(viewResult(s))
		},
	}
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "logout",
		Short:         "Forget the logged-in employee",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			s, err := session.Logout(a.store)
			if err != nil {
				return a.fail(ExitCommandError, CodeLocal, "failed to clear session", err)
			}
			return a.out.Success(viewResult(s))
		},
	}
}

// NewViewCommand creates the view command.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "view",
		Short:         "Show which view the current session opens",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()
			return a.out.Success(viewResult(a.session))
		},
	}
}
