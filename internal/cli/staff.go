package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/deskboard/internal/dto"
	"github.com/roach88/deskboard/internal/listview"
	"github.com/roach88/deskboard/internal/staff"
)

// StaffRow is one employee in the staff list.
type StaffRow struct {
	EmployeeID int64  `json:"employee_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email,omitempty"`
	Position   string `json:"position"`
	Phone      string `json:"phone,omitempty"`
	Tasks      int    `json:"tasks"`
}

// StaffList is the filtered staff list.
type StaffList struct {
	Employees []StaffRow `json:"employees"`
}

func (l StaffList) renderText(w io.Writer) {
	if len(l.Employees) == 0 {
		fmt.Fprintln(w, "No employees found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPOSITION\tTASKS")
	for _, r := range l.Employees {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.EmployeeID, r.FullName, r.Email, r.Position, listview.TaskCount(r.Tasks))
	}
	_ = tw.Flush()
}

func staffRow(e staff.Entry) StaffRow {
	return StaffRow{
		EmployeeID: e.Employee.EmployeeID,
		FullName:   e.Employee.FullName,
		Email:      e.Employee.Email,
		Position:   e.Employee.PositionName(),
		Phone:      e.Employee.Phone(),
		Tasks:      e.Tasks,
	}
}

// EmployeeResult is an employee after a successful add or edit.
type EmployeeResult struct {
	Employee dto.Employee `json:"employee"`
}

func (r EmployeeResult) renderText(w io.Writer) {
	e := r.Employee
	fmt.Fprintf(w, "#%d %s <%s>, %s\n", e.EmployeeID, e.FullName, e.Email, e.PositionName())
}

// StaffFormOptions holds the employee dialog fields.
type StaffFormOptions struct {
	*RootOptions
	Name     string
	Email    string
	Position string
	Phone    string
}

func (o *StaffFormOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Name, "name", "", "full name")
	cmd.Flags().StringVar(&o.Email, "email", "", "work email")
	cmd.Flags().StringVar(&o.Position, "position", "", "position: "+strings.Join(staff.Positions, ", "))
	cmd.Flags().StringVar(&o.Phone, "phone", "", "contact phone")
}

// apply copies the flags that were set onto f.
func (o *StaffFormOptions) apply(cmd *cobra.Command, f *staff.Form) {
	if cmd.Flags().Changed("name") {
		f.Name = o.Name
	}
	if cmd.Flags().Changed("email") {
		f.Email = o.Email
	}
	if cmd.Flags().Changed("position") {
		f.Position = o.Position
	}
	if cmd.Flags().Changed("phone") {
		f.Phone = o.Phone
	}
}

// NewStaffCommand creates the staff command group.
func NewStaffCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "List and manage employees",
	}
	cmd.AddCommand(newStaffListCommand(rootOpts))
	cmd.AddCommand(newStaffAddCommand(rootOpts))
	cmd.AddCommand(newStaffEditCommand(rootOpts))
	cmd.AddCommand(newStaffDeleteCommand(rootOpts))
	return cmd
}

func (a *app) roster() *staff.Roster {
	return staff.NewRoster(a.client,
		staff.WithNotifier(a.toasts),
		staff.WithPublisher(a.bus),
		staff.WithLogger(a.logger),
		staff.WithConcurrency(a.cfg.Concurrency),
	)
}

func newStaffListCommand(rootOpts *RootOptions) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List employees with their task counts",
		Long: `List employees with the number of tasks assigned to each.

--search matches name, email and position, ignoring case.

Example:
  deskboard staff list --search дизайн`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.requireDashboard(); err != nil {
				return err
			}

			r := a.roster()
			if err := r.Load(commandContext(cmd)); err != nil {
				return a.fail(ExitFailure, CodeRequestFailed, "failed to load employees", err)
			}
			entries := r.Filter(search)
			out := StaffList{Employees: make([]StaffRow, len(entries))}
			for i, e := range entries {
				out.Employees[i] = staffRow(e)
			}
			return a.out.Success(out)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by name, email or position")
	return cmd
}

func newStaffAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StaffFormOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an employee",
		Long: `Add an employee. Name, email and position are required.

Example:
  deskboard staff add --name "Анна Смирнова" --email anna@example.com --position Дизайнер`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.requireDashboard(); err != nil {
				return err
			}

			form := staff.Form{Position: staff.PositionPlaceholder}
			opts.apply(cmd, &form)
			emp, err := a.roster().Add(commandContext(cmd), form)
			if err != nil {
				return a.failForm(err, "employee not added")
			}
			return a.out.Success(EmployeeResult{Employee: *emp})
		},
	}
	opts.bind(cmd)
	return cmd
}

func newStaffEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StaffFormOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "edit <employee-id>",
		Short: "Edit an employee",
		Long: `Edit an employee. Fields not given keep their current values.
A phone that does not look like 10 to 15 digits is saved with a warning.

Example:
  deskboard staff edit 12 --phone +79991234567`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "employee")
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

			ctx := commandContext(cmd)
			r := a.roster()
			if err := r.Load(ctx); err != nil {
				return a.fail(ExitFailure, CodeRequestFailed, "failed to load employees", err)
			}
			var current *dto.Employee
			for _, e := range r.Entries() {
				if e.Employee.EmployeeID == id {
					current = &e.Employee
					break
				}
			}
			if current == nil {
				return a.fail(ExitCommandError, CodeInvalidInput, fmt.Sprintf("employee %d not found", id), nil)
			}

			form := staff.FormFor(*current)
			opts.apply(cmd, &form)
			emp, err := r.Update(ctx, id, form)
			if err != nil {
				return a.failForm(err, "employee not updated")
			}
			return a.out.Success(EmployeeResult{Employee: *emp})
		},
	}
	opts.bind(cmd)
	return cmd
}

func newStaffDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <employee-id>",
		Short:         "Delete an employee",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "employee")
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

			if err := a.roster().Delete(commandContext(cmd), id); err != nil {
				return a.fail(ExitFailure, CodeRequestFailed, "employee not deleted", err)
			}
			return a.out.Success(nil)
		},
	}
}

// failForm reports a rejected employee dialog.
func (a *app) failForm(err error, message string) error {
	if errors.Is(err, staff.ErrInvalidForm) {
		return a.fail(ExitFailure, CodeInvalidInput, message, err)
	}
	return a.fail(ExitFailure, CodeRequestFailed, message, err)
}
