// Package staff is the employee roster: the list with per-employee task
// counts, and the add, edit and delete dialogs.
package staff

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/deskboard/internal/api"
	"github.com/roach88/deskboard/internal/dto"
	"github.com/roach88/deskboard/internal/events"
	"github.com/roach88/deskboard/internal/listview"
	"github.com/roach88/deskboard/internal/notify"
)

// User-facing messages.
const (
	MsgFillRequired = "Заполните все обязательные поля!"
	MsgLoadFailed   = "Не удалось загрузить сотрудников"
	MsgAdded        = "Сотрудник успешно добавлен"
	MsgUpdated      = "Сотрудник успешно обновлён!"
	MsgDeleted      = "Сотрудник успешно удалён"
	MsgBadPhone     = "Некорректный номер телефона, но сохранение продолжается"
	MsgDeleteFailed = "Ошибка при удалении сотрудника"
	msgAddFailed    = "Ошибка при добавлении сотрудника: %s"
	msgUpdateFailed = "Ошибка при обновлении сотрудника: %s"
)

// Client is the subset of the backend the roster calls.
type Client interface {
	ListEmployees(ctx context.Context) ([]dto.Employee, error)
	EmployeeTaskCount(ctx context.Context, employeeID int64) (int, error)
	CreateEmployee(ctx context.Context, req dto.CreateEmployeeRequest) (*dto.Employee, error)
	UpdateEmployee(ctx context.Context, employeeID int64, req dto.UpdateEmployeeRequest) (*dto.Employee, error)
	DeleteEmployee(ctx context.Context, employeeID int64) error
}

// Entry is one roster card.
type Entry struct {
	Employee dto.Employee
	Tasks    int
}

// TaskText is the card caption, e.g. "3 задачи".
func (e Entry) TaskText() string {
	return listview.TaskCount(e.Tasks)
}

// Roster holds the loaded employee list. Safe for concurrent use.
type Roster struct {
	client      Client
	notifier    notify.Notifier
	publisher   events.Publisher
	logger      *slog.Logger
	concurrency int

	mu      sync.Mutex
	entries []Entry
}

// Option configures a Roster.
type Option func(*Roster)

// WithNotifier sets where user-facing messages go.
func WithNotifier(n notify.Notifier) Option {
	return func(r *Roster) { r.notifier = n }
}

// WithPublisher sets where change events go.
func WithPublisher(p events.Publisher) Option {
	return func(r *Roster) { r.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Roster) { r.logger = l }
}

// WithConcurrency bounds the task-count requests in flight during Load.
func WithConcurrency(n int) Option {
	return func(r *Roster) { r.concurrency = n }
}

// NewRoster creates an empty roster backed by client.
func NewRoster(client Client, opts ...Option) *Roster {
	r := &Roster{
		client:    client,
		notifier:  notify.Discard,
		publisher: events.Discard,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Load fetches the employees and then their task counts. A count that
// cannot be fetched is shown as zero.
func (r *Roster) Load(ctx context.Context) error {
	emps, err := r.client.ListEmployees(ctx)
	if err != nil {
		r.logger.Error("employees not loaded", "error", err)
		r.notifier.Error(MsgLoadFailed)
		return fmt.Errorf("load employees: %w", err)
	}

	entries := make([]Entry, len(emps))
	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, e := range emps {
		entries[i].Employee = e
		g.Go(func() error {
			n, err := r.client.EmployeeTaskCount(ctx, e.EmployeeID)
			if err != nil {
				r.logger.Warn("task count not loaded", "employee_id", e.EmployeeID, "error", err)
				return nil
			}
			entries[i].Tasks = n
			return nil
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	r.logger.Debug("roster loaded", "employees", len(entries))
	return nil
}

// Entries returns a copy of the roster in server order.
func (r *Roster) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

// Filter returns the entries whose employee matches query.
func (r *Roster) Filter(query string) []Entry {
	entries := r.Entries()
	emps := make([]dto.Employee, len(entries))
	tasks := make(map[int64]int, len(entries))
	for i, e := range entries {
		emps[i] = e.Employee
		tasks[e.Employee.EmployeeID] = e.Tasks
	}
	matched := listview.FilterEmployees(emps, query)
	out := make([]Entry, len(matched))
	for i, e := range matched {
		out[i] = Entry{Employee: e, Tasks: tasks[e.EmployeeID]}
	}
	return out
}

// Add creates an employee and appends it with no tasks.
func (r *Roster) Add(ctx context.Context, f Form) (*dto.Employee, error) {
	if err := f.Validate(); err != nil {
		r.notifier.Error(MsgFillRequired)
		return nil, err
	}
	emp, err := r.client.CreateEmployee(ctx, f.createRequest())
	if err != nil {
		r.logger.Error("employee not added", "email", f.Email, "error", err)
		r.notifier.Error(fmt.Sprintf(msgAddFailed, failureDetail(err)))
		return nil, fmt.Errorf("add employee: %w", err)
	}

	r.mu.Lock()
	r.entries = append(r.entries, Entry{Employee: *emp})
	r.mu.Unlock()

	r.logger.Info("employee added", "employee_id", emp.EmployeeID)
	r.notifier.Success(MsgAdded)
	r.publisher.Publish(events.Event{Kind: events.EmployeeAdded, EmployeeID: emp.EmployeeID})
	return emp, nil
}

// Update saves the edit dialog. A malformed phone is warned about but saved.
func (r *Roster) Update(ctx context.Context, employeeID int64, f Form) (*dto.Employee, error) {
	if err := f.Validate(); err != nil {
		r.notifier.Error(MsgFillRequired)
		return nil, err
	}
	if !f.PhoneLooksValid() {
		r.notifier.Warning(MsgBadPhone)
	}
	emp, err := r.client.UpdateEmployee(ctx, employeeID, f.updateRequest())
	if err != nil {
		r.logger.Error("employee not updated", "employee_id", employeeID, "error", err)
		r.notifier.Error(fmt.Sprintf(msgUpdateFailed, failureDetail(err)))
		return nil, fmt.Errorf("update employee %d: %w", employeeID, err)
	}

	r.mu.Lock()
	for i := range r.entries {
		if r.entries[i].Employee.EmployeeID == employeeID {
			r.entries[i].Employee = *emp
		}
	}
	r.mu.Unlock()

	r.logger.Info("employee updated", "employee_id", employeeID)
	r.notifier.Success(MsgUpdated)
	r.publisher.Publish(events.Event{Kind: events.EmployeeUpdated, EmployeeID: employeeID})
	return emp, nil
}

// Delete removes the employee on the server and then from the roster.
func (r *Roster) Delete(ctx context.Context, employeeID int64) error {
	if err := r.client.DeleteEmployee(ctx, employeeID); err != nil {
		r.logger.Error("employee not deleted", "employee_id", employeeID, "error", err)
		r.notifier.Error(MsgDeleteFailed)
		return fmt.Errorf("delete employee %d: %w", employeeID, err)
	}

	r.mu.Lock()
	r.entries = slices.DeleteFunc(r.entries, func(e Entry) bool {
		return e.Employee.EmployeeID == employeeID
	})
	r.mu.Unlock()

	r.logger.Info("employee deleted", "employee_id", employeeID)
	r.notifier.Success(MsgDeleted)
	r.publisher.Publish(events.Event{Kind: events.EmployeeDeleted, EmployeeID: employeeID})
	return nil
}

func failureDetail(err error) string {
	if d := api.ErrorDetail(err); d != "" {
		return d
	}
	return err.Error()
}
