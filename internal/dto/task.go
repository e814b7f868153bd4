package dto

// TaskStatusCompleted is the terminal task status.
const TaskStatusCompleted = "completed"

// Task is the single normalized task shape used throughout the client.
type Task struct {
	TaskID       int64  `json:"task_id"`
	Name         string `json:"task_name"`
	Description  string `json:"description,omitempty"`
	ExecutorID   int64  `json:"executor_id,omitempty"`
	ExecutorName string `json:"executor_name,omitempty"`
	ProjectID    int64  `json:"project_id,omitempty"`
	ProjectName  string `json:"project_name,omitempty"`
	StageName    string `json:"stage_name,omitempty"`
	StartDate    Date   `json:"start_date"`
	EndDate      Date   `json:"end_date"`
	Status       string `json:"status"`
	Priority     string `json:"priority,omitempty"`
}

// Completed reports whether the task reached its terminal status.
func (t Task) Completed() bool {
	return t.Status == TaskStatusCompleted
}

// TaskWire is a task as any endpoint may send it. Ids arrive as task_id or
// idtask; names as task_name or name.
type TaskWire struct {
	TaskID       *int64 `json:"task_id"`
	IDTask       *int64 `json:"idtask"`
	TaskName     string `json:"task_name"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ExecutorID   *int64 `json:"executor_id"`
	ExecutorName string `json:"executor_name"`
	ProjectID    *int64 `json:"project_id"`
	ProjectName  string `json:"project_name"`
	StageName    string `json:"stage_name"`
	StartDate    Date   `json:"start_date"`
	EndDate      Date   `json:"end_date"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
}

// TaskFromWire maps a wire task onto Task.
func TaskFromWire(w TaskWire) Task {
	t := Task{
		Name:         firstNonEmpty(w.TaskName, w.Name),
		Description:  w.Description,
		ExecutorID:   deref(w.ExecutorID),
		ExecutorName: w.ExecutorName,
		ProjectID:    deref(w.ProjectID),
		ProjectName:  w.ProjectName,
		StageName:    w.StageName,
		StartDate:    w.StartDate,
		EndDate:      w.EndDate,
		Status:       w.Status,
		Priority:     w.Priority,
	}
	switch {
	case w.TaskID != nil:
		t.TaskID = *w.TaskID
	case w.IDTask != nil:
		t.TaskID = *w.IDTask
	}
	return t
}

// TaskFile is a file attached to a task.
type TaskFile struct {
	FileID   int64  `json:"file_id,omitempty"`
	Filename string `json:"filename,omitempty"`
	Name     string `json:"name,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	URL      string `json:"url,omitempty"`
	FileType string `json:"file_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// DisplayName returns the best available file name.
func (f TaskFile) DisplayName() string {
	return firstNonEmpty(f.Filename, f.Name, "Файл")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
