package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/roach88/deskboard/internal/dto"
)

// Request is one call received by the fake backend.
type Request struct {
	Method      string
	Path        string
	Query       string
	ContentType string
	RequestID   string
	Body        []byte
	// FileName is the multipart "file" field name, for uploads.
	FileName string
	// Started and Finished are SeqClock stamps taken on arrival and just
	// before the response is released.
	Started  int64
	Finished int64
	Status   int
}

// Key returns "METHOD /path".
func (r Request) Key() string {
	return r.Method + " " + r.Path
}

// DecodeBody unmarshals the JSON body into v.
func (r Request) DecodeBody(v any) error {
	return json.Unmarshal(r.Body, v)
}

type failure struct {
	match  func(Request) bool
	status int
	detail string
}

// Backend is an in-memory stand-in for the REST backend.
//
// Seed data is set through the exported fields before the first request.
// Failures are injected with Fail and FailWhen; every request is recorded.
type Backend struct {
	Server *httptest.Server

	Employees  []dto.Employee
	TaskCounts map[int64]int
	Projects   []dto.Project
	Archived   []dto.Project
	// Tasks holds raw task bodies so tests can exercise wire variants.
	Tasks     map[int64]map[string]any
	TaskFiles map[int64][]dto.TaskFile
	// NextProjectID is assigned to the next created project.
	NextProjectID int64

	clock    *SeqClock
	mu       sync.Mutex
	requests []Request
	failures []failure
	nextEmp  int64
}

// NewBackend starts a fake backend that is closed when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := StartBackend()
	t.Cleanup(b.Close)
	return b
}

// StartBackend starts a fake backend outside a test. Call Close when done.
func StartBackend() *Backend {
	b := &Backend{
		TaskCounts:    map[int64]int{},
		Tasks:         map[int64]map[string]any{},
		TaskFiles:     map[int64][]dto.TaskFile{},
		NextProjectID: 100,
		clock:         NewSeqClock(),
		nextEmp:       1000,
	}
	b.Server = httptest.NewServer(b.handler())
	return b
}

// Close shuts the server down.
func (b *Backend) Close() {
	b.Server.Close()
}

// URL returns the base address of the fake backend.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Fail makes every request matching method and path answer status with detail.
func (b *Backend) Fail(method, path string, status int, detail string) {
	b.FailWhen(func(r Request) bool {
		return r.Method == method && r.Path == path
	}, status, detail)
}

// FailWhen makes every request accepted by match answer status with detail.
// An empty detail produces an empty body.
func (b *Backend) FailWhen(match func(Request) bool, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, failure{match: match, status: status, detail: detail})
}

// Requests returns a copy of the recorded requests in arrival order.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// RequestsTo returns recorded requests whose path has the given prefix.
func (b *Backend) RequestsTo(method, pathPrefix string) []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			out = append(out, r)
		}
	}
	return out
}

func (b *Backend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/employees", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		list := append([]dto.Employee{}, b.Employees...)
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, list)
	})
	mux.HandleFunc("GET /api/employees/{id}/tasks/count", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		writeJSON(w, http.StatusOK, dto.TaskCount{Count: b.TaskCounts[id]})
	})
	mux.HandleFunc("POST /api/employees", func(w http.ResponseWriter, r *http.Request) {
		var req dto.CreateEmployeeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		b.mu.Lock()
		b.nextEmp++
		emp := dto.Employee{
			EmployeeID:     b.nextEmp,
			FullName:       req.FullName,
			Email:          req.Email,
			Specialization: req.Specialization,
		}
		if req.Phone != nil {
			emp.Contacts = map[string]any{"phone": *req.Phone}
		}
		b.Employees = append(b.Employees, emp)
		b.mu.Unlock()
		writeJSON(w, http.StatusCreated, emp)
	})
	mux.HandleFunc("PUT /api/employees/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		var req dto.UpdateEmployeeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.Employees {
			if e.EmployeeID != id {
				continue
			}
			e.FullName = req.FullName
			e.Email = req.Email
			e.Specialization = req.Specialization
			e.Contacts = map[string]any{}
			for k, v := range req.Contacts {
				e.Contacts[k] = v
			}
			b.Employees[i] = e
			writeJSON(w, http.StatusOK, e)
			return
		}
		writeDetail(w, http.StatusNotFound, "Сотрудник не найден")
	})
	mux.HandleFunc("DELETE /api/employees/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.Employees {
			if e.EmployeeID == id {
				b.Employees = append(b.Employees[:i], b.Employees[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeDetail(w, http.StatusNotFound, "Сотрудник не найден")
	})

	mux.HandleFunc("GET /api/projects", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, b.Projects)
	})
	mux.HandleFunc("GET /api/projects/archived", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, b.Archived)
	})
	mux.HandleFunc("POST /api/projects", func(w http.ResponseWriter, r *http.Request) {
		var req dto.CreateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		b.mu.Lock()
		id := b.NextProjectID
		b.NextProjectID++
		b.mu.Unlock()

		start, _ := dto.ParseDate(req.StartDate)
		end, _ := dto.ParseDate(req.EndDate)
		writeJSON(w, http.StatusCreated, dto.Project{
			ProjectID:   id,
			ProjectName: req.ProjectName,
			ClientName:  req.ClientName,
			StartDate:   start,
			EndDate:     end,
			ManagerID:   req.ManagerID,
			Status:      dto.ProjectActive,
		})
	})
	mux.HandleFunc("POST /api/projects/{id}/employees", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("POST /api/projects/{id}/files", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "file field missing")
			return
		}
		writeJSON(w, http.StatusOK, dto.UploadedFile{FileID: 1, Filename: header.Filename, Size: header.Size})
	})
	mux.HandleFunc("POST /api/projects/{id}/materials", func(w http.ResponseWriter, r *http.Request) {
		var req dto.MaterialRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusCreated, dto.Material{MaterialID: 1, Title: req.Title, URL: req.URL, Type: req.Type})
	})
	mux.HandleFunc("POST /api/projects/{id}/stages", func(w http.ResponseWriter, r *http.Request) {
		var req dto.StageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusCreated, dto.Stage{StageID: int64(req.Order), Title: req.Title, Order: req.Order, Status: req.Status})
	})

	mux.HandleFunc("GET /api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		task, ok := b.Tasks[id]
		if !ok {
			writeDetail(w, http.StatusNotFound, "Задача не найдена")
			return
		}
		writeJSON(w, http.StatusOK, task)
	})
	mux.HandleFunc("GET /api/tasks/{id}/files", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		files, ok := b.TaskFiles[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, files)
	})
	mux.HandleFunc("PUT /api/tasks/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := b.record(r)

		out := httptest.NewRecorder()
		if f, ok := b.failureFor(rec); ok {
			if f.detail == "" {
				out.WriteHeader(f.status)
			} else {
				writeDetail(out, f.status, f.detail)
			}
		} else {
			mux.ServeHTTP(out, r)
		}

		b.finish(rec, out.Code)
		for k, v := range out.Header() {
			w.Header()[k] = v
		}
		w.WriteHeader(out.Code)
		_, _ = w.Write(out.Body.Bytes())
	})
}

// record captures r and restores its body for the routed handler.
func (b *Backend) record(r *http.Request) int {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	req := Request{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.RawQuery,
		ContentType: r.Header.Get("Content-Type"),
		RequestID:   r.Header.Get("X-Request-ID"),
		Body:        body,
		FileName:    multipartFileName(r.Header.Get("Content-Type"), body),
		Started:     b.clock.Next(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	return len(b.requests) - 1
}

func (b *Backend) finish(idx, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests[idx].Status = status
	b.requests[idx].Finished = b.clock.Next()
}

func (b *Backend) failureFor(idx int) (failure, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req := b.requests[idx]
	for _, f := range b.failures {
		if f.match(req) {
			return f, true
		}
	}
	return failure{}, false
}

func multipartFileName(contentType string, body []byte) string {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		return ""
	}
	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		part, err := mr.NextPart()
		if err != nil {
			return ""
		}
		if part.FormName() == "file" {
			return part.FileName()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
