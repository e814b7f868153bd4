package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		valid bool
	}{
		{"calendar date", `"2024-03-15"`, "2024-03-15", true},
		{"timestamp", `"2024-03-15T10:20:30Z"`, "2024-03-15", true},
		{"null", `null`, "", false},
		{"empty", `""`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, json.Unmarshal([]byte(tt.input), &d))
			assert.Equal(t, tt.valid, d.Valid())
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestDateUnmarshalRejectsGarbage(t *testing.T) {
	var d Date
	err := json.Unmarshal([]byte(`"15/03/2024"`), &d)
	require.Error(t, err)
}

func TestDateMarshal(t *testing.T) {
	data, err := json.Marshal(struct {
		A Date `json:"a"`
		B Date `json:"b"`
	}{A: NewDate(time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"2024-01-02","b":null}`, string(data))
}

func TestDateDisplay(t *testing.T) {
	d, err := ParseDate("2023-12-31")
	require.NoError(t, err)
	assert.Equal(t, "31.12.2023", d.Display())
	assert.Equal(t, "—", Date{}.Display())
}

func TestEmployeePositionName(t *testing.T) {
	assert.Equal(t, "Дизайнер", Employee{Position: &Position{PositionName: "Дизайнер"}, Specialization: "x"}.PositionName())
	assert.Equal(t, "Frontend", Employee{Specialization: "Frontend"}.PositionName())
	assert.Equal(t, NoPosition, Employee{}.PositionName())
}

func TestEmployeePhone(t *testing.T) {
	var e Employee
	require.NoError(t, json.Unmarshal([]byte(`{"employee_id":1,"full_name":"A","contacts":{"phone":"+79990001122"}}`), &e))
	assert.Equal(t, "+79990001122", e.Phone())
	assert.Equal(t, "", Employee{}.Phone())
}

func TestTaskFromWire(t *testing.T) {
	t.Run("task_id wins", func(t *testing.T) {
		var w TaskWire
		require.NoError(t, json.Unmarshal([]byte(`{"task_id":7,"idtask":9,"task_name":"Review","status":"completed"}`), &w))
		task := TaskFromWire(w)
		assert.Equal(t, int64(7), task.TaskID)
		assert.Equal(t, "Review", task.Name)
		assert.True(t, task.Completed())
	})

	t.Run("idtask and name fallback", func(t *testing.T) {
		var w TaskWire
		require.NoError(t, json.Unmarshal([]byte(`{"idtask":9,"name":"Draft","start_date":"2024-05-01"}`), &w))
		task := TaskFromWire(w)
		assert.Equal(t, int64(9), task.TaskID)
		assert.Equal(t, "Draft", task.Name)
		assert.Equal(t, "2024-05-01", task.StartDate.String())
		assert.False(t, task.Completed())
	})
}

func TestProjectSortDate(t *testing.T) {
	end, _ := ParseDate("2024-06-01")
	created, _ := ParseDate("2024-01-01")

	assert.Equal(t, end, Project{EndDate: end, CreatedDate: created}.SortDate())
	assert.Equal(t, created, Project{CreatedDate: created}.SortDate())
	assert.False(t, Project{}.SortDate().Valid())
}

func TestTaskFileDisplayName(t *testing.T) {
	assert.Equal(t, "a.pdf", TaskFile{Filename: "a.pdf", Name: "b"}.DisplayName())
	assert.Equal(t, "b", TaskFile{Name: "b"}.DisplayName())
	assert.Equal(t, "Файл", TaskFile{}.DisplayName())
}
