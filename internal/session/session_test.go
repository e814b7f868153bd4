package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deskboard/internal/dto"
	"github.com/roach88/deskboard/internal/store"
)

type memStorage struct {
	items  map[string]string
	setErr error
}

func newMemStorage() *memStorage {
	return &memStorage{items: map[string]string{}}
}

func (m *memStorage) GetItem(key string) (string, bool, error) {
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memStorage) SetItem(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.items[key] = value
	return nil
}

func (m *memStorage) RemoveItem(key string) error {
	delete(m.items, key)
	return nil
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestLoad_Empty(t *testing.T) {
	s, err := Load(newMemStorage())
	require.NoError(t, err)
	assert.False(t, s.LoggedIn())
	assert.Nil(t, s.Employee())
}

func TestLoad_FlagWithoutEmployee(t *testing.T) {
	st := newMemStorage()
	st.items[KeyLoggedIn] = "true"

	s, err := Load(st)
	require.NoError(t, err)
	assert.False(t, s.LoggedIn())
}

func TestLoad_CorruptEmployee(t *testing.T) {
	st := newMemStorage()
	st.items[KeyLoggedIn] = "true"
	st.items[KeyCurrentEmployee] = "{not json"

	s, err := Load(st)
	require.NoError(t, err)
	assert.False(t, s.LoggedIn())
}

func TestLoginPersistsBothKeys(t *testing.T) {
	st := openStore(t)
	emp := dto.Employee{EmployeeID: 7, FullName: "Анна", Email: "anna@example.com"}

	s, err := Login(st, emp)
	require.NoError(t, err)
	assert.True(t, s.LoggedIn())
	assert.Equal(t, int64(7), s.Employee().EmployeeID)

	flag, ok, err := st.GetItem(KeyLoggedIn)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", flag)

	loaded, err := Load(st)
	require.NoError(t, err)
	assert.True(t, loaded.LoggedIn())
	assert.Equal(t, "anna@example.com", loaded.Employee().Email)
}

func TestLogoutClearsDurableState(t *testing.T) {
	st := openStore(t)
	_, err := Login(st, dto.Employee{EmployeeID: 1, Email: "a@b.co"})
	require.NoError(t, err)

	s, err := Logout(st)
	require.NoError(t, err)
	assert.False(t, s.LoggedIn())

	_, ok, err := st.GetItem(KeyLoggedIn)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = st.GetItem(KeyCurrentEmployee)
	require.NoError(t, err)
	assert.False(t, ok)

	fresh, err := Load(st)
	require.NoError(t, err)
	assert.False(t, fresh.LoggedIn())
}

func TestLoginStorageFailure(t *testing.T) {
	st := newMemStorage()
	st.setErr = errors.New("read-only")

	_, err := Login(st, dto.Employee{EmployeeID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
}

func TestEmployeeReturnsCopy(t *testing.T) {
	s, err := Login(newMemStorage(), dto.Employee{EmployeeID: 1, FullName: "A"})
	require.NoError(t, err)

	e := s.Employee()
	e.FullName = "B"
	assert.Equal(t, "A", s.Employee().FullName)
}

type fakeLister struct {
	employees []dto.Employee
	err       error
	calls     int
}

func (f *fakeLister) ListEmployees(ctx context.Context) ([]dto.Employee, error) {
	f.calls++
	return f.employees, f.err
}

func TestAuthenticate(t *testing.T) {
	lister := &fakeLister{employees: []dto.Employee{
		{EmployeeID: 1, Email: "anna@example.com"},
		{EmployeeID: 2, Email: "oleg@example.com"},
	}}

	emp, err := Authenticate(context.Background(), lister, "oleg@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), emp.EmployeeID)

	_, err = Authenticate(context.Background(), lister, "OLEG@example.com")
	assert.ErrorIs(t, err, ErrUnknownEmail)
}

func TestAuthenticateRejectsMalformedWithoutFetching(t *testing.T) {
	lister := &fakeLister{}

	for _, email := range []string{"", "plain", "a@b", "a b@c.d", "@c.d"} {
		_, err := Authenticate(context.Background(), lister, email)
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
	}
	assert.Equal(t, 0, lister.calls)
}

func TestAuthenticateListFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection refused")}

	_, err := Authenticate(context.Background(), lister, "a@b.co")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
