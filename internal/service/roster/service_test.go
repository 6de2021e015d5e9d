package roster

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/repository"
)

type fakeStore struct {
	employees []domain.Employee
	searchErr error
	upserted  []domain.Employee
	queries   []string
}

func (f *fakeStore) Search(_ context.Context, q string, limit int) ([]domain.Employee, error) {
	f.queries = append(f.queries, q)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := f.employees
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id int64) (*domain.Employee, error) {
	for _, e := range f.employees {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("get: %w", repository.ErrNotFound)
}

func (f *fakeStore) Upsert(_ context.Context, employees []domain.Employee) (int64, error) {
	f.upserted = employees
	return int64(len(employees)), nil
}

func TestSearch(t *testing.T) {
	store := &fakeStore{employees: []domain.Employee{{ID: 1, Name: "Ana Lima"}}}
	svc := New(store, nil)

	assert.Empty(t, svc.Search(context.Background(), " a "), "short query is not sent")
	assert.Empty(t, store.queries)

	got := svc.Search(context.Background(), "  ana ")
	assert.Equal(t, store.employees, got)
	assert.Equal(t, []string{"ana"}, store.queries)
}

func TestSearchDegradesToEmpty(t *testing.T) {
	svc := New(&fakeStore{searchErr: errors.New("down")}, nil)

	got := svc.Search(context.Background(), "ana")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetEmployee(t *testing.T) {
	svc := New(&fakeStore{employees: []domain.Employee{{ID: 3, Name: "Rui"}}}, nil)

	e, err := svc.GetEmployee(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Rui", e.Name)

	_, err = svc.GetEmployee(context.Background(), 4)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestImportNormalizes(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, nil)

	n, err := svc.Import(context.Background(), []domain.Employee{
		{Name: "  Ana   Lima ", Department: " TI "},
		{Name: ""},
		{Name: "Bruno"},
		{Name: "Ana Lima", Department: "RH"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, []domain.Employee{
		{Name: "Ana Lima", Department: "RH"},
		{Name: "Bruno"},
	}, store.upserted)

	_, err = svc.Import(context.Background(), []domain.Employee{{Name: "  "}})
	assert.ErrorIs(t, err, ErrEmptyRoster)
}
