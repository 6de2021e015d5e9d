package admin

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/repository"
	redisrepo "github.com/kirinyoku/party-rsvp/internal/repository/redis"
)

type fakeStore struct {
	rows    []domain.Confirmation
	filters []domain.ConfirmationFilter
}

func (f *fakeStore) List(_ context.Context, filter domain.ConfirmationFilter) ([]domain.Confirmation, error) {
	f.filters = append(f.filters, filter)
	return f.rows, nil
}

func (f *fakeStore) Stats(context.Context) (domain.Stats, error) {
	return domain.Stats{Confirmations: len(f.rows)}, nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	for i, c := range f.rows {
		if c.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete: %w", repository.ErrNotFound)
}

func (f *fakeStore) SetEmbarked(_ context.Context, id int64, embarked bool) error {
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Embarked = embarked
			return nil
		}
	}
	return fmt.Errorf("embark: %w", repository.ErrNotFound)
}

type change struct {
	kind string
	id   int64
}

type fakeNotifier struct{ changes []change }

func (f *fakeNotifier) Changed(_ context.Context, kind string, id int64) {
	f.changes = append(f.changes, change{kind, id})
}

func TestExportCSV(t *testing.T) {
	store := &fakeStore{rows: []domain.Confirmation{{
		ID:             1,
		EmployeeName:   `Ana "Nina" Lima`,
		Department:     "TI, Infra",
		TotalAdults:    1,
		TotalChildren:  2,
		WantsTransport: true,
		TotalTransport: 3,
		Total:          30142,
		CreatedAt:      time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC),
	}}}
	svc := New(store, nil, nil)

	var buf bytes.Buffer
	filter := domain.ConfirmationFilter{OnlyTransport: true}
	require.NoError(t, svc.ExportCSV(context.Background(), &buf, filter))

	want := "name,department,companions,adults,children,transport,seats,total,embarked,created_at\n" +
		`"Ana ""Nina"" Lima","TI, Infra",3,1,2,yes,3,301.42,no,2025-11-03` + "\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, []domain.ConfirmationFilter{filter}, store.filters)
}

func TestDeleteNotifies(t *testing.T) {
	store := &fakeStore{rows: []domain.Confirmation{{ID: 1}, {ID: 2}}}
	n := &fakeNotifier{}
	svc := New(store, n, nil)

	require.NoError(t, svc.Delete(context.Background(), 2))
	assert.Len(t, store.rows, 1)
	assert.Equal(t, []change{{redisrepo.ChangeDeleted, 2}}, n.changes)

	assert.ErrorIs(t, svc.Delete(context.Background(), 2), ErrConfirmationNotFound)
	assert.Len(t, n.changes, 1)
}

func TestSetEmbarked(t *testing.T) {
	store := &fakeStore{rows: []domain.Confirmation{{ID: 5}}}
	n := &fakeNotifier{}
	svc := New(store, n, nil)

	require.NoError(t, svc.SetEmbarked(context.Background(), 5, true))
	assert.True(t, store.rows[0].Embarked)
	assert.Equal(t, []change{{redisrepo.ChangeEmbarked, 5}}, n.changes)

	assert.ErrorIs(t, svc.SetEmbarked(context.Background(), 6, true), ErrConfirmationNotFound)
}

func TestListNeverNil(t *testing.T) {
	svc := New(&fakeStore{}, nil, nil)

	out, err := svc.List(context.Background(), domain.ConfirmationFilter{})
	require.NoError(t, err)
	assert.NotNil(t, out)
}
