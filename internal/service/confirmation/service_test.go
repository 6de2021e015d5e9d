package confirmation

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/repository"
	postgresrepo "github.com/kirinyoku/party-rsvp/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/party-rsvp/internal/repository/redis"
	"github.com/kirinyoku/party-rsvp/internal/uow"
	"github.com/kirinyoku/party-rsvp/internal/wizard"
)

type fakeRepo struct {
	rows       map[int64]*domain.Confirmation
	companions map[int64][]domain.Companion
	byEmployee map[int64]int64
	nextID     int64

	insertErrs  []error
	replaceErr  error
	seatQueries []int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		rows:       map[int64]*domain.Confirmation{},
		companions: map[int64][]domain.Companion{},
		byEmployee: map[int64]int64{},
	}
}

func (f *fakeRepo) FindByEmployee(_ context.Context, employeeID int64) (*domain.Confirmation, error) {
	id, ok := f.byEmployee[employeeID]
	if !ok {
		return nil, fmt.Errorf("find: %w", repository.ErrNotFound)
	}
	return f.rows[id], nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (*domain.Confirmation, error) {
	c, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("get: %w", repository.ErrNotFound)
	}
	cp := *c
	cp.Companions = f.companions[id]
	return &cp, nil
}

func (f *fakeRepo) VerifyDocument(_ context.Context, id int64, document string) (bool, error) {
	c, ok := f.rows[id]
	if !ok {
		return false, fmt.Errorf("verify: %w", repository.ErrNotFound)
	}
	return c.EmployeeDocument == document, nil
}

func (f *fakeRepo) SeatsSold(_ context.Context, excludeID int64) (int, error) {
	f.seatQueries = append(f.seatQueries, excludeID)
	sold := 0
	for id, c := range f.rows {
		if id != excludeID && c.WantsTransport {
			sold += c.TotalTransport
		}
	}
	return sold, nil
}

func (f *fakeRepo) Insert(_ context.Context, c *domain.Confirmation) (int64, error) {
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	if _, dup := f.byEmployee[c.EmployeeID]; dup {
		return 0, fmt.Errorf("insert: %w", repository.ErrConflict)
	}
	f.nextID++
	cp := *c
	cp.ID = f.nextID
	f.rows[cp.ID] = &cp
	f.byEmployee[c.EmployeeID] = cp.ID
	return cp.ID, nil
}

func (f *fakeRepo) Update(_ context.Context, c *domain.Confirmation) error {
	if _, ok := f.rows[c.ID]; !ok {
		return fmt.Errorf("update: %w", repository.ErrNotFound)
	}
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeRepo) ReplaceCompanions(_ context.Context, id int64, companions []domain.Companion) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.companions[id] = append([]domain.Companion(nil), companions...)
	return nil
}

// fakeTx runs fn directly and only fires hooks when fn succeeds.
type fakeTx struct{ runs int }

func (f *fakeTx) Do(ctx context.Context, fn func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error) error {
	f.runs++
	var hooks []uow.AfterCommit
	if err := fn(ctx, nil, func(h uow.AfterCommit) { hooks = append(hooks, h) }); err != nil {
		return err
	}
	for _, h := range hooks {
		h(ctx)
	}
	return nil
}

type fakeSeats struct{ invalidations int }

func (f *fakeSeats) Availability(ctx context.Context, _ int64, load func(context.Context) (domain.SeatAvailability, error)) (domain.SeatAvailability, error) {
	return load(ctx)
}

func (f *fakeSeats) Invalidate(context.Context) error {
	f.invalidations++
	return nil
}

type published struct {
	kind string
	id   int64
}

type fakePub struct{ msgs []published }

func (f *fakePub) Publish(_ context.Context, kind string, id int64) error {
	f.msgs = append(f.msgs, published{kind, id})
	return nil
}

type fixture struct {
	repo  *fakeRepo
	tx    *fakeTx
	seats *fakeSeats
	pub   *fakePub
	svc   *Service
}

func newFixture(capacity int) *fixture {
	f := &fixture{repo: newFakeRepo(), tx: &fakeTx{}, seats: &fakeSeats{}, pub: &fakePub{}}
	f.svc = New(Deps{
		Repo:  f.repo,
		Bind:  func(postgresrepo.DB) Repo { return f.repo },
		Tx:    f.tx,
		Seats: f.seats,
		Pub:   f.pub,
	}, Config{SeatCapacity: capacity}, nil)
	return f
}

func submission(employeeID int64, seats int, companions ...domain.Companion) domain.Submission {
	return domain.Submission{
		Confirmation: domain.Confirmation{
			EmployeeID:       employeeID,
			EmployeeName:     fmt.Sprintf("emp-%d", employeeID),
			EmployeeDocument: "12345",
			HasCompanions:    len(companions) > 0,
			WantsTransport:   seats > 0,
			TotalTransport:   seats,
		},
		Companions: companions,
	}
}

func TestSubmitInsertThenUpdate(t *testing.T) {
	f := newFixture(90)
	ctx := context.Background()

	id, err := f.svc.Submit(ctx, submission(1, 2, domain.Companion{Name: "Lia", Age: 30, Document: "9"}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Len(t, f.repo.companions[id], 1)

	sub := submission(1, 0)
	sub.ConfirmationID = id
	got, err := f.svc.Submit(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Empty(t, f.repo.companions[id], "companion list replaced, not appended")
	assert.False(t, f.repo.rows[id].WantsTransport)

	assert.Equal(t, 2, f.seats.invalidations)
	assert.Equal(t, []published{{redisrepo.ChangeCreated, id}, {redisrepo.ChangeUpdated, id}}, f.pub.msgs)
}

func TestSubmitDuplicateInsert(t *testing.T) {
	f := newFixture(90)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, submission(1, 0))
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, submission(1, 0))
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
	assert.Len(t, f.pub.msgs, 1, "no hooks after a failed transaction")
}

func TestSubmitChecksCapacityInsideTx(t *testing.T) {
	f := newFixture(5)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, submission(1, 4))
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, submission(2, 2))
	assert.ErrorIs(t, err, wizard.ErrSeatsUnavailable)

	// Editing the first record may keep its own seats.
	edit := submission(1, 5)
	edit.ConfirmationID = 1
	_, err = f.svc.Submit(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.repo.seatQueries[len(f.repo.seatQueries)-1])
}

func TestSubmitUpdateMissing(t *testing.T) {
	f := newFixture(90)

	sub := submission(1, 0)
	sub.ConfirmationID = 42
	_, err := f.svc.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, ErrConfirmationNotFound)
}

func TestSubmitRetriesSerializationFailure(t *testing.T) {
	f := newFixture(90)
	f.repo.insertErrs = []error{&pgconn.PgError{Code: "40001"}, nil}

	id, err := f.svc.Submit(context.Background(), submission(7, 0))
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Equal(t, 2, f.tx.runs)
}

func TestSubmitCompanionFailureSkipsHooks(t *testing.T) {
	f := newFixture(90)
	f.repo.replaceErr = fmt.Errorf("replace: boom")

	_, err := f.svc.Submit(context.Background(), submission(1, 0))
	assert.Error(t, err)
	assert.Empty(t, f.pub.msgs)
	assert.Zero(t, f.seats.invalidations)
}

func TestFindByEmployeeMissingIsNil(t *testing.T) {
	f := newFixture(90)

	c, err := f.svc.FindByEmployee(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestVerifyDocument(t *testing.T) {
	f := newFixture(90)
	_, err := f.svc.Submit(context.Background(), submission(1, 0))
	require.NoError(t, err)

	ok, err := f.svc.VerifyDocument(context.Background(), 1, "12345")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.VerifyDocument(context.Background(), 1, "00000")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.VerifyDocument(context.Background(), 99, "12345")
	assert.ErrorIs(t, err, ErrConfirmationNotFound)
}

func TestAvailability(t *testing.T) {
	f := newFixture(10)
	_, err := f.svc.Submit(context.Background(), submission(1, 4))
	require.NoError(t, err)

	avail, err := f.svc.Availability(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, domain.SeatAvailability{Capacity: 10, Sold: 4, Remaining: 6}, avail)

	own, err := f.svc.Availability(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 10, own.Remaining)

	assert.Equal(t, 0, availability(3, 5).Remaining)
}
