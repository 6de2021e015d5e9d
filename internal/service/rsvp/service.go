package rsvp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/repository"
	redisrepo "github.com/kirinyoku/party-rsvp/internal/repository/redis"
	"github.com/kirinyoku/party-rsvp/internal/wizard"
)

type SessionStore interface {
	Get(ctx context.Context, id string) (*wizard.Session, error)
	Save(ctx context.Context, s *wizard.Session) error
}

type People interface {
	Search(ctx context.Context, q string) []domain.Employee
}

type Seats interface {
	Availability(ctx context.Context, excludeID int64) (domain.SeatAvailability, error)
}

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
	Reset(ctx context.Context, key string) error
}

type Idempotency interface {
	AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	SaveResult(ctx context.Context, key string, payload []byte) error
	GetResult(ctx context.Context, key string) ([]byte, bool, error)
	Release(ctx context.Context, key string) error
}

type Deps struct {
	Engine   *wizard.Engine
	Sessions SessionStore
	People   People
	Seats    Seats
	Attempts Limiter
	Idem     Idempotency
}

type Config struct {
	SubmitLockTTL time.Duration
	Now           func() time.Time
}

// Service drives wizard sessions stored outside the process. Each call
// loads the session, runs one engine step and saves it back.
type Service struct {
	deps   Deps
	gate   *wizard.SearchGate
	cfg    Config
	logger *slog.Logger
}

func New(deps Deps, cfg Config, logger *slog.Logger) *Service {
	if cfg.SubmitLockTTL <= 0 {
		cfg.SubmitLockTTL = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		deps:   deps,
		gate:   wizard.NewSearchGate(),
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Service) Start(ctx context.Context) (*wizard.Session, error) {
	const op = "service.rsvp.Start"

	sess, err := s.deps.Engine.Start(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.deps.Sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*wizard.Session, error) {
	const op = "service.rsvp.Get"

	sess, err := s.deps.Sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return sess, nil
}

// mutate saves the session even when fn fails, since a failed step may
// still change state (the secret attempt counter).
func (s *Service) mutate(ctx context.Context, id string, fn func(sess *wizard.Session) error) (*wizard.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	stepErr := fn(sess)
	sess.UpdatedAt = s.cfg.Now()

	if err := s.deps.Sessions.Save(ctx, sess); err != nil {
		if stepErr != nil {
			return sess, stepErr
		}
		return nil, err
	}

	return sess, stepErr
}

func (s *Service) SelectPerson(ctx context.Context, id string, employeeID int64) (*wizard.Session, error) {
	return s.mutate(ctx, id, func(sess *wizard.Session) error {
		return s.deps.Engine.SelectPerson(ctx, sess, employeeID)
	})
}

func (s *Service) SetDocument(ctx context.Context, id, document string) (*wizard.Session, error) {
	return s.mutate(ctx, id, func(sess *wizard.Session) error {
		return s.deps.Engine.SetDocument(sess, document)
	})
}

func (s *Service) ContinueIdentify(ctx context.Context, id string) (*wizard.Session, error) {
	return s.mutate(ctx, id, s.deps.Engine.ContinueIdentify)
}

func (s *Service) RequestEdit(ctx context.Context, id string) (*wizard.Session, error) {
	return s.mutate(ctx, id, s.deps.Engine.RequestEdit)
}

// VerifySecret is rate limited per confirmation, so opening new sessions
// does not buy more guesses. The limiter failing open keeps the flow usable
// when redis is degraded.
func (s *Service) VerifySecret(ctx context.Context, id, document string) (*wizard.Session, error) {
	const op = "service.rsvp.VerifySecret"

	attemptKey := "session:" + id
	if sess, err := s.Get(ctx, id); err == nil && sess.Duplicate.ConfirmationID > 0 {
		attemptKey = "confirmation:" + strconv.FormatInt(sess.Duplicate.ConfirmationID, 10)
	}

	if s.deps.Attempts != nil {
		ok, retry, err := s.deps.Attempts.Allow(ctx, attemptKey)
		if err != nil {
			s.logger.Warn("attempt limiter unavailable", "session", id, "error", err)
		} else if !ok {
			return nil, fmt.Errorf("%s:%w (retry in %s)", op, ErrTooManyAttempts, retry.Round(time.Second))
		}
	}

	sess, err := s.mutate(ctx, id, func(sess *wizard.Session) error {
		return s.deps.Engine.VerifySecret(ctx, sess, document)
	})
	if err != nil {
		return sess, err
	}

	if s.deps.Attempts != nil {
		_ = s.deps.Attempts.Reset(ctx, attemptKey)
	}
	return sess, nil
}

func (s *Service) CancelDuplicate(ctx context.Context, id string) (*wizard.Session, error) {
	return s.mutate(ctx, id, s.deps.Engine.CancelDuplicate)
}

func (s *Service) Attend(ctx context.Context, id string, attending bool) (*wizard.Session, error) {
	return s.mutate(ctx, id, func(sess *wizard.Session) error {
		return s.deps.Engine.Attend(sess, attending)
	})
}

func (s *Service) SetCompanions(ctx context.Context, id string, companions []domain.Companion) (*wizard.Session, error) {
	return s.mutate(ctx, id, func(sess *wizard.Session) error {
		return s.deps.Engine.SetCompanions(sess, companions)
	})
}

func (s *Service) ContinueCompanions(ctx context.Context, id string) (*wizard.Session, error) {
	return s.mutate(ctx, id, s.deps.Engine.ContinueCompanions)
}

func (s *Service) SetLapExemptions(ctx context.Context, id string, indices []int) (*wizard.Session, error) {
	return s.mutate(ctx, id, func(sess *wizard.Session) error {
		return s.deps.Engine.SetLapExemptions(sess, indices)
	})
}

func (s *Service) Quote(ctx context.Context, id string) (wizard.TransportQuote, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return wizard.TransportQuote{}, err
	}

	return s.deps.Engine.Quote(ctx, sess), nil
}

func (s *Service) ChooseTransport(ctx context.Context, id string, wants bool) (*wizard.Session, error) {
	return s.mutate(ctx, id, func(sess *wizard.Session) error {
		return s.deps.Engine.ChooseTransport(ctx, sess, wants)
	})
}

func (s *Service) Back(ctx context.Context, id string) (*wizard.Session, error) {
	return s.mutate(ctx, id, s.deps.Engine.Back)
}

// Submit persists the draft. Submits of one session are exclusive: a
// second press while the first is still running gets ErrSubmitInProgress
// instead of racing it and saving a stale session over the outcome. With
// an idempotency key, a repeated submit returns the session produced by
// the first successful one.
func (s *Service) Submit(ctx context.Context, id, idemKey string) (*wizard.Session, error) {
	const op = "service.rsvp.Submit"

	submit := func(sess *wizard.Session) error {
		return s.deps.Engine.Submit(ctx, sess)
	}

	if s.deps.Idem == nil {
		return s.mutate(ctx, id, submit)
	}

	resultKey := ""
	if idemKey != "" {
		resultKey = redisrepo.KeyIdemSubmit(id, idemKey)
		if sess, ok := s.storedResult(ctx, resultKey); ok {
			return sess, nil
		}
	}

	lockKey := redisrepo.KeySubmitLock(id)
	locked, err := s.deps.Idem.AcquireLock(ctx, lockKey, s.cfg.SubmitLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s:%w", op, ErrSubmitInProgress)
	}
	defer func() {
		if err := s.deps.Idem.Release(context.WithoutCancel(ctx), lockKey); err != nil {
			s.logger.Warn("submit lock not released", "session", id, "error", err)
		}
	}()

	// The holder before us may have just finished with the same key.
	if resultKey != "" {
		if sess, ok := s.storedResult(ctx, resultKey); ok {
			return sess, nil
		}
	}

	sess, err := s.mutate(ctx, id, submit)
	if err != nil {
		return sess, err
	}

	if resultKey != "" {
		if b, err := json.Marshal(sess); err == nil {
			if err := s.deps.Idem.SaveResult(ctx, resultKey, b); err != nil {
				s.logger.Warn("idempotency result not stored", "session", id, "error", err)
			}
		}
	}

	return sess, nil
}

func (s *Service) storedResult(ctx context.Context, key string) (*wizard.Session, bool) {
	b, ok, err := s.deps.Idem.GetResult(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var sess wizard.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, false
	}
	return &sess, true
}

type SearchResult struct {
	People []domain.Employee `json:"people"`
	Stale  bool              `json:"stale"`
}

// Search looks up people for a session. A newer search from the same
// session cancels this one and marks its result stale.
func (s *Service) Search(ctx context.Context, sessionID, q string) SearchResult {
	if sessionID == "" {
		return SearchResult{People: s.deps.People.Search(ctx, q)}
	}

	ctx, gen, done := s.gate.Begin(ctx, sessionID)
	defer done()

	people := s.deps.People.Search(ctx, q)
	if !s.gate.Current(sessionID, gen) {
		return SearchResult{People: []domain.Employee{}, Stale: true}
	}

	return SearchResult{People: people}
}

func (s *Service) Availability(ctx context.Context) (domain.SeatAvailability, error) {
	const op = "service.rsvp.Availability"

	avail, err := s.deps.Seats.Availability(ctx, 0)
	if err != nil {
		return domain.SeatAvailability{}, fmt.Errorf("%s:%w", op, err)
	}

	return avail, nil
}
