package confirmation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/repository"
	postgresrepo "github.com/kirinyoku/party-rsvp/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/party-rsvp/internal/repository/redis"
	"github.com/kirinyoku/party-rsvp/internal/uow"
	"github.com/kirinyoku/party-rsvp/internal/wizard"
)

type Repo interface {
	FindByEmployee(ctx context.Context, employeeID int64) (*domain.Confirmation, error)
	Get(ctx context.Context, id int64) (*domain.Confirmation, error)
	VerifyDocument(ctx context.Context, id int64, document string) (bool, error)
	SeatsSold(ctx context.Context, excludeID int64) (int, error)
	Insert(ctx context.Context, c *domain.Confirmation) (int64, error)
	Update(ctx context.Context, c *domain.Confirmation) error
	ReplaceCompanions(ctx context.Context, confirmationID int64, companions []domain.Companion) error
}

type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error) error
}

type SeatCache interface {
	Availability(ctx context.Context, excludeID int64, load func(ctx context.Context) (domain.SeatAvailability, error)) (domain.SeatAvailability, error)
	Invalidate(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, kind string, confirmationID int64) error
}

type Deps struct {
	Repo  Repo
	Bind  func(tx postgresrepo.DB) Repo
	Tx    Transactor
	Seats SeatCache
	Pub   Publisher
}

type Config struct {
	SeatCapacity int
	MaxRetries   int
}

type Service struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
}

func New(deps Deps, cfg Config, logger *slog.Logger) *Service {
	if cfg.SeatCapacity <= 0 {
		cfg.SeatCapacity = 90
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{deps: deps, cfg: cfg, logger: logger}
}

// FindByEmployee returns nil when the employee has no confirmation.
func (s *Service) FindByEmployee(ctx context.Context, employeeID int64) (*domain.Confirmation, error) {
	const op = "service.confirmation.FindByEmployee"

	c, err := s.deps.Repo.FindByEmployee(ctx, employeeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Confirmation, error) {
	const op = "service.confirmation.Get"

	c, err := s.deps.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrConfirmationNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return c, nil
}

func (s *Service) VerifyDocument(ctx context.Context, id int64, document string) (bool, error) {
	const op = "service.confirmation.VerifyDocument"

	ok, err := s.deps.Repo.VerifyDocument(ctx, id, document)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, fmt.Errorf("%s:%w", op, ErrConfirmationNotFound)
		}
		return false, fmt.Errorf("%s:%w", op, err)
	}

	return ok, nil
}

// Availability reports bus seats ignoring those held by excludeID.
func (s *Service) Availability(ctx context.Context, excludeID int64) (domain.SeatAvailability, error) {
	const op = "service.confirmation.Availability"

	load := func(ctx context.Context) (domain.SeatAvailability, error) {
		sold, err := s.deps.Repo.SeatsSold(ctx, excludeID)
		if err != nil {
			return domain.SeatAvailability{}, err
		}
		return availability(s.cfg.SeatCapacity, sold), nil
	}

	var (
		avail domain.SeatAvailability
		err   error
	)
	if s.deps.Seats != nil {
		avail, err = s.deps.Seats.Availability(ctx, excludeID, load)
	} else {
		avail, err = load(ctx)
	}
	if err != nil {
		return domain.SeatAvailability{}, fmt.Errorf("%s:%w", op, err)
	}

	return avail, nil
}

func availability(capacity, sold int) domain.SeatAvailability {
	return domain.SeatAvailability{
		Capacity:  capacity,
		Sold:      sold,
		Remaining: max(capacity-sold, 0),
	}
}

// Submit writes the confirmation and its companion list in one transaction,
// re-checking bus capacity inside it. Serialization failures are retried.
func (s *Service) Submit(ctx context.Context, sub domain.Submission) (int64, error) {
	const op = "service.confirmation.Submit"

	var (
		id  int64
		err error
	)
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		id, err = s.submitOnce(ctx, sub)
		if err == nil || !postgresrepo.IsRetryable(err) {
			break
		}
		s.logger.Warn("submit serialization conflict, retrying",
			"employee_id", sub.Confirmation.EmployeeID, "attempt", attempt)
	}
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return id, nil
}

func (s *Service) submitOnce(ctx context.Context, sub domain.Submission) (int64, error) {
	var id int64

	err := s.deps.Tx.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		repo := s.deps.Bind(tx)
		c := sub.Confirmation

		if c.WantsTransport {
			sold, err := repo.SeatsSold(ctx, sub.ConfirmationID)
			if err != nil {
				return err
			}
			if sold+c.TotalTransport > s.cfg.SeatCapacity {
				return wizard.ErrSeatsUnavailable
			}
		}

		kind := redisrepo.ChangeCreated
		if sub.IsUpdate() {
			kind = redisrepo.ChangeUpdated
			c.ID = sub.ConfirmationID
			if err := repo.Update(ctx, &c); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrConfirmationNotFound
				}
				return err
			}
			id = c.ID
		} else {
			newID, err := repo.Insert(ctx, &c)
			if err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return ErrAlreadyConfirmed
				}
				return err
			}
			id = newID
		}

		if err := repo.ReplaceCompanions(ctx, id, sub.Companions); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.Changed(ctx, kind, id)
		})

		return nil
	})

	return id, err
}

// Changed drops cached seat counts and tells other instances to do the same.
func (s *Service) Changed(ctx context.Context, kind string, id int64) {
	if s.deps.Seats != nil {
		if err := s.deps.Seats.Invalidate(ctx); err != nil {
			s.logger.Warn("seat cache invalidation failed", "error", err)
		}
	}
	if s.deps.Pub != nil {
		if err := s.deps.Pub.Publish(ctx, kind, id); err != nil {
			s.logger.Warn("change publish failed", "kind", kind, "confirmation_id", id, "error", err)
		}
	}
}

// InvalidateSeats is the handler for changes announced by other instances.
func (s *Service) InvalidateSeats(ctx context.Context, ch redisrepo.ConfirmationChange) {
	if s.deps.Seats == nil {
		return
	}
	if err := s.deps.Seats.Invalidate(ctx); err != nil {
		s.logger.Warn("seat cache invalidation failed",
			"kind", ch.Kind, "confirmation_id", ch.ConfirmationID, "error", err)
	}
}
