package admin

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/repository"
	redisrepo "github.com/kirinyoku/party-rsvp/internal/repository/redis"
)

type Store interface {
	List(ctx context.Context, f domain.ConfirmationFilter) ([]domain.Confirmation, error)
	Stats(ctx context.Context) (domain.Stats, error)
	Delete(ctx context.Context, id int64) error
	SetEmbarked(ctx context.Context, id int64, embarked bool) error
}

// Notifier is told about every admin change so seat caches stay fresh.
type Notifier interface {
	Changed(ctx context.Context, kind string, id int64)
}

type Service struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
}

func New(store Store, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{store: store, notifier: notifier, logger: logger}
}

// List returns confirmations newest first. Search matches employee name or
// department, case-insensitively.
func (s *Service) List(ctx context.Context, f domain.ConfirmationFilter) ([]domain.Confirmation, error) {
	const op = "service.admin.List"

	out, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if out == nil {
		out = []domain.Confirmation{}
	}

	return out, nil
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	const op = "service.admin.Stats"

	st, err := s.store.Stats(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("%s:%w", op, err)
	}

	return st, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "service.admin.Delete"

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrConfirmationNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("confirmation deleted", "confirmation_id", id)
	s.notify(ctx, redisrepo.ChangeDeleted, id)
	return nil
}

// SetEmbarked records boarding on the bus.
func (s *Service) SetEmbarked(ctx context.Context, id int64, embarked bool) error {
	const op = "service.admin.SetEmbarked"

	if err := s.store.SetEmbarked(ctx, id, embarked); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrConfirmationNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.notify(ctx, redisrepo.ChangeEmbarked, id)
	return nil
}

func (s *Service) notify(ctx context.Context, kind string, id int64) {
	if s.notifier != nil {
		s.notifier.Changed(ctx, kind, id)
	}
}

var csvHeader = []string{
	"name", "department", "companions", "adults", "children",
	"transport", "seats", "total", "embarked", "created_at",
}

// ExportCSV writes the filtered list with money rendered to two decimals.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, f domain.ConfirmationFilter) error {
	const op = "service.admin.ExportCSV"

	rows, err := s.List(ctx, f)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	for _, c := range rows {
		if err := cw.Write(csvRecord(c)); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}
	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

func csvRecord(c domain.Confirmation) []string {
	return []string{
		c.EmployeeName,
		c.Department,
		strconv.Itoa(c.TotalAdults + c.TotalChildren),
		strconv.Itoa(c.TotalAdults),
		strconv.Itoa(c.TotalChildren),
		yesNo(c.WantsTransport),
		strconv.Itoa(c.TotalTransport),
		c.Total.String(),
		yesNo(c.Embarked),
		c.CreatedAt.Format("2006-01-02"),
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
