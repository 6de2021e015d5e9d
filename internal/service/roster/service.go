package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/repository"
)

const (
	MinQueryLength = 2
	MaxResults     = 10
)

type Store interface {
	Search(ctx context.Context, q string, limit int) ([]domain.Employee, error)
	Get(ctx context.Context, id int64) (*domain.Employee, error)
	Upsert(ctx context.Context, employees []domain.Employee) (int64, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{store: store, logger: logger}
}

// Search returns at most MaxResults employees whose name contains q. Short
// queries and store failures both yield no suggestions.
func (s *Service) Search(ctx context.Context, q string) []domain.Employee {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return []domain.Employee{}
	}

	out, err := s.store.Search(ctx, q, MaxResults)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("employee search failed", "query", q, "error", err)
		}
		return []domain.Employee{}
	}

	return out
}

func (s *Service) GetEmployee(ctx context.Context, id int64) (*domain.Employee, error) {
	const op = "service.roster.GetEmployee"

	e, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEmployeeNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return e, nil
}

// Import upserts a roster by name. Blank names are skipped and repeated
// names keep their last occurrence.
func (s *Service) Import(ctx context.Context, employees []domain.Employee) (int64, error) {
	const op = "service.roster.Import"

	clean := Normalize(employees)
	if len(clean) == 0 {
		return 0, fmt.Errorf("%s:%w", op, ErrEmptyRoster)
	}

	n, err := s.store.Upsert(ctx, clean)
	if err != nil {
		return n, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("roster imported", "entries", len(clean), "rows", n)
	return n, nil
}

func Normalize(employees []domain.Employee) []domain.Employee {
	index := make(map[string]int, len(employees))
	out := make([]domain.Employee, 0, len(employees))

	for _, e := range employees {
		e.Name = strings.Join(strings.Fields(e.Name), " ")
		e.Role = strings.TrimSpace(e.Role)
		e.Department = strings.TrimSpace(e.Department)
		if e.Name == "" {
			continue
		}
		if i, ok := index[e.Name]; ok {
			out[i] = e
			continue
		}
		index[e.Name] = len(out)
		out = append(out, e)
	}

	return out
}
