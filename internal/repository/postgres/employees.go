package postgresrepo

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/party-rsvp/internal/domain"
)

type EmployeeRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *EmployeeRepo) With(db DB) *EmployeeRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *EmployeeRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches employees whose name contains q, case-insensitively.
func (r *EmployeeRepo) Search(
	ctx context.Context,
	q string,
	limit int,
) ([]domain.Employee, error) {
	const op = "postgresrepo.EmployeeRepo.Search"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	rows, err := r.handle().Query(ctx,
		`SELECT id, name, role, department
		 FROM employees
		 WHERE name ILIKE '%' || $1 || '%'
		 ORDER BY name
		 LIMIT $2`,
		likeEscaper.Replace(q), limit,
	)
	if err != nil {
		return nil, recordErr(span, wrapDBErr(op, err))
	}
	defer rows.Close()

	out := make([]domain.Employee, 0, limit)
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Role, &e.Department); err != nil {
			return nil, recordErr(span, wrapDBErr(op, err))
		}
		out = append(out, e)
	}

	return out, recordErr(span, wrapDBErr(op, rows.Err()))
}

func (r *EmployeeRepo) Get(
	ctx context.Context,
	id int64,
) (*domain.Employee, error) {
	const op = "postgresrepo.EmployeeRepo.Get"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	var e domain.Employee
	err := r.handle().QueryRow(ctx,
		`SELECT id, name, role, department FROM employees WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Name, &e.Role, &e.Department)
	if err != nil {
		return nil, recordErr(span, wrapDBErr(op, err))
	}

	return &e, nil
}

// Upsert inserts the roster in one batch, refreshing role and department of
// names that already exist. It returns the number of rows touched.
func (r *EmployeeRepo) Upsert(
	ctx context.Context,
	employees []domain.Employee,
) (int64, error) {
	const op = "postgresrepo.EmployeeRepo.Upsert"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	if len(employees) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, e := range employees {
		batch.Queue(
			`INSERT INTO employees (name, role, department)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (name) DO UPDATE
			 SET role = EXCLUDED.role, department = EXCLUDED.department`,
			e.Name, e.Role, e.Department,
		)
	}

	br := r.handle().SendBatch(ctx, batch)
	defer br.Close()

	var total int64
	for range employees {
		tag, err := br.Exec()
		if err != nil {
			return total, recordErr(span, wrapDBErr(op, err))
		}
		total += tag.RowsAffected()
	}

	return total, nil
}
