package postgresrepo

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/repository"
)

type ConfirmationRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ConfirmationRepo) With(db DB) *ConfirmationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ConfirmationRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const confirmationColumns = `id, employee_id, employee_name, employee_document, department,
	has_companions, wants_transport, total_adults, total_children,
	total_daily_passes, total_transport, total_cents, embarked, created_at, updated_at`

func scanConfirmation(row pgx.Row) (*domain.Confirmation, error) {
	var c domain.Confirmation
	err := row.Scan(
		&c.ID, &c.EmployeeID, &c.EmployeeName, &c.EmployeeDocument, &c.Department,
		&c.HasCompanions, &c.WantsTransport, &c.TotalAdults, &c.TotalChildren,
		&c.TotalDailyPasses, &c.TotalTransport, &c.Total, &c.Embarked, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConfirmationRepo) FindByEmployee(
	ctx context.Context,
	employeeID int64,
) (*domain.Confirmation, error) {
	const op = "postgresrepo.ConfirmationRepo.FindByEmployee"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	c, err := scanConfirmation(r.handle().QueryRow(ctx,
		`SELECT `+confirmationColumns+` FROM confirmations WHERE employee_id = $1`,
		employeeID,
	))
	if err != nil {
		return nil, recordErr(span, wrapDBErr(op, err))
	}

	return c, nil
}

// Get loads a confirmation together with its companions in stored order.
func (r *ConfirmationRepo) Get(
	ctx context.Context,
	id int64,
) (*domain.Confirmation, error) {
	const op = "postgresrepo.ConfirmationRepo.Get"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	db := r.handle()

	c, err := scanConfirmation(db.QueryRow(ctx,
		`SELECT `+confirmationColumns+` FROM confirmations WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, recordErr(span, wrapDBErr(op, err))
	}

	companions, err := r.companions(ctx, db, []int64{id})
	if err != nil {
		return nil, recordErr(span, wrapDBErr(op, err))
	}
	c.Companions = companions[id]

	return c, nil
}

func (r *ConfirmationRepo) companions(
	ctx context.Context,
	db DB,
	ids []int64,
) (map[int64][]domain.Companion, error) {
	out := make(map[int64][]domain.Companion, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := db.Query(ctx,
		`SELECT confirmation_id, name, age, document, type
		 FROM companions
		 WHERE confirmation_id = ANY($1)
		 ORDER BY confirmation_id, position`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			confID int64
			cp     domain.Companion
		)
		if err := rows.Scan(&confID, &cp.Name, &cp.Age, &cp.Document, &cp.Category); err != nil {
			return nil, err
		}
		out[confID] = append(out[confID], cp)
	}

	return out, rows.Err()
}

// VerifyDocument compares the stored document with doc, both trimmed, without
// ever returning the stored value.
func (r *ConfirmationRepo) VerifyDocument(
	ctx context.Context,
	id int64,
	doc string,
) (bool, error) {
	const op = "postgresrepo.ConfirmationRepo.VerifyDocument"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	var ok bool
	err := r.handle().QueryRow(ctx,
		`SELECT btrim(employee_document) = btrim($2) FROM confirmations WHERE id = $1`,
		id, doc,
	).Scan(&ok)
	if err != nil {
		return false, recordErr(span, wrapDBErr(op, err))
	}

	return ok, nil
}

// SeatsSold sums the bus seats of every transport booking except excludeID.
// Pass 0 to count all of them.
func (r *ConfirmationRepo) SeatsSold(
	ctx context.Context,
	excludeID int64,
) (int, error) {
	const op = "postgresrepo.ConfirmationRepo.SeatsSold"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	var sold int
	err := r.handle().QueryRow(ctx,
		`SELECT COALESCE(SUM(total_transport), 0)
		 FROM confirmations
		 WHERE wants_transport AND id <> $1`,
		excludeID,
	).Scan(&sold)
	if err != nil {
		return 0, recordErr(span, wrapDBErr(op, err))
	}

	return sold, nil
}

func (r *ConfirmationRepo) Insert(
	ctx context.Context,
	c *domain.Confirmation,
) (int64, error) {
	const op = "postgresrepo.ConfirmationRepo.Insert"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	var id int64
	err := r.handle().QueryRow(ctx,
		`INSERT INTO confirmations (
			employee_id, employee_name, employee_document, department,
			has_companions, wants_transport, total_adults, total_children,
			total_daily_passes, total_transport, total_cents
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		c.EmployeeID, c.EmployeeName, c.EmployeeDocument, c.Department,
		c.HasCompanions, c.WantsTransport, c.TotalAdults, c.TotalChildren,
		c.TotalDailyPasses, c.TotalTransport, int64(c.Total),
	).Scan(&id)
	if err != nil {
		return 0, recordErr(span, wrapDBErr(op, err))
	}

	return id, nil
}

// Update rewrites the editable columns of an existing confirmation. The
// employee link and the embarked flag are left untouched.
func (r *ConfirmationRepo) Update(
	ctx context.Context,
	c *domain.Confirmation,
) error {
	const op = "postgresrepo.ConfirmationRepo.Update"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	tag, err := r.handle().Exec(ctx,
		`UPDATE confirmations SET
			employee_name = $2, employee_document = $3, department = $4,
			has_companions = $5, wants_transport = $6, total_adults = $7,
			total_children = $8, total_daily_passes = $9, total_transport = $10,
			total_cents = $11, updated_at = now()
		 WHERE id = $1`,
		c.ID, c.EmployeeName, c.EmployeeDocument, c.Department,
		c.HasCompanions, c.WantsTransport, c.TotalAdults,
		c.TotalChildren, c.TotalDailyPasses, c.TotalTransport, int64(c.Total),
	)
	if err != nil {
		return recordErr(span, wrapDBErr(op, err))
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

// ReplaceCompanions drops the companions of confirmationID and writes the
// given list in its place, keeping list order as position.
func (r *ConfirmationRepo) ReplaceCompanions(
	ctx context.Context,
	confirmationID int64,
	companions []domain.Companion,
) error {
	const op = "postgresrepo.ConfirmationRepo.ReplaceCompanions"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	db := r.handle()

	if _, err := db.Exec(ctx,
		`DELETE FROM companions WHERE confirmation_id = $1`,
		confirmationID,
	); err != nil {
		return recordErr(span, wrapDBErr(op, err))
	}

	if len(companions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, cp := range companions {
		batch.Queue(
			`INSERT INTO companions (confirmation_id, position, name, age, document, type)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			confirmationID, i, cp.Name, cp.Age, cp.Document, string(cp.Category),
		)
	}

	br := db.SendBatch(ctx, batch)
	defer br.Close()

	for range companions {
		if _, err := br.Exec(); err != nil {
			return recordErr(span, wrapDBErr(op, err))
		}
	}

	return nil
}

// List returns confirmations newest first, each with its companions.
func (r *ConfirmationRepo) List(
	ctx context.Context,
	f domain.ConfirmationFilter,
) ([]domain.Confirmation, error) {
	const op = "postgresrepo.ConfirmationRepo.List"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	db := r.handle()

	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, likeEscaper.Replace(s))
		where = append(where, `(employee_name ILIKE '%' || $1 || '%' OR department ILIKE '%' || $1 || '%')`)
	}
	if f.OnlyTransport {
		where = append(where, `wants_transport`)
	}
	if f.OnlyCompanions {
		where = append(where, `has_companions`)
	}

	sql := `SELECT ` + confirmationColumns + ` FROM confirmations`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, ` AND `)
	}
	sql += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, recordErr(span, wrapDBErr(op, err))
	}

	var (
		out []domain.Confirmation
		ids []int64
	)
	for rows.Next() {
		c, err := scanConfirmation(rows)
		if err != nil {
			rows.Close()
			return nil, recordErr(span, wrapDBErr(op, err))
		}
		out = append(out, *c)
		ids = append(ids, c.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, recordErr(span, wrapDBErr(op, err))
	}

	companions, err := r.companions(ctx, db, ids)
	if err != nil {
		return nil, recordErr(span, wrapDBErr(op, err))
	}
	for i := range out {
		out[i].Companions = companions[out[i].ID]
	}

	return out, nil
}

// Delete removes the confirmation; companions go with it through the
// cascading foreign key.
func (r *ConfirmationRepo) Delete(
	ctx context.Context,
	id int64,
) error {
	const op = "postgresrepo.ConfirmationRepo.Delete"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	tag, err := r.handle().Exec(ctx, `DELETE FROM confirmations WHERE id = $1`, id)
	if err != nil {
		return recordErr(span, wrapDBErr(op, err))
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *ConfirmationRepo) SetEmbarked(
	ctx context.Context,
	id int64,
	embarked bool,
) error {
	const op = "postgresrepo.ConfirmationRepo.SetEmbarked"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	tag, err := r.handle().Exec(ctx,
		`UPDATE confirmations SET embarked = $2, updated_at = now() WHERE id = $1`,
		id, embarked,
	)
	if err != nil {
		return recordErr(span, wrapDBErr(op, err))
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *ConfirmationRepo) Stats(ctx context.Context) (domain.Stats, error) {
	const op = "postgresrepo.ConfirmationRepo.Stats"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	var s domain.Stats
	err := r.handle().QueryRow(ctx,
		`SELECT
			COUNT(*),
			COALESCE(SUM(total_adults + total_children), 0),
			COALESCE(SUM(total_adults), 0),
			COALESCE(SUM(total_children), 0),
			COUNT(*) FILTER (WHERE wants_transport),
			COALESCE(SUM(total_transport) FILTER (WHERE wants_transport), 0),
			COUNT(*) FILTER (WHERE embarked),
			COALESCE(SUM(total_cents), 0)::bigint
		 FROM confirmations`,
	).Scan(
		&s.Confirmations, &s.Companions, &s.Adults, &s.Children,
		&s.WithTransport, &s.TransportSeats, &s.Embarked, &s.Revenue,
	)
	if err != nil {
		return domain.Stats{}, recordErr(span, wrapDBErr(op, err))
	}

	return s, nil
}
