package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// DB is satisfied by both the pool and a pgx.Tx, so repositories run the
// same SQL inside and outside a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

var defaultTxOptions = pgx.TxOptions{
	IsoLevel:   pgx.Serializable,
	AccessMode: pgx.ReadWrite,
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RunTx runs fn in one transaction, serializable read-write unless opts
// says otherwise. fn's error rolls the transaction back and is returned
// as is so callers can still inspect the SQLSTATE.
func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	const op = "postgresrepo.Store.RunTx"

	txOpts := defaultTxOptions
	if opts != nil {
		txOpts = *opts
	}

	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("db.tx.isolation", string(txOpts.IsoLevel)),
		attribute.String("db.tx.access", string(txOpts.AccessMode)),
	)

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return recordErr(span, fmt.Errorf("%s: begin: %w", op, err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, tx); err != nil {
		return recordErr(span, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return recordErr(span, fmt.Errorf("%s: commit: %w", op, err))
	}

	return nil
}

func (s *Store) Employees() *EmployeeRepo         { return &EmployeeRepo{pool: s.pool} }
func (s *Store) Confirmations() *ConfirmationRepo { return &ConfirmationRepo{pool: s.pool} }
