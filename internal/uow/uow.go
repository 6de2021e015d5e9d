// Package uow runs a group of repository calls in one transaction and
// defers side effects such as cache invalidation until it commits.
package uow

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	postgresrepo "github.com/kirinyoku/party-rsvp/internal/repository/postgres"
)

var tracer = otel.GetTracerProvider().Tracer("github.com/kirinyoku/party-rsvp/internal/uow")

// AfterCommit runs once the transaction has committed.
type AfterCommit func(ctx context.Context)

// TxRunner is the transactional half of postgresrepo.Store.
type TxRunner interface {
	RunTx(ctx context.Context, opts *pgx.TxOptions, fn func(ctx context.Context, tx postgresrepo.DB) error) error
}

type UoW struct {
	store TxRunner
}

func NewUoW(store TxRunner) *UoW {
	return &UoW{store: store}
}

// Do runs fn in a serializable transaction and fires the hooks registered
// through after only when the commit succeeds.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgresrepo.DB, after func(AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts is Do with explicit transaction options. Hooks get a context
// that is not cancelled with ctx: once the data is committed, the caches
// must hear about it even if the client went away.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgresrepo.DB, after func(AfterCommit)) error,
) error {
	ctx, span := tracer.Start(ctx, "uow.Do")
	defer span.End()

	var hooks []AfterCommit

	err := u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgresrepo.DB) error {
		hooks = hooks[:0]
		return fn(ctx, tx, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	span.SetAttributes(attribute.Int("uow.hooks", len(hooks)))

	hookCtx := context.WithoutCancel(ctx)
	for _, h := range hooks {
		h(hookCtx)
	}

	return nil
}
