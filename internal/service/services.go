package service

import (
	"log/slog"
	"time"

	"github.com/kirinyoku/party-rsvp/internal/pricing"
	postgresrepo "github.com/kirinyoku/party-rsvp/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/party-rsvp/internal/repository/redis"
	"github.com/kirinyoku/party-rsvp/internal/service/admin"
	"github.com/kirinyoku/party-rsvp/internal/service/confirmation"
	"github.com/kirinyoku/party-rsvp/internal/service/roster"
	"github.com/kirinyoku/party-rsvp/internal/service/rsvp"
	"github.com/kirinyoku/party-rsvp/internal/uow"
	"github.com/kirinyoku/party-rsvp/internal/wizard"
)

type Services struct {
	Roster        *roster.Service
	Confirmations *confirmation.Service
	Admin         *admin.Service
	RSVP          *rsvp.Service
}

type Config struct {
	Prices       pricing.Prices
	Wizard       wizard.Config
	RSVP         rsvp.Config
	SeatCacheTTL time.Duration
}

type Redis struct {
	Cache    *redisrepo.Cache
	Sessions *redisrepo.SessionStore
	PubSub   *redisrepo.ConfirmationsPubSub
	Attempts *redisrepo.SlidingWindowLimiter
	Idem     *redisrepo.IdempotencyStore
}

func NewServices(
	store *postgresrepo.Store,
	rd Redis,
	cfg Config,
	logger *slog.Logger,
) *Services {
	if cfg.SeatCacheTTL <= 0 {
		cfg.SeatCacheTTL = 15 * time.Second
	}

	rosterSvc := roster.New(store.Employees(), logger)

	confirmations := store.Confirmations()
	confirmationSvc := confirmation.New(confirmation.Deps{
		Repo:  confirmations,
		Bind:  func(tx postgresrepo.DB) confirmation.Repo { return confirmations.With(tx) },
		Tx:    uow.NewUoW(store),
		Seats: redisrepo.NewSeatCache(rd.Cache, cfg.SeatCacheTTL),
		Pub:   rd.PubSub,
	}, confirmation.Config{SeatCapacity: cfg.Wizard.SeatCapacity}, logger)

	engine := wizard.NewEngine(
		rosterSvc,
		confirmationSvc,
		pricing.NewCalculator(cfg.Prices),
		logger,
		cfg.Wizard,
	)

	return &Services{
		Roster:        rosterSvc,
		Confirmations: confirmationSvc,
		Admin:         admin.New(confirmations, confirmationSvc, logger),
		RSVP: rsvp.New(rsvp.Deps{
			Engine:   engine,
			Sessions: rd.Sessions,
			People:   rosterSvc,
			Seats:    confirmationSvc,
			Attempts: rd.Attempts,
			Idem:     rd.Idem,
		}, cfg.RSVP, logger),
	}
}
