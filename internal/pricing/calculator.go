package pricing

import (
	"slices"

	"github.com/kirinyoku/party-rsvp/internal/domain"
)

const (
	// ChildMaxAge is the oldest age that still pays the half-price pass.
	ChildMaxAge = domain.AdultMinAge - 1
	// LapMaxAge is the oldest age allowed to travel on a lap.
	LapMaxAge = 5
)

type Prices struct {
	AdultPass     domain.Cents
	ChildPass     domain.Cents
	TransportSeat domain.Cents
}

var DefaultPrices = Prices{
	AdultPass:     10378,
	ChildPass:     5189,
	TransportSeat: 6419,
}

type Calculator struct {
	prices Prices
}

func NewCalculator(p Prices) Calculator {
	if p.AdultPass <= 0 {
		p.AdultPass = DefaultPrices.AdultPass
	}
	if p.ChildPass <= 0 {
		p.ChildPass = DefaultPrices.ChildPass
	}
	if p.TransportSeat <= 0 {
		p.TransportSeat = DefaultPrices.TransportSeat
	}
	return Calculator{prices: p}
}

func (c Calculator) Prices() Prices {
	return c.prices
}

// Calculate derives the full cost breakdown for an employee's companions.
// The employee's own daily pass is free but the employee always takes a bus
// seat when transport is wanted. Companions aged LapMaxAge or younger whose
// index is in lap travel without a seat.
func (c Calculator) Calculate(companions []domain.Companion, wantsTransport bool, lap []int) domain.CostBreakdown {
	var b domain.CostBreakdown

	for _, cp := range companions {
		if cp.Age <= ChildMaxAge {
			b.ChildPasses++
		} else {
			b.AdultPasses++
		}
	}
	b.DailyPasses = c.prices.AdultPass.Mul(b.AdultPasses) + c.prices.ChildPass.Mul(b.ChildPasses)

	if wantsTransport {
		b.TransportSeats = SeatsNeeded(companions, lap)
		b.Transport = c.prices.TransportSeat.Mul(b.TransportSeats)
	}

	b.Total = b.DailyPasses + b.Transport
	return b
}

// SeatsNeeded counts bus seats for the employee plus companions.
func SeatsNeeded(companions []domain.Companion, lap []int) int {
	seats := 1
	for i, cp := range companions {
		if OnLap(cp, i, lap) {
			continue
		}
		seats++
	}
	return seats
}

func OnLap(cp domain.Companion, index int, lap []int) bool {
	return cp.Age <= LapMaxAge && slices.Contains(lap, index)
}
