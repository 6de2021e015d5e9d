package wizard

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/pricing"
)

func TestApplyUpdateRecomputesOnlyOnCostFields(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultPrices)
	s := NewSession("s", time.Now())

	doc := "12345"
	s.ApplyUpdate(calc, Update{Document: &doc})
	assert.Equal(t, domain.CostBreakdown{}, s.Draft.Costs)

	companions := []domain.Companion{{Name: "A", Age: 30, Document: "1"}}
	s.ApplyUpdate(calc, Update{Companions: &companions})
	assert.Equal(t, domain.Cents(10378), s.Draft.Costs.Total)

	yes := true
	s.ApplyUpdate(calc, Update{WantsTransport: &yes})
	assert.Equal(t, domain.Cents(10378+2*6419), s.Draft.Costs.Total)
	assert.Equal(t, calc.Calculate(s.Draft.Companions, true, nil), s.Draft.Costs)
}

func TestApplyUpdateCopiesInputs(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultPrices)
	s := NewSession("s", time.Now())

	emp := domain.Employee{ID: 1, Name: "Maria"}
	s.ApplyUpdate(calc, Update{Employee: &emp})
	emp.Name = "changed"

	assert.Equal(t, "Maria", s.Draft.Employee.Name)
}

func TestSessionJSONRoundTrip(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultPrices)
	s := NewSession("abc", time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC))
	s.Step = StepTransport
	s.EditMode = true
	s.EditingID = 9
	companions := []domain.Companion{{Name: "Lia", Age: 3, Document: "2"}}
	lap := []int{0}
	yes := true
	s.ApplyUpdate(calc, Update{Companions: &companions, LapExemptions: &lap, WantsTransport: &yes})

	b, err := json.Marshal(s)
	require.NoError(t, err)

	var out Session
	require.NoError(t, json.Unmarshal(b, &out))

	assert.Equal(t, s.Step, out.Step)
	assert.Equal(t, s.Draft, out.Draft)
	assert.Equal(t, s.EditingID, out.EditingID)
	assert.True(t, out.CreatedAt.Equal(s.CreatedAt))
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "identify", StepIdentify.String())
	assert.Equal(t, "success", StepSuccess.String())
	assert.Equal(t, "unknown", Step(42).String())
}
