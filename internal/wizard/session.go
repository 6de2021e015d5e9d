package wizard

import (
	"slices"
	"strings"
	"time"

	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/pricing"
)

type Step int

const (
	StepIdentify Step = iota + 1
	StepAttendance
	StepCompanions
	StepTransport
	StepSummary
	StepSuccess
)

var stepNames = map[Step]string{
	StepIdentify:   "identify",
	StepAttendance: "attendance",
	StepCompanions: "companions",
	StepTransport:  "transport",
	StepSummary:    "summary",
	StepSuccess:    "success",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return "unknown"
}

// CanGoBack reports whether the step bar offers a back transition.
func (s Step) CanGoBack() bool {
	return s == StepAttendance || s == StepCompanions || s == StepTransport
}

type DuplicateStage string

const (
	DuplicateNone           DuplicateStage = ""
	DuplicateFound          DuplicateStage = "found"
	DuplicateAwaitingSecret DuplicateStage = "awaiting_secret"
)

// Duplicate tracks an existing confirmation for the selected employee. Only
// the record id is kept; the stored document never enters the session.
type Duplicate struct {
	Stage          DuplicateStage `json:"stage,omitempty"`
	ConfirmationID int64          `json:"confirmation_id,omitempty"`
	FailedAttempts int            `json:"failed_attempts,omitempty"`
}

type Outcome struct {
	Declined        bool         `json:"declined"`
	Updated         bool         `json:"updated"`
	ConfirmationID  int64        `json:"confirmation_id,omitempty"`
	FirstName       string       `json:"first_name"`
	Total           domain.Cents `json:"total"`
	Free            bool         `json:"free"`
	PaymentURL      string       `json:"payment_url,omitempty"`
	RedirectSeconds int          `json:"redirect_seconds,omitempty"`
}

// Session is the complete wizard state. Every step operation receives it
// explicitly and it round-trips through JSON between requests.
type Session struct {
	ID        string       `json:"id"`
	Step      Step         `json:"step"`
	Draft     domain.Draft `json:"draft"`
	EditMode  bool         `json:"edit_mode"`
	EditingID int64        `json:"editing_id,omitempty"`
	Duplicate Duplicate    `json:"duplicate"`
	Outcome   *Outcome     `json:"outcome,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Step:      StepIdentify,
		Draft:     emptyDraft(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func emptyDraft() domain.Draft {
	return domain.Draft{
		Companions:    []domain.Companion{},
		LapExemptions: []int{},
	}
}

// Update is a partial change to the draft. Nil fields are left untouched.
type Update struct {
	Employee       *domain.Employee
	Document       *string
	Attending      *bool
	Companions     *[]domain.Companion
	WantsTransport *bool
	LapExemptions  *[]int
}

// ApplyUpdate merges u into the draft. Touching companions, transport or the
// lap set recomputes the whole cost breakdown.
func (s *Session) ApplyUpdate(calc pricing.Calculator, u Update) {
	d := &s.Draft

	if u.Employee != nil {
		emp := *u.Employee
		d.Employee = &emp
	}
	if u.Document != nil {
		d.Document = strings.TrimSpace(*u.Document)
	}
	if u.Attending != nil {
		v := *u.Attending
		d.Attending = &v
	}
	if u.Companions != nil {
		d.Companions = normalizeCompanions(*u.Companions)
		d.LapExemptions = eligibleLap(d.Companions, d.LapExemptions)
	}
	if u.WantsTransport != nil {
		d.WantsTransport = *u.WantsTransport
	}
	if u.LapExemptions != nil {
		d.LapExemptions = eligibleLap(d.Companions, *u.LapExemptions)
	}

	if u.Companions != nil || u.WantsTransport != nil || u.LapExemptions != nil {
		d.Costs = calc.Calculate(d.Companions, d.WantsTransport, d.LapExemptions)
	}
}

func normalizeCompanions(in []domain.Companion) []domain.Companion {
	out := make([]domain.Companion, 0, len(in))
	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		c.Document = strings.TrimSpace(c.Document)
		c.Category = domain.CategoryFor(c.Age)
		out = append(out, c)
	}
	return out
}

// eligibleLap keeps sorted, unique indices that point at a companion young
// enough to travel on a lap.
func eligibleLap(companions []domain.Companion, lap []int) []int {
	out := make([]int, 0, len(lap))
	for _, i := range lap {
		if i < 0 || i >= len(companions) {
			continue
		}
		if companions[i].Age > pricing.LapMaxAge {
			continue
		}
		out = append(out, i)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (s *Session) firstName() string {
	if s.Draft.Employee == nil {
		return ""
	}
	first, _, _ := strings.Cut(strings.TrimSpace(s.Draft.Employee.Name), " ")
	return first
}

// Submission builds the record the draft would persist.
func (s *Session) Submission() domain.Submission {
	d := s.Draft

	c := domain.Confirmation{
		EmployeeDocument: d.Document,
		HasCompanions:    len(d.Companions) > 0,
		WantsTransport:   d.WantsTransport,
		TotalDailyPasses: d.Costs.AdultPasses + d.Costs.ChildPasses,
		TotalTransport:   d.Costs.TransportSeats,
		Total:            d.Costs.Total,
	}
	if d.Employee != nil {
		c.EmployeeID = d.Employee.ID
		c.EmployeeName = d.Employee.Name
		c.Department = d.Employee.Department
	}
	for _, cp := range d.Companions {
		if domain.CategoryFor(cp.Age) == domain.CategoryAdult {
			c.TotalAdults++
		} else {
			c.TotalChildren++
		}
	}

	companions := slices.Clone(d.Companions)
	if companions == nil {
		companions = []domain.Companion{}
	}

	sub := domain.Submission{Confirmation: c, Companions: companions}
	if s.EditMode {
		sub.ConfirmationID = s.EditingID
		sub.Confirmation.ID = s.EditingID
	}
	return sub
}
