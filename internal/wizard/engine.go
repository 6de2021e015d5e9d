package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/pricing"
)

type Roster interface {
	GetEmployee(ctx context.Context, id int64) (*domain.Employee, error)
}

type Confirmations interface {
	// FindByEmployee returns nil without error when the employee has not
	// confirmed yet.
	FindByEmployee(ctx context.Context, employeeID int64) (*domain.Confirmation, error)
	VerifyDocument(ctx context.Context, confirmationID int64, document string) (bool, error)
	Get(ctx context.Context, id int64) (*domain.Confirmation, error)
	// Availability reports bus seats, ignoring the seats already held by
	// excludeID so an edited confirmation is not counted twice.
	Availability(ctx context.Context, excludeID int64) (domain.SeatAvailability, error)
	Submit(ctx context.Context, sub domain.Submission) (int64, error)
}

type Config struct {
	MinDocumentLength int
	MaxAdults         int
	MaxChildren       int
	MaxAge            int
	SeatCapacity      int
	PaymentURL        string
	RedirectSeconds   int
	Deadline          time.Time
	Now               func() time.Time
}

func (c *Config) setDefaults() {
	if c.MinDocumentLength <= 0 {
		c.MinDocumentLength = 5
	}
	if c.MaxAdults <= 0 {
		c.MaxAdults = 2
	}
	if c.MaxChildren <= 0 {
		c.MaxChildren = 5
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 120
	}
	if c.SeatCapacity <= 0 {
		c.SeatCapacity = 90
	}
	if c.RedirectSeconds <= 0 {
		c.RedirectSeconds = 6
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Engine drives sessions through the step sequence. It holds no session
// state of its own.
type Engine struct {
	roster        Roster
	confirmations Confirmations
	calc          pricing.Calculator
	logger        *slog.Logger
	cfg           Config
}

func NewEngine(
	roster Roster,
	confirmations Confirmations,
	calc pricing.Calculator,
	logger *slog.Logger,
	cfg Config,
) *Engine {
	cfg.setDefaults()

	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		roster:        roster,
		confirmations: confirmations,
		calc:          calc,
		logger:        logger,
		cfg:           cfg,
	}
}

func (e *Engine) Calculator() pricing.Calculator {
	return e.calc
}

// Start opens a new session on the Identify step.
func (e *Engine) Start(id string) (*Session, error) {
	const op = "wizard.Engine.Start"

	if e.closed() {
		return nil, fmt.Errorf("%s:%w", op, ErrRegistrationClosed)
	}

	s := NewSession(id, e.cfg.Now())
	s.Draft.Costs = e.calc.Calculate(nil, false, nil)
	return s, nil
}

// SelectPerson attaches an employee to the draft and looks for an existing
// confirmation. A lookup failure is treated as "not found".
func (e *Engine) SelectPerson(ctx context.Context, s *Session, employeeID int64) error {
	const op = "wizard.Engine.SelectPerson"

	if err := requireStep(s, StepIdentify); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	emp, err := e.roster.GetEmployee(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	e.reset(s)
	s.ApplyUpdate(e.calc, Update{Employee: emp})

	existing, err := e.confirmations.FindByEmployee(ctx, emp.ID)
	if err != nil {
		e.logger.Warn("duplicate lookup failed, assuming none",
			"session", s.ID, "employee_id", emp.ID, "error", err)
		return nil
	}

	if existing != nil {
		s.Duplicate = Duplicate{Stage: DuplicateFound, ConfirmationID: existing.ID}
	}

	return nil
}

func (e *Engine) SetDocument(s *Session, document string) error {
	const op = "wizard.Engine.SetDocument"

	if err := requireStep(s, StepIdentify); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if s.Draft.Employee == nil {
		return invalid("employee", "select a person first")
	}

	s.ApplyUpdate(e.calc, Update{Document: &document})
	return nil
}

func (e *Engine) ContinueIdentify(s *Session) error {
	const op = "wizard.Engine.ContinueIdentify"

	if err := requireStep(s, StepIdentify); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if s.Draft.Employee == nil {
		return invalid("employee", "select a person first")
	}
	if s.Duplicate.Stage != DuplicateNone {
		return fmt.Errorf("%s:%w", op, ErrDuplicatePending)
	}
	if utf8.RuneCountInString(s.Draft.Document) < e.cfg.MinDocumentLength {
		return invalid("document", "must have at least %d characters", e.cfg.MinDocumentLength)
	}

	s.Step = StepAttendance
	return nil
}

// RequestEdit accepts the "already confirmed, edit?" prompt.
func (e *Engine) RequestEdit(s *Session) error {
	const op = "wizard.Engine.RequestEdit"

	if err := requireStep(s, StepIdentify); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if s.Duplicate.Stage != DuplicateFound {
		return fmt.Errorf("%s:%w", op, ErrNoDuplicate)
	}

	s.Duplicate.Stage = DuplicateAwaitingSecret
	return nil
}

// VerifySecret checks the document against the existing confirmation. On a
// match the draft is replaced by the stored record and the session switches
// to edit mode.
func (e *Engine) VerifySecret(ctx context.Context, s *Session, document string) error {
	const op = "wizard.Engine.VerifySecret"

	if err := requireStep(s, StepIdentify); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if s.Duplicate.Stage != DuplicateAwaitingSecret {
		return fmt.Errorf("%s:%w", op, ErrNoDuplicate)
	}

	document = strings.TrimSpace(document)
	id := s.Duplicate.ConfirmationID

	ok, err := e.confirmations.VerifyDocument(ctx, id, document)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if !ok {
		s.Duplicate.FailedAttempts++
		return fmt.Errorf("%s:%w", op, ErrSecretMismatch)
	}

	existing, err := e.confirmations.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	emp := s.Draft.Employee
	attending := true
	companions := existing.Companions
	if companions == nil {
		companions = []domain.Companion{}
	}
	lap := []int{}

	s.Draft = emptyDraft()
	s.ApplyUpdate(e.calc, Update{
		Employee:       emp,
		Document:       &document,
		Attending:      &attending,
		Companions:     &companions,
		WantsTransport: &existing.WantsTransport,
		LapExemptions:  &lap,
	})

	s.EditMode = true
	s.EditingID = id
	s.Duplicate = Duplicate{}
	s.Step = StepAttendance

	return nil
}

// CancelDuplicate drops the selected person and returns to a blank Identify.
func (e *Engine) CancelDuplicate(s *Session) error {
	const op = "wizard.Engine.CancelDuplicate"

	if err := requireStep(s, StepIdentify); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if s.Duplicate.Stage == DuplicateNone {
		return fmt.Errorf("%s:%w", op, ErrNoDuplicate)
	}

	e.reset(s)
	return nil
}

// Attend records the attendance answer. Declining ends the wizard without
// collecting anything else.
func (e *Engine) Attend(s *Session, attending bool) error {
	const op = "wizard.Engine.Attend"

	if err := requireStep(s, StepAttendance); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.ApplyUpdate(e.calc, Update{Attending: &attending})

	if !attending {
		// A decline keeps only who declined; companions and transport
		// loaded in edit mode must not survive into the outcome.
		emp, doc := s.Draft.Employee, s.Draft.Document
		s.Draft = emptyDraft()
		s.Draft.Employee, s.Draft.Document = emp, doc
		s.Draft.Attending = &attending
		s.Draft.Costs = e.calc.Calculate(nil, false, nil)

		s.Step = StepSuccess
		s.Outcome = &Outcome{
			Declined:  true,
			FirstName: s.firstName(),
			Total:     0,
			Free:      true,
		}
		return nil
	}

	s.Step = StepCompanions
	return nil
}

// SetCompanions replaces the companion list. Bounds are enforced here;
// per-field completeness is checked when leaving the step.
func (e *Engine) SetCompanions(s *Session, companions []domain.Companion) error {
	const op = "wizard.Engine.SetCompanions"

	if err := requireStep(s, StepCompanions); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	var adults, children int
	for i, c := range companions {
		if c.Age < 0 || c.Age > e.cfg.MaxAge {
			return invalid(fmt.Sprintf("companions[%d].age", i), "must be between 0 and %d", e.cfg.MaxAge)
		}
		if domain.CategoryFor(c.Age) == domain.CategoryAdult {
			adults++
		} else {
			children++
		}
	}
	if adults > e.cfg.MaxAdults {
		return invalid("companions", "at most %d adults allowed", e.cfg.MaxAdults)
	}
	if children > e.cfg.MaxChildren {
		return invalid("companions", "at most %d children allowed", e.cfg.MaxChildren)
	}

	s.ApplyUpdate(e.calc, Update{Companions: &companions})
	return nil
}

func (e *Engine) ContinueCompanions(s *Session) error {
	const op = "wizard.Engine.ContinueCompanions"

	if err := requireStep(s, StepCompanions); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	for i, c := range s.Draft.Companions {
		if c.Name == "" {
			return invalid(fmt.Sprintf("companions[%d].name", i), "is required")
		}
		if c.Document == "" {
			return invalid(fmt.Sprintf("companions[%d].document", i), "is required")
		}
	}

	s.Step = StepTransport
	return nil
}

func (e *Engine) SetLapExemptions(s *Session, indices []int) error {
	const op = "wizard.Engine.SetLapExemptions"

	if err := requireStep(s, StepTransport); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	for _, i := range indices {
		if i < 0 || i >= len(s.Draft.Companions) {
			return invalid("lap_exemptions", "index %d out of range", i)
		}
		if s.Draft.Companions[i].Age > pricing.LapMaxAge {
			return invalid("lap_exemptions", "companion %d is older than %d", i, pricing.LapMaxAge)
		}
	}

	s.ApplyUpdate(e.calc, Update{LapExemptions: &indices})
	return nil
}

type TransportQuote struct {
	Availability domain.SeatAvailability `json:"availability"`
	SeatsNeeded  int                     `json:"seats_needed"`
	Cost         domain.Cents            `json:"cost"`
	Available    bool                    `json:"available"`
	Degraded     bool                    `json:"degraded,omitempty"`
}

// Quote prices the "yes" transport option for the current draft. When the
// seat count cannot be read the full capacity is assumed.
func (e *Engine) Quote(ctx context.Context, s *Session) TransportQuote {
	var q TransportQuote

	avail, err := e.confirmations.Availability(ctx, s.EditingID)
	if err != nil {
		e.logger.Warn("seat count unavailable, assuming full capacity",
			"session", s.ID, "error", err)
		avail = domain.SeatAvailability{
			Capacity:  e.cfg.SeatCapacity,
			Remaining: e.cfg.SeatCapacity,
		}
		q.Degraded = true
	}

	q.Availability = avail
	q.SeatsNeeded = pricing.SeatsNeeded(s.Draft.Companions, s.Draft.LapExemptions)
	q.Cost = e.calc.Prices().TransportSeat.Mul(q.SeatsNeeded)
	q.Available = q.SeatsNeeded <= avail.Remaining

	return q
}

func (e *Engine) ChooseTransport(ctx context.Context, s *Session, wants bool) error {
	const op = "wizard.Engine.ChooseTransport"

	if err := requireStep(s, StepTransport); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if wants {
		if q := e.Quote(ctx, s); !q.Available {
			return fmt.Errorf("%s:%w", op, ErrSeatsUnavailable)
		}
		s.ApplyUpdate(e.calc, Update{WantsTransport: &wants})
	} else {
		lap := []int{}
		s.ApplyUpdate(e.calc, Update{WantsTransport: &wants, LapExemptions: &lap})
	}

	s.Step = StepSummary
	return nil
}

func (e *Engine) Back(s *Session) error {
	const op = "wizard.Engine.Back"

	if !s.Step.CanGoBack() {
		return fmt.Errorf("%s:%w", op, ErrNoBack)
	}

	s.Step--
	return nil
}

// Submit persists the draft (insert, or update in edit mode) and moves to
// Success. On error the session is left on Summary so the user can retry.
func (e *Engine) Submit(ctx context.Context, s *Session) error {
	const op = "wizard.Engine.Submit"

	if err := requireStep(s, StepSummary); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if e.closed() {
		return fmt.Errorf("%s:%w", op, ErrRegistrationClosed)
	}
	if s.Draft.Employee == nil {
		return invalid("employee", "select a person first")
	}
	if s.Draft.Attending == nil || !*s.Draft.Attending {
		return invalid("attending", "attendance must be confirmed")
	}

	sub := s.Submission()

	id, err := e.confirmations.Submit(ctx, sub)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	total := s.Draft.Costs.Total
	out := &Outcome{
		Updated:        sub.IsUpdate(),
		ConfirmationID: id,
		FirstName:      s.firstName(),
		Total:          total,
		Free:           total == 0,
	}
	if !out.Free {
		out.PaymentURL = e.cfg.PaymentURL
		out.RedirectSeconds = e.cfg.RedirectSeconds
	}

	e.logger.Info("confirmation saved",
		"session", s.ID, "confirmation_id", id, "updated", out.Updated, "total", total.String())

	s.Outcome = out
	s.Draft = emptyDraft()
	s.EditMode = false
	s.EditingID = 0
	s.Step = StepSuccess

	return nil
}

func (e *Engine) reset(s *Session) {
	s.Draft = emptyDraft()
	s.Draft.Costs = e.calc.Calculate(nil, false, nil)
	s.EditMode = false
	s.EditingID = 0
	s.Duplicate = Duplicate{}
	s.Outcome = nil
}

func (e *Engine) closed() bool {
	return !e.cfg.Deadline.IsZero() && e.cfg.Now().After(e.cfg.Deadline)
}

func requireStep(s *Session, want Step) error {
	if s.Step != want {
		return fmt.Errorf("%w: at %s, need %s", ErrWrongStep, s.Step, want)
	}
	return nil
}
