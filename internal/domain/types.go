package domain

import "time"

type CompanionCategory string

const (
	CategoryAdult CompanionCategory = "adult"
	CategoryChild CompanionCategory = "child"
)

// AdultMinAge is the single threshold used for both pricing and the
// category field.
const AdultMinAge = 13

// CategoryFor derives a companion category from its age.
func CategoryFor(age int) CompanionCategory {
	if age >= AdultMinAge {
		return CategoryAdult
	}
	return CategoryChild
}

type Employee struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

type Companion struct {
	Name     string            `json:"name"`
	Age      int               `json:"age"`
	Document string            `json:"document"`
	Category CompanionCategory `json:"type"`
}

type CostBreakdown struct {
	AdultPasses    int   `json:"adult_passes"`
	ChildPasses    int   `json:"child_passes"`
	DailyPasses    Cents `json:"daily_passes"`
	TransportSeats int   `json:"transport_seats"`
	Transport      Cents `json:"transport"`
	Total          Cents `json:"total"`
}

// Draft is the in-progress RSVP built by the wizard.
type Draft struct {
	Employee       *Employee     `json:"employee,omitempty"`
	Document       string        `json:"document,omitempty"`
	Attending      *bool         `json:"attending,omitempty"`
	Companions     []Companion   `json:"companions"`
	WantsTransport bool          `json:"wants_transport"`
	LapExemptions  []int         `json:"lap_exemptions"`
	Costs          CostBreakdown `json:"costs"`
}

type Confirmation struct {
	ID               int64       `json:"id"`
	EmployeeID       int64       `json:"employee_id"`
	EmployeeName     string      `json:"employee_name"`
	EmployeeDocument string      `json:"-"`
	Department       string      `json:"department"`
	HasCompanions    bool        `json:"has_companions"`
	WantsTransport   bool        `json:"wants_transport"`
	TotalAdults      int         `json:"total_adults"`
	TotalChildren    int         `json:"total_children"`
	TotalDailyPasses int         `json:"total_daily_passes"`
	TotalTransport   int         `json:"total_transport"`
	Total            Cents       `json:"total"`
	Embarked         bool        `json:"embarked"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
	Companions       []Companion `json:"companions,omitempty"`
}

// Submission is a draft ready to be persisted. ConfirmationID is zero for
// an insert and the edited record's id for an update.
type Submission struct {
	ConfirmationID int64
	Confirmation   Confirmation
	Companions     []Companion
}

func (s Submission) IsUpdate() bool {
	return s.ConfirmationID != 0
}

type ConfirmationFilter struct {
	Search         string
	OnlyTransport  bool
	OnlyCompanions bool
}

type Stats struct {
	Confirmations  int   `json:"confirmations"`
	Companions     int   `json:"companions"`
	Adults         int   `json:"adults"`
	Children       int   `json:"children"`
	WithTransport  int   `json:"with_transport"`
	TransportSeats int   `json:"transport_seats"`
	Embarked       int   `json:"embarked"`
	Revenue        Cents `json:"revenue"`
}

type SeatAvailability struct {
	Capacity  int `json:"capacity"`
	Sold      int `json:"sold"`
	Remaining int `json:"remaining"`
}
