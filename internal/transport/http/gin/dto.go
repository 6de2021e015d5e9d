package httpgin

import (
	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/wizard"
)

type SelectPersonRequest struct {
	EmployeeID int64 `json:"employee_id" binding:"required,gt=0"`
}

type DocumentRequest struct {
	Document string `json:"document"`
}

type AttendanceRequest struct {
	Attending *bool `json:"attending" binding:"required"`
}

type CompanionInput struct {
	Name     string `json:"name"`
	Age      *int   `json:"age" binding:"required"`
	Document string `json:"document"`
}

type CompanionsRequest struct {
	Companions []CompanionInput `json:"companions" binding:"max=20,dive"`
}

func (r CompanionsRequest) toDomain() []domain.Companion {
	out := make([]domain.Companion, 0, len(r.Companions))
	for _, in := range r.Companions {
		out = append(out, domain.Companion{
			Name:     in.Name,
			Age:      *in.Age,
			Document: in.Document,
		})
	}
	return out
}

type LapRequest struct {
	Indices []int `json:"indices"`
}

type TransportRequest struct {
	WantsTransport *bool `json:"wants_transport" binding:"required"`
}

type EmbarkedRequest struct {
	Embarked *bool `json:"embarked" binding:"required"`
}

type SessionResponse struct {
	*wizard.Session
	StepName string `json:"step_name"`
	CanBack  bool   `json:"can_back"`
}

func newSessionResponse(s *wizard.Session) SessionResponse {
	return SessionResponse{
		Session:  s,
		StepName: s.Step.String(),
		CanBack:  s.Step.CanGoBack(),
	}
}

type SearchResponse struct {
	People []domain.Employee `json:"people"`
	Stale  bool              `json:"stale"`
	Seq    string            `json:"seq,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
