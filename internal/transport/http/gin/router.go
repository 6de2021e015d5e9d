package httpgin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/kirinyoku/party-rsvp/internal/service"
	"github.com/kirinyoku/party-rsvp/internal/service/admin"
	"github.com/kirinyoku/party-rsvp/internal/service/confirmation"
	"github.com/kirinyoku/party-rsvp/internal/service/roster"
	"github.com/kirinyoku/party-rsvp/internal/service/rsvp"
	"github.com/kirinyoku/party-rsvp/internal/wizard"
)

type Options struct {
	ServiceName       string
	AdminPasswordHash string
	SearchLimiter     RateLimiter
}

func NewRouter(
	svcs *service.Services,
	opts Options,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	if opts.ServiceName == "" {
		opts.ServiceName = "party-rsvp"
	}

	r := gin.New()

	r.Use(
		gin.Recovery(),
		otelgin.Middleware(opts.ServiceName),
		LoggingMiddleware(logger),
		RequestIDMiddleware(),
		CORS(),
	)
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	var searchLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if opts.SearchLimiter != nil {
		searchLimit = RateLimit(opts.SearchLimiter, logger)
	}

	r.GET("/people", searchLimit, handleSearchPeople(svcs))
	r.GET("/transport/availability", handleAvailability(svcs))

	w := r.Group("/wizard")
	{
		w.POST("", handleStartWizard(svcs))
		w.GET("/:id", handleGetWizard(svcs))

		w.POST("/:id/person", handleSelectPerson(svcs))
		w.PUT("/:id/document", handleSetDocument(svcs))
		w.POST("/:id/identify", handleStep(svcs.RSVP.ContinueIdentify))

		w.POST("/:id/duplicate/edit", handleStep(svcs.RSVP.RequestEdit))
		w.POST("/:id/duplicate/verify", handleVerifySecret(svcs))
		w.POST("/:id/duplicate/cancel", handleStep(svcs.RSVP.CancelDuplicate))

		w.POST("/:id/attendance", handleAttendance(svcs))
		w.PUT("/:id/companions", handleSetCompanions(svcs))
		w.POST("/:id/companions/continue", handleStep(svcs.RSVP.ContinueCompanions))

		w.PUT("/:id/lap", handleSetLap(svcs))
		w.GET("/:id/transport", handleQuote(svcs))
		w.POST("/:id/transport", handleChooseTransport(svcs))

		w.POST("/:id/back", handleStep(svcs.RSVP.Back))
		w.POST("/:id/submit", handleSubmit(svcs))
	}

	adm := r.Group("/admin", AdminAuth(opts.AdminPasswordHash))
	{
		adm.GET("/confirmations", handleListConfirmations(svcs))
		adm.GET("/confirmations.csv", handleExportCSV(svcs))
		adm.GET("/stats", handleStats(svcs))
		adm.DELETE("/confirmations/:id", handleDeleteConfirmation(svcs))
		adm.PATCH("/confirmations/:id/embarked", handleSetEmbarked(svcs))
	}

	return r
}

// @Summary  Search people by name
// @Param    q        query  string  true   "part of the name, 2+ chars"
// @Param    session  query  string  false  "wizard session id, enables stale detection"
// @Param    seq      query  string  false  "client sequence number, echoed back"
// @Success  200  {object}  SearchResponse
// @Failure  429  {object}  ErrorResponse
// @Router   /people [get]
func handleSearchPeople(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := svcs.RSVP.Search(c.Request.Context(), c.Query("session"), c.Query("q"))
		c.JSON(http.StatusOK, SearchResponse{
			People: res.People,
			Stale:  res.Stale,
			Seq:    c.Query("seq"),
		})
	}
}

// @Summary  Bus seat availability
// @Success  200  {object}  domain.SeatAvailability
// @Router   /transport/availability [get]
func handleAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		avail, err := svcs.RSVP.Availability(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, avail, "public, max-age=15")
	}
}

// @Summary  Start a wizard session
// @Success  201  {object}  SessionResponse
// @Failure  410  {object}  ErrorResponse "registration closed"
// @Router   /wizard [post]
func handleStartWizard(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := svcs.RSVP.Start(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, newSessionResponse(sess))
	}
}

// @Summary  Get a wizard session
// @Param    id  path  string  true  "Session ID"
// @Success  200  {object}  SessionResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /wizard/{id} [get]
func handleGetWizard(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := svcs.RSVP.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, newSessionResponse(sess))
	}
}

// @Summary  Select the person confirming
// @Param    id   path  string               true  "Session ID"
// @Param    req  body  SelectPersonRequest  true  "payload"
// @Success  200  {object}  SessionResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /wizard/{id}/person [post]
func handleSelectPerson(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SelectPersonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondSession(c)(svcs.RSVP.SelectPerson(c.Request.Context(), c.Param("id"), req.EmployeeID))
	}
}

// @Summary  Set the identity document
// @Param    id   path  string           true  "Session ID"
// @Param    req  body  DocumentRequest  true  "payload"
// @Success  200  {object}  SessionResponse
// @Failure  422  {object}  ErrorResponse
// @Router   /wizard/{id}/document [put]
func handleSetDocument(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondSession(c)(svcs.RSVP.SetDocument(c.Request.Context(), c.Param("id"), req.Document))
	}
}

// @Summary  Verify the document of an existing confirmation
// @Param    id   path  string           true  "Session ID"
// @Param    req  body  DocumentRequest  true  "payload"
// @Success  200  {object}  SessionResponse
// @Failure  403  {object}  ErrorResponse "document mismatch"
// @Failure  429  {object}  ErrorResponse "too many attempts"
// @Router   /wizard/{id}/duplicate/verify [post]
func handleVerifySecret(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondSession(c)(svcs.RSVP.VerifySecret(c.Request.Context(), c.Param("id"), req.Document))
	}
}

// @Summary  Answer attendance
// @Param    id   path  string             true  "Session ID"
// @Param    req  body  AttendanceRequest  true  "payload"
// @Success  200  {object}  SessionResponse
// @Router   /wizard/{id}/attendance [post]
func handleAttendance(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AttendanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondSession(c)(svcs.RSVP.Attend(c.Request.Context(), c.Param("id"), *req.Attending))
	}
}

// @Summary  Replace the companion list
// @Param    id   path  string             true  "Session ID"
// @Param    req  body  CompanionsRequest  true  "payload"
// @Success  200  {object}  SessionResponse
// @Failure  422  {object}  ErrorResponse
// @Router   /wizard/{id}/companions [put]
func handleSetCompanions(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CompanionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondSession(c)(svcs.RSVP.SetCompanions(c.Request.Context(), c.Param("id"), req.toDomain()))
	}
}

// @Summary  Set companions travelling on a lap
// @Param    id   path  string      true  "Session ID"
// @Param    req  body  LapRequest  true  "payload"
// @Success  200  {object}  SessionResponse
// @Failure  422  {object}  ErrorResponse
// @Router   /wizard/{id}/lap [put]
func handleSetLap(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LapRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondSession(c)(svcs.RSVP.SetLapExemptions(c.Request.Context(), c.Param("id"), req.Indices))
	}
}

// @Summary  Quote the transport option
// @Param    id  path  string  true  "Session ID"
// @Success  200  {object}  wizard.TransportQuote
// @Router   /wizard/{id}/transport [get]
func handleQuote(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := svcs.RSVP.Quote(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, q)
	}
}

// @Summary  Choose transport
// @Param    id   path  string            true  "Session ID"
// @Param    req  body  TransportRequest  true  "payload"
// @Success  200  {object}  SessionResponse
// @Failure  409  {object}  ErrorResponse "not enough seats"
// @Router   /wizard/{id}/transport [post]
func handleChooseTransport(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondSession(c)(svcs.RSVP.ChooseTransport(c.Request.Context(), c.Param("id"), *req.WantsTransport))
	}
}

// @Summary  Submit the confirmation (idempotent)
// @Param    id  path  string  true  "Session ID"
// @Header   200 {string} Idempotency-Key "echo"
// @Success  200  {object}  SessionResponse
// @Failure  409  {object}  ErrorResponse "already confirmed / seats unavailable / in progress"
// @Failure  410  {object}  ErrorResponse "registration closed"
// @Router   /wizard/{id}/submit [post]
func handleSubmit(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		sess, err := svcs.RSVP.Submit(c.Request.Context(), c.Param("id"), idemKey)
		if err != nil {
			if errors.Is(err, rsvp.ErrSubmitInProgress) {
				c.Header("Retry-After", "1")
			}
			respondErr(c, err)
			return
		}
		if idemKey != "" {
			c.Header("Idempotency-Key", idemKey)
		}
		c.JSON(http.StatusOK, newSessionResponse(sess))
	}
}

// handleStep serves the body-less wizard transitions.
func handleStep(step func(ctx context.Context, id string) (*wizard.Session, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		respondSession(c)(step(c.Request.Context(), c.Param("id")))
	}
}

// --- Helpers ---

func respondSession(c *gin.Context) func(*wizard.Session, error) {
	return func(sess *wizard.Session, err error) {
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, newSessionResponse(sess))
	}
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: verr.Message, Field: verr.Field})
		return
	}

	switch {
	case errors.Is(err, wizard.ErrSecretMismatch):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "document does not match"})
	case errors.Is(err, rsvp.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many attempts, try again later"})
	case errors.Is(err, wizard.ErrRegistrationClosed):
		c.JSON(http.StatusGone, ErrorResponse{Error: "registration is closed"})

	case errors.Is(err, wizard.ErrWrongStep),
		errors.Is(err, wizard.ErrNoBack),
		errors.Is(err, wizard.ErrDuplicatePending),
		errors.Is(err, wizard.ErrNoDuplicate):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, wizard.ErrSeatsUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "not enough transport seats left"})
	case errors.Is(err, confirmation.ErrAlreadyConfirmed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "already confirmed, use edit"})
	case errors.Is(err, rsvp.ErrSubmitInProgress):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})

	case errors.Is(err, rsvp.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
	case errors.Is(err, roster.ErrEmployeeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "employee not found"})
	case errors.Is(err, confirmation.ErrConfirmationNotFound),
		errors.Is(err, admin.ErrConfirmationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "confirmation not found"})

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
