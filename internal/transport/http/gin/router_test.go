package httpgin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/pricing"
	"github.com/kirinyoku/party-rsvp/internal/repository"
	"github.com/kirinyoku/party-rsvp/internal/service"
	"github.com/kirinyoku/party-rsvp/internal/service/admin"
	"github.com/kirinyoku/party-rsvp/internal/service/rsvp"
	"github.com/kirinyoku/party-rsvp/internal/wizard"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type memSessions struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memSessions) Get(_ context.Context, id string) (*wizard.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	var s wizard.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *memSessions) Save(_ context.Context, s *wizard.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.ID] = b
	return nil
}

type fakeAdminStore struct {
	list       []domain.Confirmation
	lastFilter domain.ConfirmationFilter
	stats      domain.Stats
	embarked   map[int64]bool
}

func (f *fakeAdminStore) List(_ context.Context, filter domain.ConfirmationFilter) ([]domain.Confirmation, error) {
	f.lastFilter = filter
	return f.list, nil
}

func (f *fakeAdminStore) Stats(context.Context) (domain.Stats, error) { return f.stats, nil }

func (f *fakeAdminStore) Delete(_ context.Context, id int64) error {
	if id == 404 {
		return repository.ErrNotFound
	}
	return nil
}

func (f *fakeAdminStore) SetEmbarked(_ context.Context, id int64, embarked bool) error {
	if id == 404 {
		return repository.ErrNotFound
	}
	f.embarked[id] = embarked
	return nil
}

type testEnv struct {
	router *gin.Engine
	store  *fakeAdminStore
}

func newTestEnv(t *testing.T, wcfg wizard.Config) testEnv {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	store := &fakeAdminStore{embarked: map[int64]bool{}}
	engine := wizard.NewEngine(nil, nil, pricing.NewCalculator(pricing.DefaultPrices), testLogger, wcfg)

	svcs := &service.Services{
		Admin: admin.New(store, nil, testLogger),
		RSVP: rsvp.New(rsvp.Deps{
			Engine:   engine,
			Sessions: &memSessions{data: map[string][]byte{}},
		}, rsvp.Config{}, testLogger),
	}

	return testEnv{
		router: NewRouter(svcs, Options{AdminPasswordHash: string(hash)}, testLogger),
		store:  store,
	}
}

func do(r http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, wizard.Config{})

	w := do(env.router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestWizard_StartGetBack(t *testing.T) {
	env := newTestEnv(t, wizard.Config{})

	w := do(env.router, http.MethodPost, "/wizard", "")
	require.Equal(t, http.StatusCreated, w.Code)

	var started struct {
		ID       string `json:"id"`
		StepName string `json:"step_name"`
		CanBack  bool   `json:"can_back"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	assert.NotEmpty(t, started.ID)
	assert.Equal(t, "identify", started.StepName)
	assert.False(t, started.CanBack)

	w = do(env.router, http.MethodGet, "/wizard/"+started.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(env.router, http.MethodPost, "/wizard/"+started.ID+"/back", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(env.router, http.MethodGet, "/wizard/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWizard_BadBody(t *testing.T) {
	env := newTestEnv(t, wizard.Config{})

	w := do(env.router, http.MethodPost, "/wizard/any/attendance", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWizard_RegistrationClosed(t *testing.T) {
	now := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, wizard.Config{
		Deadline: now.Add(-time.Hour),
		Now:      func() time.Time { return now },
	})

	w := do(env.router, http.MethodPost, "/wizard", "")
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestAdmin_Auth(t *testing.T) {
	env := newTestEnv(t, wizard.Config{})

	w := do(env.router, http.MethodGet, "/admin/confirmations", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")

	w = do(env.router, http.MethodGet, "/admin/confirmations", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(env.router, http.MethodGet, "/admin/confirmations", "", "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAdmin_Disabled(t *testing.T) {
	r := gin.New()
	r.GET("/x", AdminAuth(""), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/x", "", "Authorization", "Bearer anything")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdmin_ListFilter(t *testing.T) {
	env := newTestEnv(t, wizard.Config{})
	env.store.list = []domain.Confirmation{{ID: 1, EmployeeName: "Ana Souza", Total: 10378}}

	w := do(env.router, http.MethodGet, "/admin/confirmations?search=ana&transport=true&companions=1", "",
		"Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, domain.ConfirmationFilter{Search: "ana", OnlyTransport: true, OnlyCompanions: true}, env.store.lastFilter)
	assert.Contains(t, w.Body.String(), `"employee_name":"Ana Souza"`)
}

func TestAdmin_ExportCSV(t *testing.T) {
	env := newTestEnv(t, wizard.Config{})

	w := do(env.router, http.MethodGet, "/admin/confirmations.csv", "", "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "confirmations.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "name,department,"))
}

func TestAdmin_StatsETag(t *testing.T) {
	env := newTestEnv(t, wizard.Config{})
	env.store.stats = domain.Stats{Confirmations: 3, Revenue: 31134}

	w := do(env.router, http.MethodGet, "/admin/stats", "", "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	w = do(env.router, http.MethodGet, "/admin/stats", "",
		"Authorization", "Bearer s3cret", "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestAdmin_DeleteAndEmbark(t *testing.T) {
	env := newTestEnv(t, wizard.Config{})
	auth := []string{"Authorization", "Bearer s3cret"}

	w := do(env.router, http.MethodDelete, "/admin/confirmations/7", "", auth...)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(env.router, http.MethodDelete, "/admin/confirmations/404", "", auth...)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(env.router, http.MethodDelete, "/admin/confirmations/abc", "", auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(env.router, http.MethodPatch, "/admin/confirmations/7/embarked", `{"embarked":true}`, auth...)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, env.store.embarked[7])

	w = do(env.router, http.MethodPatch, "/admin/confirmations/7/embarked", `{}`, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeLimiter struct {
	allow bool
	retry time.Duration
	err   error
}

func (f fakeLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return f.allow, f.retry, f.err
}

func TestRateLimit(t *testing.T) {
	cases := []struct {
		name   string
		lim    fakeLimiter
		status int
		retry  string
	}{
		{"allowed", fakeLimiter{allow: true}, http.StatusOK, ""},
		{"denied", fakeLimiter{retry: 1500 * time.Millisecond}, http.StatusTooManyRequests, "2"},
		{"limiter down", fakeLimiter{err: errors.New("redis down")}, http.StatusOK, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", RateLimit(tc.lim, testLogger), func(c *gin.Context) { c.Status(http.StatusOK) })

			w := do(r, http.MethodGet, "/x", "")
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.retry, w.Header().Get("Retry-After"))
		})
	}
}

func TestRespondErr(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&wizard.ValidationError{Field: "document", Message: "too short"}, http.StatusUnprocessableEntity},
		{wizard.ErrSecretMismatch, http.StatusForbidden},
		{rsvp.ErrTooManyAttempts, http.StatusTooManyRequests},
		{wizard.ErrRegistrationClosed, http.StatusGone},
		{wizard.ErrSeatsUnavailable, http.StatusConflict},
		{rsvp.ErrSubmitInProgress, http.StatusConflict},
		{rsvp.ErrSessionNotFound, http.StatusNotFound},
		{admin.ErrConfirmationNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) { respondErr(c, tc.err) })

			w := do(r, http.MethodGet, "/x", "")
			assert.Equal(t, tc.status, w.Code)
		})
	}
}
