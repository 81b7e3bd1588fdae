package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-support/internal/api/http/handlers"
	"github.com/spec-kit/campus-support/internal/auth"
	"github.com/spec-kit/campus-support/internal/domain"
	"github.com/spec-kit/campus-support/internal/events"
	"github.com/spec-kit/campus-support/internal/observability"
	"github.com/spec-kit/campus-support/internal/repository/memory"
	"github.com/spec-kit/campus-support/internal/service"
	"github.com/spec-kit/campus-support/internal/tat"
)

const cronSecret = "cron-secret"

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type testServer struct {
	app    *fiber.App
	store  *memory.Store
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	now := time.Date(2025, 1, 3, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := memory.NewStore()
	store.SetClock(clock)
	store.PutCategory(&domain.Category{ID: "cat-1", DomainID: "dom-1", SLAHours: 48, IsActive: true})
	store.PutUser(&domain.User{ID: "admin-1", Role: domain.RoleAdmin})
	store.PutUser(&domain.User{ID: "student-1", Role: domain.RoleStudent})
	due := now.Add(72 * time.Hour)
	store.PutTicket(&domain.Ticket{
		ID:              "t-1",
		Status:          domain.TicketStatusInProgress,
		CategoryID:      "cat-1",
		CreatedBy:       "student-1",
		ResolutionDueAt: &due,
	})

	calendar := tat.NewCalendar(time.UTC, clock)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	roles := service.NewUserRoleResolver(store.Repositories().Users)
	categories := service.NewCategoryLookup()
	escalations := service.NewEscalationService(service.EscalationDependencies{
		UnitOfWork: store, Calendar: calendar, Categories: categories, Roles: roles, Dispatcher: dispatcher, Metrics: metrics,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		UnitOfWork: store, Calendar: calendar, Categories: categories, Escalations: escalations, Roles: roles, Dispatcher: dispatcher,
	})
	sweep := service.NewSweepService(service.SweepDependencies{
		UnitOfWork: store, Escalations: escalations, Calendar: calendar, Metrics: metrics,
	})
	tokens := auth.NewTokenManager("secret", 60)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:          handlers.NewHealthHandler("campus-support", "test", handlers.NamedPinger{Name: "postgres", Pinger: okPinger{}}),
		Tickets:         handlers.NewTicketsHandler(tickets, escalations),
		EscalationRules: handlers.NewEscalationRulesHandler(service.NewRuleService(store, roles, nil)),
		Sweep:           handlers.NewSweepHandler(sweep),
		AuthMiddleware:  auth.NewAuthMiddleware(tokens, store.Repositories().Users),
		Metrics:         metrics,
		CronSecret:      cronSecret,
	})
	return &testServer{app: app, store: store, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, userID string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, _, err := s.tokens.GenerateToken(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestRoutes_RequireBearerToken(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodPost, "/tickets/t-1/escalate", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, _ = s.do(t, fiber.MethodPost, "/tickets/t-1/escalate", "ghost", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestRoutes_ExtendTATWithDuration(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodPost, "/tickets/t-1/tat-extensions", "admin-1", map[string]any{"tat": "2 days", "reason": "vendor"})
	require.Equal(t, fiber.StatusCreated, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, 1.0, data["tat_extensions"])
	assert.Equal(t, 1, s.store.Ticket("t-1").TATExtensions)

	status, body = s.do(t, fiber.MethodPost, "/tickets/t-1/tat-extensions", "admin-1", map[string]any{"tat": "soon"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	for _, payload := range []map[string]any{{"tat": "1000000 weeks"}, {"hours": 1e7}} {
		status, body = s.do(t, fiber.MethodPost, "/tickets/t-1/tat-extensions", "admin-1", payload)
		assert.Equal(t, fiber.StatusBadRequest, status, payload)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
	}
	assert.Equal(t, 1, s.store.Ticket("t-1").TATExtensions)

	status, body = s.do(t, fiber.MethodPost, "/tickets/t-1/tat-extensions", "student-1", map[string]any{"hours": 4})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))
}

func TestRoutes_EscalateAndStatus(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodPost, "/tickets/t-1/escalate", "admin-1", map[string]any{"reason": "urgent"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1.0, body["data"].(map[string]any)["escalation_level"])

	status, body = s.do(t, fiber.MethodPatch, "/tickets/t-1/status", "admin-1", map[string]any{"status": "closed"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, _ = s.do(t, fiber.MethodPost, "/tickets/missing/escalate", "admin-1", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRoutes_FeedbackConflict(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, fiber.MethodPatch, "/tickets/t-1/status", "admin-1", map[string]any{"status": "resolved"})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, fiber.MethodPost, "/tickets/t-1/feedback", "student-1", map[string]any{"rating": 5})
	assert.Equal(t, fiber.StatusCreated, status)
	status, body := s.do(t, fiber.MethodPost, "/tickets/t-1/feedback", "student-1", map[string]any{"rating": 5})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))
}

func TestRoutes_EscalationRules(t *testing.T) {
	s := newTestServer(t)
	rule := map[string]any{"domain_id": "dom-1", "level": 1, "escalate_to_user_id": "admin-1"}

	status, body := s.do(t, fiber.MethodPost, "/escalation-rules", "admin-1", rule)
	require.Equal(t, fiber.StatusCreated, status)
	id := body["data"].(map[string]any)["id"].(string)

	status, _ = s.do(t, fiber.MethodPost, "/escalation-rules", "admin-1", rule)
	assert.Equal(t, fiber.StatusConflict, status)

	status, body = s.do(t, fiber.MethodGet, "/escalation-rules?domain_id=dom-1", "admin-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = s.do(t, fiber.MethodDelete, "/escalation-rules/"+id, "admin-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["data"].(map[string]any)["is_active"])

	status, _ = s.do(t, fiber.MethodGet, "/escalation-rules", "student-1", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestRoutes_CronSweep(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, fiber.MethodPost, "/internal/cron/escalations", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	req := httptest.NewRequest(fiber.MethodPost, "/internal/cron/escalations", nil)
	req.Header.Set(auth.CronSecretHeader, cronSecret)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data service.SweepReport `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Data.Skipped)
	assert.Equal(t, 0, body.Data.Scanned)
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	status, _ = s.do(t, fiber.MethodPost, "/tickets/t-1/escalate", "admin-1", nil)
	require.Equal(t, fiber.StatusOK, status)

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `campus_support_escalations_total{trigger="manual"} 1`)
	assert.Contains(t, string(raw), "campus_support_http_requests_total")
}
