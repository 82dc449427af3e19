package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/abrezinsky/chanceraffle/internal/auth"
	"github.com/abrezinsky/chanceraffle/internal/handlers"
	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/repository"
	"github.com/abrezinsky/chanceraffle/internal/services"
	"github.com/abrezinsky/chanceraffle/internal/testutil"
	"github.com/abrezinsky/chanceraffle/pkg/payment"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "correct-password"
)

// testServer is the full router over an in-memory repository and a mock
// gateway
type testServer struct {
	router  http.Handler
	repo    *repository.Repository
	gateway *payment.MockGateway
	auth    *auth.Auth
	entries *services.EntryService
}

func newTestServer(t *testing.T, opts ...payment.MockOption) *testServer {
	t.Helper()
	return newTestServerWithRepo(t, testutil.NewTestRepository(t), opts...)
}

func newTestServerWithRepo(t *testing.T, repo *repository.Repository, opts ...payment.MockOption) *testServer {
	t.Helper()
	log := logger.New()
	gateway := payment.NewMockGateway(opts...)

	overflow := services.NewOverflowService(log, repo)
	entries := services.NewEntryService(log, repo, gateway, overflow, services.NewAllocator(log))
	entries.SetBaseURL("https://raffle.example.org")

	adminAuth := auth.New(log, repo, auth.Config{Secret: "test-secret", BcryptCost: bcrypt.MinCost})
	if _, err := adminAuth.SeedAdmin(context.Background(), adminEmail, adminPassword); err != nil {
		t.Fatalf("SeedAdmin failed: %v", err)
	}

	h := handlers.New(log, handlers.Deps{
		Entries:  entries,
		Payments: services.NewPaymentService(log, repo, gateway),
		Winner:   services.NewWinnerService(log, repo),
		Settings: services.NewSettingsService(log, repo),
		Stats:    services.NewStatsService(repo),
	}, adminAuth, nil, nil)

	return &testServer{router: h.Router(), repo: repo, gateway: gateway, auth: adminAuth, entries: entries}
}

// do sends a request through the router. body is JSON-encoded unless it is
// already a string.
func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// login returns an admin token
func (s *testServer) login(t *testing.T) string {
	t.Helper()
	token, _, err := s.auth.Login(context.Background(), adminEmail, adminPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return token
}

// enter buys an entry through the public API and returns it
func (s *testServer) enter(t *testing.T, name string) map[string]interface{} {
	t.Helper()
	rec := s.do(t, "POST", "/api/payment", map[string]string{"card_token": "tok_visa"}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("authorize: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	hold := decode(t, rec)

	rec = s.do(t, "POST", "/api/entries", map[string]string{
		"name":        name,
		"email":       name + "@example.com",
		"phone":       "5551234567",
		"payment_ref": hold["payment_ref"].(string),
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode(t, rec)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

// expectError checks status and error code of an API error response
func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) map[string]interface{} {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["code"] != code {
		t.Errorf("expected code %q, got %v", code, body["code"])
	}
	return body
}
