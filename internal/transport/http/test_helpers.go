package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trvo-dev/quizhub-server/internal/auth"
	"github.com/trvo-dev/quizhub-server/internal/chat"
	"github.com/trvo-dev/quizhub-server/internal/config"
	"github.com/trvo-dev/quizhub-server/internal/log"
	"github.com/trvo-dev/quizhub-server/internal/store"
	"github.com/trvo-dev/quizhub-server/internal/store/sqlite"
)

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, st store.Store, jwtSecret string) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return auth.NewService(st, jwtConfig)
}

// testServer bundles the running HTTP test server with its dependencies so
// tests can seed data and inspect state directly.
type testServer struct {
	ts          *httptest.Server
	store       store.Store
	hub         *chat.Hub
	authService *auth.Service
}

// startTestServer wires a full server on an in-memory store.
func startTestServer(t *testing.T) *testServer {
	t.Helper()

	st := createTestStore(t)
	authService := createTestAuthService(t, st, "test-secret")
	logger := log.New("error", false)
	hub := chat.NewHub(logger, time.Second)

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.WriteTimeout = time.Second

	server := NewServer(hub, authService, st, &cfg, logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{
		ts:          ts,
		store:       st,
		hub:         hub,
		authService: authService,
	}
}

// registerUser registers a user over the API and returns the token.
func (s *testServer) registerUser(t *testing.T, name, email, password string) string {
	t.Helper()

	body, _ := json.Marshal(RegisterRequest{Name: name, Email: email, Password: password})
	resp, err := s.ts.Client().Post(s.ts.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("register returned %d: %s", resp.StatusCode, data)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return authResp.Token
}

// createAdmin seeds an admin account directly in the store and returns a token.
func (s *testServer) createAdmin(t *testing.T, name, email, password string) string {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &store.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         store.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	token, err := s.authService.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	return token
}

// doJSON performs an authenticated JSON request and returns the response.
func (s *testServer) doJSON(t *testing.T, method, path, token string, body any) *stdhttp.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := stdhttp.NewRequest(method, s.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// addDiscussion opens a quiz discussion over the API.
func (s *testServer) addDiscussion(t *testing.T, token, quizID, quizTitle string) {
	t.Helper()

	resp := s.doJSON(t, stdhttp.MethodPost, "/api/discussions", token, AddDiscussionRequest{
		QuizID:    quizID,
		QuizTitle: quizTitle,
	})
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("add discussion returned %d: %s", resp.StatusCode, data)
	}
}
