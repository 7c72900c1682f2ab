package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
)

// =============================================================================
// RequestIDMiddleware Tests
// =============================================================================

func TestRequestIDMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify request ID is in context
		requestID := GetRequestID(r.Context())
		if requestID == "" {
			t.Error("Expected request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	wrapped := RequestIDMiddleware(handler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	// Verify X-Request-ID header is set
	requestID := rec.Header().Get("X-Request-ID")
	if requestID == "" {
		t.Error("Expected X-Request-ID header to be set")
	}
}

func TestRequestIDMiddleware_UniqueIDs(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := RequestIDMiddleware(handler)

	// Make two requests
	req1 := httptest.NewRequest("GET", "/", nil)
	rec1 := httptest.NewRecorder()
	wrapped.ServeHTTP(rec1, req1)

	req2 := httptest.NewRequest("GET", "/", nil)
	rec2 := httptest.NewRecorder()
	wrapped.ServeHTTP(rec2, req2)

	id1 := rec1.Header().Get("X-Request-ID")
	id2 := rec2.Header().Get("X-Request-ID")

	if id1 == id2 {
		t.Errorf("Expected unique request IDs, got same: %s", id1)
	}
}

func TestRequestIDMiddleware_Inbound(t *testing.T) {
	const upstream = "4a1f2c9e-7b3d-4e8a-9c51-2f6d8e0b1a37"

	tests := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{"uuid from proxy", upstream, true},
		{"not a uuid", "req-1; DROP TABLE", false},
		{"absent", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			wrapped := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest("GET", "/", nil)
			if tt.inbound != "" {
				req.Header.Set(RequestIDHeader, tt.inbound)
			}
			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, req)

			if got := rec.Header().Get(RequestIDHeader); got != seen {
				t.Errorf("header %q differs from context %q", got, seen)
			}
			if (seen == tt.inbound) != tt.keep {
				t.Errorf("request ID = %q, inbound %q, keep %v", seen, tt.inbound, tt.keep)
			}
			if seen == "" {
				t.Error("expected a request ID")
			}
		})
	}
}

func TestGetRequestID_NotSet(t *testing.T) {
	ctx := context.Background()
	if id := GetRequestID(ctx); id != "" {
		t.Errorf("Expected empty string, got %q", id)
	}
}

// =============================================================================
// TimeoutMiddleware Tests
// =============================================================================

func TestTimeoutMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check that context has deadline
		deadline, ok := r.Context().Deadline()
		if !ok {
			t.Error("Expected context to have deadline")
		}
		if deadline.IsZero() {
			t.Error("Expected non-zero deadline")
		}
		w.WriteHeader(http.StatusOK)
	})

	wrapped := TimeoutMiddleware(30 * time.Second)(handler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestTimeoutMiddleware_ContextCancelled(t *testing.T) {
	// Create a handler that checks if context is cancelled
	contextCancelled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			contextCancelled = true
		case <-time.After(100 * time.Millisecond):
			// Context should be cancelled before this
		}
		w.WriteHeader(http.StatusOK)
	})

	// Very short timeout
	wrapped := TimeoutMiddleware(10 * time.Millisecond)(handler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if !contextCancelled {
		t.Error("Expected context to be cancelled due to timeout")
	}
}

func TestTimeoutMiddleware_WritesServiceUnavailable(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	wrapped := TimeoutMiddleware(10 * time.Millisecond)(handler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "request timed out") {
		t.Errorf("Expected timeout error body, got %s", rec.Body.String())
	}
}

// =============================================================================
// AuthMiddleware Tests
// =============================================================================

// fakeAuth admits a single token; an empty token is rejected unless
// anonymous is set.
type fakeAuth struct {
	token     string
	principal *domain.Principal
	anonymous *domain.Principal
	seen      string
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*domain.Principal, error) {
	f.seen = token
	switch {
	case token == "" && f.anonymous != nil:
		return f.anonymous, nil
	case token == "":
		return nil, domain.ErrAuthentication("missing credentials")
	case token == f.token:
		return f.principal, nil
	default:
		return nil, domain.ErrAuthentication("invalid credentials")
	}
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		token:     "valid-key-123",
		principal: &domain.Principal{Name: "alice", Roles: []domain.Role{domain.RoleAdmin}},
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	provider := newFakeAuth()

	var got *domain.Principal
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	wrapped := AuthMiddleware(provider)(handler)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer valid-key-123")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got == nil || got.Name != "alice" {
		t.Errorf("Expected principal alice in context, got %+v", got)
	}
	if provider.seen != "valid-key-123" {
		t.Errorf("Bearer prefix not stripped, provider saw %q", provider.seen)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	wrapped := AuthMiddleware(newFakeAuth())(handler)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if handlerCalled {
		t.Error("Handler should not be called with an invalid token")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON error body, got Content-Type %q", ct)
	}
}

func TestAuthMiddleware_MissingAuthHeader(t *testing.T) {
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	wrapped := AuthMiddleware(newFakeAuth())(handler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if handlerCalled {
		t.Error("Handler should not be called without credentials")
	}
}

func TestAuthMiddleware_Anonymous(t *testing.T) {
	provider := newFakeAuth()
	provider.anonymous = &domain.Principal{Name: "anonymous", Roles: []domain.Role{domain.RoleGuest}}

	var got *domain.Principal
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetPrincipal(r.Context())
	})

	wrapped := AuthMiddleware(provider)(handler)
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if got == nil || !got.HasAnyRole(domain.RoleGuest) {
		t.Errorf("Expected anonymous guest principal, got %+v", got)
	}
}

func TestAuthMiddleware_APIKeyHeader(t *testing.T) {
	provider := newFakeAuth()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := AuthMiddleware(provider)(handler)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-API-Key", "valid-key-123")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestGetPrincipal_NotSet(t *testing.T) {
	if p := GetPrincipal(context.Background()); p != nil {
		t.Errorf("Expected nil, got %v", p)
	}
}

// =============================================================================
// LoggingMiddleware Tests
// =============================================================================

func TestLoggingMiddleware(t *testing.T) {
	var buf strings.Builder
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(handler)

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Chain RequestIDMiddleware -> LoggingMiddleware -> handler
	wrapped := RequestIDMiddleware(LoggingMiddleware(logger)(testHandler))

	req := httptest.NewRequest("GET", "/test-path", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	output := buf.String()

	// Verify both start and completion logs are present
	if !strings.Contains(output, "request started") {
		t.Error("Expected 'request started' in log output")
	}
	if !strings.Contains(output, "request completed") {
		t.Error("Expected 'request completed' in log output")
	}
	if !strings.Contains(output, "/test-path") {
		t.Error("Expected path in log output")
	}
}

func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusForbidden, "level=WARN"},
		{http.StatusInternalServerError, "level=ERROR"},
	}

	for _, tt := range tests {
		var buf strings.Builder
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

		wrapped := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte("body"))
		}))
		wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

		output := buf.String()
		if strings.Contains(output, "request started") {
			t.Errorf("status %d: request start should log at debug", tt.status)
		}
		if !strings.Contains(output, tt.wantLevel) || !strings.Contains(output, "bytes=4") {
			t.Errorf("status %d: unexpected log line %s", tt.status, output)
		}
	}
}

func TestAddLogField(t *testing.T) {
	var buf strings.Builder
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(handler)

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "custom_field", "custom_value")
		w.WriteHeader(http.StatusOK)
	})

	wrapped := LoggingMiddleware(logger)(testHandler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	output := buf.String()
	if !strings.Contains(output, "custom_field") || !strings.Contains(output, "custom_value") {
		t.Errorf("Expected custom field in log output, got: %s", output)
	}
}

func TestAddLogField_EmptyValue(t *testing.T) {
	var buf strings.Builder
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(handler)

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "empty_field", "")
		w.WriteHeader(http.StatusOK)
	})

	wrapped := LoggingMiddleware(logger)(testHandler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	output := buf.String()
	// Empty values should not be added
	if strings.Contains(output, "empty_field") {
		t.Errorf("Empty field should not be in log output, got: %s", output)
	}
}

func TestAddLogField_NoContext(t *testing.T) {
	// Should not panic when called with a context that doesn't have log fields
	ctx := context.Background()
	AddLogField(ctx, "key", "value") // Should be a no-op
}

func TestAddError(t *testing.T) {
	var buf strings.Builder
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(handler)

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddError(r.Context(), errors.New("test error message"))
		w.WriteHeader(http.StatusInternalServerError)
	})

	wrapped := LoggingMiddleware(logger)(testHandler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	output := buf.String()
	if !strings.Contains(output, "error") || !strings.Contains(output, "test error message") {
		t.Errorf("Expected error in log output, got: %s", output)
	}
}

func TestAddError_Nil(t *testing.T) {
	// Should not panic when called with nil error
	ctx := context.Background()
	AddError(ctx, nil) // Should be a no-op
}

// =============================================================================
// Server Tests
// =============================================================================

func TestServer_ProtectedRoutes(t *testing.T) {
	s := New(Options{Auth: newFakeAuth()}, slog.New(slog.NewTextHandler(&strings.Builder{}, nil)))
	s.Router.Get("/open", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.Protected("/closed", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		path       string
		token      string
		wantStatus int
	}{
		{"/open", "", http.StatusOK},
		{"/closed", "", http.StatusUnauthorized},
		{"/closed", "valid-key-123", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path+"/"+tt.token, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			s.Router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.wantStatus)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("Expected X-Request-ID header")
			}
		})
	}
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	s := New(Options{}, nil)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
