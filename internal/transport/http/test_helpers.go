package http

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/usersaynoso/shadowme-server/internal/auth"
	"github.com/usersaynoso/shadowme-server/internal/service/friends"
	"github.com/usersaynoso/shadowme-server/internal/service/sessions"
	"github.com/usersaynoso/shadowme-server/internal/store"
	"github.com/usersaynoso/shadowme-server/internal/store/sqlite"
)

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

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

// createTestServices wires the full service set over one store.
func createTestServices(t *testing.T, st store.Store, notifier sessions.Notifier) Services {
	t.Helper()

	logger := zerolog.Nop()
	return Services{
		Auth:     createTestAuthService(t, st, "test-secret"),
		Friends:  friends.New(st, &logger),
		Sessions: sessions.New(st, notifier, &logger),
	}
}
