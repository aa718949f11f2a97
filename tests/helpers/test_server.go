package helpers

import (
	"testing"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tests"

	// Registers the app migrations so the test database gets the game schema.
	_ "github.com/knowsyapp/knowsy-server/pb_migrations"
)

// TestServer wraps a PocketBase test instance backed by a throwaway
// temporary database.
type TestServer struct {
	App core.App
	t   *testing.T
}

// NewTestServer creates a bootstrapped test PocketBase instance with the
// full game schema applied.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	app, err := tests.NewTestApp(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create test app: %v", err)
	}

	return &TestServer{
		App: app,
		t:   t,
	}
}

// Cleanup releases the test app resources.
func (ts *TestServer) Cleanup() {
	if app, ok := ts.App.(*tests.TestApp); ok {
		app.Cleanup()
	}
}
