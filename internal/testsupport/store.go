package testsupport

import (
	"context"
	"testing"

	"uplink/internal/config"
	"uplink/internal/journal"
)

// MustOpenStore opens a journal.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRecording inserts a detected recording for tests using the provided store.
func NewRecording(t testing.TB, store *journal.Store, cycleID, baseName, sourcePath string) *journal.Recording {
	t.Helper()

	rec, err := store.NewRecording(context.Background(), cycleID, baseName, sourcePath, 0)
	if err != nil {
		t.Fatalf("store.NewRecording: %v", err)
	}
	return rec
}
