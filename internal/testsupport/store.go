package testsupport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"vidshelf/internal/config"
	"vidshelf/internal/journal"
)

// MustOpenJournal opens the config's journal for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg.JournalPath())
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AppendNotification records a notification received at the given time.
func AppendNotification(t testing.TB, store *journal.Store, name, params string, at time.Time) journal.Entry {
	t.Helper()

	entry := journal.Entry{
		SessionID:  "test-session",
		Name:       name,
		Parameters: json.RawMessage(params),
		ReceivedAt: at,
	}
	id, err := store.Append(context.Background(), entry)
	if err != nil {
		t.Fatalf("store.Append: %v", err)
	}
	entry.ID = id
	return entry
}
