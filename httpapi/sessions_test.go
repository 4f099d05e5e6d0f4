package httpapi

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSessionStoreExpiry(t *testing.T) {
	store := newSessionStore(50*time.Millisecond, "")
	token, entry := store.create("alice")
	if token == "" || entry.userID != "alice" {
		t.Fatalf("unexpected session: token=%q entry=%+v", token, entry)
	}
	if _, ok := store.get(token); !ok {
		t.Fatalf("expected live session")
	}
	time.Sleep(70 * time.Millisecond)
	if _, ok := store.get(token); ok {
		t.Fatalf("expected expired session")
	}
	if _, ok := store.get(token); ok {
		t.Fatalf("expired session must stay gone")
	}
}

func TestSessionStoreDelete(t *testing.T) {
	store := newSessionStore(time.Hour, "")
	token, _ := store.create("alice")
	store.delete(token)
	if _, ok := store.get(token); ok {
		t.Fatalf("expected deleted session")
	}
	store.delete(token)
}

func TestSessionStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	store := newSessionStore(time.Hour, path)
	token, entry := store.create("alice")

	reloaded := newSessionStore(time.Hour, path)
	got, ok := reloaded.get(token)
	if !ok {
		t.Fatalf("expected persisted session")
	}
	if got.userID != "alice" || got.id != entry.id {
		t.Fatalf("unexpected reloaded session: %+v", got)
	}
}

func TestSessionStoreDropsExpiredOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := writeSessionFile(path, []sessionRecord{
		{Token: "t1", SessionID: "s1", UserID: "alice", ExpiresAt: time.Now().Add(-time.Hour)},
		{Token: "t2", SessionID: "s2", UserID: "alice", ExpiresAt: time.Now().Add(time.Hour)},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := newSessionStore(time.Hour, path)
	if _, ok := store.get("t1"); ok {
		t.Fatalf("expired record must not load")
	}
	if _, ok := store.get("t2"); !ok {
		t.Fatalf("live record must load")
	}
}
