package persist

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"pkt.systems/tiller/schema"
)

func TestStoreLoadMissing(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	_, ok, err := store.Load("alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatalf("expected missing snapshot")
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snapshot := UserSnapshot{
		Order: []schema.SessionID{"sess1"},
		Sessions: []SessionSnapshot{
			{
				ID:        "sess1",
				Name:      "demo",
				TargetURL: "https://example.com",
				Transcript: TranscriptSnapshot{
					Lines:        []string{"hi"},
					ScrollOffset: 0,
				},
				Actions: []schema.ActionSnapshot{
					{
						Action: schema.ProposedAction{
							ID:        "act1",
							Kind:      schema.ActionKindAPI,
							Title:     "Click go",
							Safety:    schema.SafetyHigh,
							APICall:   &schema.CallSpec{Name: "click", RawArgs: "sel: '#go'"},
							CreatedAt: created,
						},
						Status: schema.ActionStatus{State: schema.StateSucceeded},
					},
				},
			},
		},
		Active: "sess1",
	}
	if err := store.Save("alice", snapshot); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load("alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatalf("expected snapshot to exist")
	}
	if !reflect.DeepEqual(snapshot, got) {
		t.Fatalf("snapshot mismatch:\nwant: %+v\ngot:  %+v", snapshot, got)
	}
}

func TestStoreLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	path := filepath.Join(dir, "alice.json")
	if err := os.WriteFile(path, []byte("{not-json"), 0o600); err != nil {
		t.Fatalf("write bad json: %v", err)
	}
	if _, _, err := store.Load("alice"); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}
