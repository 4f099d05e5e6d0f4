package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"pkt.systems/tiller/core"
	"pkt.systems/tiller/internal/appconfig"
	"pkt.systems/tiller/schema"
)

func TestClientRejectsInvalidURL(t *testing.T) {
	if _, err := NewClient(appconfig.UpstreamConfig{URL: "not-a-url"}, nil); err == nil {
		t.Fatalf("expected error for invalid url")
	}
	if _, err := NewClient(appconfig.UpstreamConfig{URL: ""}, nil); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestClientOpenStreamsEvents(t *testing.T) {
	var gotPayload openPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("unexpected authorization header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"kind\":\"run_started\",\"run_id\":\"r1\"}\n\n")
		fmt.Fprint(w, "data: {\"kind\":\"run_completed\"}\n\n")
	}))
	defer server.Close()

	client, err := NewClient(appconfig.UpstreamConfig{URL: server.URL, Token: "sekrit"}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	stream, err := client.Open(context.Background(), core.OpenStreamRequest{
		UserID:    "alice",
		SessionID: "s1",
		RunID:     "run-1",
		Prompt:    "do the thing",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = stream.Close() }()

	first, err := stream.Next(context.Background())
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if first.Kind != schema.EventRunStarted {
		t.Fatalf("unexpected first event: %+v", first)
	}
	second, err := stream.Next(context.Background())
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if second.Kind != schema.EventRunCompleted {
		t.Fatalf("unexpected second event: %+v", second)
	}
	if _, err := stream.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF at stream end, got %v", err)
	}

	if gotPayload.Prompt != "do the thing" || gotPayload.RunID != "run-1" {
		t.Fatalf("unexpected payload: %+v", gotPayload)
	}
}

func TestClientOpenNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(appconfig.UpstreamConfig{URL: server.URL}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Open(context.Background(), core.OpenStreamRequest{RunID: "r"}); err == nil {
		t.Fatalf("expected error for non-OK status")
	}
}
