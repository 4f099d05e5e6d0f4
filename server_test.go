package tiller

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/tiller/core"
	"pkt.systems/tiller/httpapi"
	"pkt.systems/tiller/schema"
)

type nullProvider struct{}

func (nullProvider) Open(context.Context, core.OpenStreamRequest) (core.EventStream, error) {
	return nil, schema.ErrUpstreamUnavailable
}

func testServerConfig(t *testing.T) ServerConfig {
	t.Helper()
	return ServerConfig{
		Service: schema.ServiceConfig{StateDir: t.TempDir()},
		HTTP: httpapi.Config{
			Addr:          "127.0.0.1:0",
			SessionCookie: "tiller_session",
		},
		Auth: AuthConfig{UserFile: filepath.Join(t.TempDir(), "users.json")},
	}
}

func TestNewRequiresStreamProvider(t *testing.T) {
	_, err := New(testServerConfig(t), ServerDeps{})
	if err == nil {
		t.Fatalf("expected error without stream provider")
	}
}

func TestServerStartStop(t *testing.T) {
	srv, err := New(testServerConfig(t), ServerDeps{
		ServiceDeps: core.ServiceDeps{StreamProvider: nullProvider{}},
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Fatalf("expected second start to fail")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := srv.Wait(); err != nil {
		t.Fatalf("wait after stop: %v", err)
	}
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	srv, err := New(testServerConfig(t), ServerDeps{
		ServiceDeps: core.ServiceDeps{StreamProvider: nullProvider{}},
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
}
