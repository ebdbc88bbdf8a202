package events

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/minutelabs/minuted/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConnectDisabledReturnsNil(t *testing.T) {
	p, err := Connect(config.BusConfig{Enabled: false}, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil publisher when bus is disabled")
	}
}

func TestConnectEnabledRequiresServers(t *testing.T) {
	_, err := Connect(config.BusConfig{Enabled: true}, newLogger())
	if err == nil {
		t.Fatal("expected error when no servers configured")
	}
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher
	p.RunStarted(RunStarted{RunID: "r"})
	p.ChunkTranscribed(ChunkTranscribed{RunID: "r"})
	p.ChunkMerged(ChunkMerged{RunID: "r"})
	p.RunCompleted(RunCompleted{RunID: "r"})
	p.Close()
	if p.Healthy() {
		t.Fatal("nil publisher should not report healthy")
	}
}

func TestStartEmbeddedDisabledReturnsNil(t *testing.T) {
	s, err := StartEmbedded(config.BusConfig{Embedded: false}, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Fatal("expected nil server when embedded mode is off")
	}
	s.Shutdown()
}

func TestStartEmbeddedRequiresBusEnabled(t *testing.T) {
	// The default config has the bus disabled with embedded mode on; a
	// disabled bus must not bind a broker port.
	cfg := config.Default().Bus
	cfg.Port = 42422
	if !cfg.Embedded || cfg.Enabled {
		t.Fatalf("unexpected default bus config: %+v", cfg)
	}

	s, err := StartEmbedded(cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		s.Shutdown()
		t.Fatal("expected nil server when bus is disabled")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	if conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		conn.Close()
		t.Fatalf("nothing should be listening on %s", addr)
	}
}
