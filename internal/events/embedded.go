package events

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/minutelabs/minuted/internal/config"
)

// EmbeddedServer wraps a NATS server instance so a single binary can
// run without an external broker.
type EmbeddedServer struct {
	ns  *server.Server
	log *slog.Logger
}

// StartEmbedded creates and starts an embedded NATS server. Returns
// (nil, nil) unless the bus is enabled and embedded mode is on; a
// disabled bus must never bind a listener.
func StartEmbedded(cfg config.BusConfig, log *slog.Logger) (*EmbeddedServer, error) {
	if !cfg.Enabled || !cfg.Embedded {
		return nil, nil
	}

	opts := &server.Options{
		Host: "0.0.0.0",
		Port: cfg.Port,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start within 5 seconds")
	}

	log.Info("embedded NATS server started", slog.Int("port", cfg.Port))
	return &EmbeddedServer{ns: ns, log: log}, nil
}

// Shutdown gracefully stops the embedded server.
func (e *EmbeddedServer) Shutdown() {
	if e == nil || e.ns == nil {
		return
	}
	e.log.Info("shutting down embedded NATS server")
	e.ns.Shutdown()
	e.ns.WaitForShutdown()
}
