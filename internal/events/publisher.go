package events

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/minutelabs/minuted/internal/config"
)

// Publisher wraps a NATS connection with run lifecycle helpers. All
// methods are nil-safe so callers can hold a nil *Publisher when the
// bus is disabled.
type Publisher struct {
	conn *nats.Conn
	log  *slog.Logger
}

// Connect establishes the bus connection. Returns (nil, nil) when the
// bus is disabled in config.
func Connect(cfg config.BusConfig, log *slog.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("no NATS servers configured")
	}

	options := []nats.Option{
		nats.Name("minuted"),
		nats.Timeout(time.Duration(cfg.ConnectTimeout) * time.Millisecond),
	}
	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	if cfg.TLSInsecure {
		options = append(options, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}

	url := strings.Join(cfg.Servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info("connected to NATS", slog.String("servers", url))
	return &Publisher{conn: conn, log: log.With("component", "events")}, nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.log.Info("closing NATS connection")
	p.conn.Drain()
	p.conn.Close()
}

// Healthy reports whether the connection is live.
func (p *Publisher) Healthy() bool {
	return p != nil && p.conn != nil && p.conn.Status() == nats.CONNECTED
}

func (p *Publisher) publish(subject string, msg any) {
	if p == nil || p.conn == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Warn("marshal event failed", slog.String("subject", subject), slog.String("error", err.Error()))
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn("publish failed", slog.String("subject", subject), slog.String("error", err.Error()))
	}
}

func (p *Publisher) RunStarted(msg RunStarted)             { p.publish(SubjectRunStarted, msg) }
func (p *Publisher) ChunkTranscribed(msg ChunkTranscribed) { p.publish(SubjectRunChunk, msg) }
func (p *Publisher) ChunkMerged(msg ChunkMerged)           { p.publish(SubjectRunMerge, msg) }
func (p *Publisher) RunCompleted(msg RunCompleted)         { p.publish(SubjectRunCompleted, msg) }
