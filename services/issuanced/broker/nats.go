package broker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"chronicles/core/events"
	"chronicles/observability"
)

// NATSEmitter publishes committed issuance events to NATS. Each event goes
// to "<prefix>.<event type>" as the JSON form produced by events.Render.
type NATSEmitter struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// Connect dials url with automatic reconnection. Extra options are appended
// to the defaults.
func Connect(url, prefix string, logger *slog.Logger, opts ...nats.Option) (*NATSEmitter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "broker")
	defaults := []nats.Option{
		nats.Name("issuanced"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "chronicles"
	}
	return &NATSEmitter{conn: nc, prefix: prefix, logger: logger}, nil
}

// Subject returns the subject an event type is published on.
func (e *NATSEmitter) Subject(eventType string) string {
	return e.prefix + "." + eventType
}

// Emit implements events.Emitter. Publish failures are logged; the
// originating operation has already committed.
func (e *NATSEmitter) Emit(evt events.Event) {
	if e == nil || evt == nil {
		return
	}
	rendered := events.Render(evt)
	data, err := json.Marshal(rendered)
	if err != nil {
		e.logger.Error("marshal event", "type", rendered.Type, "error", err)
		return
	}
	err = e.conn.Publish(e.Subject(rendered.Type), data)
	observability.Events().RecordPublish(err)
	if err != nil {
		e.logger.Warn("publish event", "type", rendered.Type, "error", err)
	}
}

// Flush waits until published events reach the server.
func (e *NATSEmitter) Flush() error {
	return e.conn.Flush()
}

// Close drains pending publishes and closes the connection.
func (e *NATSEmitter) Close() error {
	if e == nil || e.conn == nil {
		return nil
	}
	if err := e.conn.Drain(); err != nil {
		e.conn.Close()
		return err
	}
	return nil
}
