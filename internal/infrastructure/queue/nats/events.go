package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Events receives corpus-rebuilt notifications published by the ingestion
// pipeline. The engine reacts by swapping in a fresh snapshot.
type Events struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
	sub     *nats.Subscription
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
}

func New(url, subject string, logger *slog.Logger) (*Events, error) {
	return NewWithOptions(url, subject, logger, Options{})
}

func NewWithOptions(url, subject string, logger *slog.Logger, options Options) (*Events, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("backlog-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Events{
		conn:    conn,
		subject: subject,
		logger:  logger,
	}, nil
}

// SubscribeRebuilt registers the handler and returns; delivery happens on the
// connection's callback goroutine.
func (e *Events) SubscribeRebuilt(ctx context.Context, handler func(context.Context) error) error {
	sub, err := e.conn.Subscribe(e.subject, func(*nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		if err := handler(ctx); err != nil {
			e.logger.Warn("corpus_rebuild_handler_failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := e.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	e.sub = sub
	return nil
}

func (e *Events) Close() {
	if e.sub != nil {
		if err := e.sub.Drain(); err != nil {
			e.logger.Warn("nats_drain_failed", "error", err)
		}
	}
	if e.conn != nil {
		e.conn.Close()
	}
}
