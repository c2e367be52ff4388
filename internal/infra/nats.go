package infra

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NewNATSConn connects the ledger event publisher. Reconnects are unlimited;
// disconnects and reconnects are logged.
func NewNATSConn(url, name string, timeout time.Duration, logger *slog.Logger) (*nats.Conn, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if timeout > 0 {
		opts = append(opts, nats.Timeout(timeout))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}
