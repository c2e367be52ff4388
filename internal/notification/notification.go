package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const (
	// KindAccountOpened is emitted when a first login auto-registers an account.
	KindAccountOpened = "account_opened"
	// KindWithdrawalApproved is emitted after a withdrawal debit commits.
	KindWithdrawalApproved = "withdrawal_approved"
	// KindWithdrawalDenied is emitted when the minimum-balance gate refuses a withdrawal.
	KindWithdrawalDenied = "withdrawal_denied"
)

// Message describes a ledger event.
type Message struct {
	Kind       string            `json:"kind"`
	AccountID  string            `json:"account_id"`
	Body       string            `json:"body"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "account_id", message.AccountID, "body", message.Body)
	return nil
}

// Publisher is the subset of *nats.Conn used for delivery.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes JSON encoded messages on "<prefix>.<kind>".
type NATSNotifier struct {
	pub    Publisher
	prefix string
}

// NewNATSNotifier builds a notifier publishing through pub.
func NewNATSNotifier(pub Publisher, prefix string) *NATSNotifier {
	if prefix == "" {
		prefix = "wallet.events"
	}
	return &NATSNotifier{pub: pub, prefix: prefix}
}

// Send publishes the message.
func (n *NATSNotifier) Send(_ context.Context, message Message) error {
	if message.OccurredAt.IsZero() {
		message.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.pub.Publish(n.prefix+"."+message.Kind, payload); err != nil {
		return fmt.Errorf("publish %s: %w", message.Kind, err)
	}
	return nil
}

// Deliver sends the message and logs a failure instead of returning it;
// a lost notification never fails the ledger operation that produced it.
func Deliver(ctx context.Context, n Notifier, logger *slog.Logger, message Message) {
	if n == nil {
		return
	}
	if err := n.Send(ctx, message); err != nil && logger != nil {
		logger.Warn("notification failed", "kind", message.Kind, "account_id", message.AccountID, "error", err)
	}
}
