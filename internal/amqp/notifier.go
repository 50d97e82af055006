package amqp

import (
	"context"
	"log/slog"

	"financas/internal/core"
	"financas/internal/gateway"
)

// Publisher is the subset of Client the notifier needs.
type Publisher interface {
	PublishChange(ctx context.Context, msg *ChangeMessage) error
}

// ChangeNotifier publishes a ChangeMessage for every committed batch.
// Publishing failures are logged; the write itself already succeeded.
type ChangeNotifier struct {
	pub    Publisher
	logger *slog.Logger
}

var _ gateway.Notifier = (*ChangeNotifier)(nil)

func NewChangeNotifier(pub Publisher, logger *slog.Logger) *ChangeNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeNotifier{pub: pub, logger: logger}
}

func (n *ChangeNotifier) Changed(ctx context.Context, userID string, collections []core.Collection) {
	if err := n.pub.PublishChange(ctx, NewChangeMessage(userID, collections)); err != nil {
		n.logger.WarnContext(ctx, "Failed to publish change message", "user_id", userID, "error", err)
	}
}
