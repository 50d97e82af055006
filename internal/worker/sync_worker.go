package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"financas/internal/amqp"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/sheets"
	"financas/internal/storage"
)

// Reader is the part of the store the worker reads from.
type Reader interface {
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	ListGroups(ctx context.Context, userID string) ([]core.Group, error)
	GetUser(ctx context.Context, id string) (storage.UserRecord, error)
}

// Consumer delivers change messages until ctx ends.
type Consumer interface {
	ConsumeChanges(ctx context.Context, handler func(context.Context, *amqp.ChangeMessage) error) error
}

// SyncWorker mirrors each user's ledger into a spreadsheet tab whenever a
// change message says their transactions or groups moved.
type SyncWorker struct {
	store  Reader
	sheets sheets.LedgerWriter
	logger *slog.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	lastErr error
}

func NewSyncWorker(store Reader, writer sheets.LedgerWriter, logger *slog.Logger) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{store: store, sheets: writer, logger: logger}
}

// HandleChangeMessage processes a single change message from AMQP.
// Messages that do not touch the ledger are acknowledged without work.
func (w *SyncWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	if !msg.Touches(core.Transactions) && !msg.Touches(core.Groups) {
		w.logger.DebugContext(ctx, "Ignoring change message", "user_id", msg.UserID, "collections", msg.Collections)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing change message",
		"user_id", msg.UserID,
		"collections", msg.Collections)

	return w.SyncUser(ctx, msg.UserID)
}

// SyncUser rewrites the ledger tab of one user from the store's current
// state. An unknown user is logged and skipped, since retrying cannot help.
func (w *SyncWorker) SyncUser(ctx context.Context, userID string) error {
	user, err := w.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		w.logger.WarnContext(ctx, "Skipping sync for unknown user", "user_id", userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	ts, err := w.store.ListTransactions(ctx, userID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	groups, err := w.store.ListGroups(ctx, userID)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}

	tab := sheets.TabName(userID, user.Email)
	rows := sheets.LedgerRows(ts, core.NewGroupIndex(groups))
	if err := w.sheets.WriteLedger(ctx, tab, rows); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully synced ledger",
		applog.FieldUserID, userID,
		applog.FieldOperation, applog.OpSync,
		applog.FieldSheetTab, tab,
		"transactions", len(ts))
	return nil
}

// Start begins consuming change messages. Returns an error if already
// running.
func (w *SyncWorker) Start(ctx context.Context, consumer Consumer) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.doneCh = make(chan struct{})
	w.lastErr = nil
	w.mu.Unlock()

	go w.run(runCtx, consumer)

	w.logger.InfoContext(ctx, "Sync worker started")
	return nil
}

func (w *SyncWorker) run(ctx context.Context, consumer Consumer) {
	err := consumer.ConsumeChanges(ctx, w.HandleChangeMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.ErrorContext(ctx, "Change consumer exited", "error", err)
	}

	w.mu.Lock()
	w.running = false
	w.lastErr = err
	done := w.doneCh
	w.mu.Unlock()
	close(done)
}

// Stop gracefully stops the worker and waits for the consumer to return.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	cancel, done := w.cancel, w.doneCh
	w.mu.Unlock()

	cancel()

	select {
	case <-done:
		w.logger.InfoContext(ctx, "Sync worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Sync worker stop timed out")
		return ctx.Err()
	}
}

// Done is closed once the consumer started by Start has returned.
func (w *SyncWorker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doneCh
}

// Err returns what the last consumer run ended with.
func (w *SyncWorker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// IsRunning returns whether the worker is currently consuming.
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
