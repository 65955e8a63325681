package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hostal/internal/app/uow"
	domainchat "hostal/internal/domain/chat"
)

var ErrReconcilerNotConfigured = errors.New("chat: reconciler missing unit of work factory")

// Reconciler periodically recomputes the last-message cache of active
// conversations from the message log. The cache is a derived projection; the
// log stays the source of truth, so a crash between append and cache refresh
// only leaves a window this pass closes.
type Reconciler struct {
	UoW      uow.Factory
	Interval time.Duration
	PageSize int
	Logger   *slog.Logger
}

func (r *Reconciler) Run(ctx context.Context) error {
	if r.UoW == nil {
		return ErrReconcilerNotConfigured
	}
	ticker := time.NewTicker(r.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.ReconcileOnce(ctx); err != nil {
				if r.Logger != nil {
					r.Logger.Warn("activity reconcile pass failed", "error", err)
				}
			}
		}
	}
}

// ReconcileOnce walks every active conversation and repairs caches that lag
// behind the log. Safe to run concurrently with live traffic: the touch is
// monotonic, so a fresher write always wins.
func (r *Reconciler) ReconcileOnce(ctx context.Context) error {
	if r.UoW == nil {
		return ErrReconcilerNotConfigured
	}
	page := domainchat.Page{Size: r.pageSize()}
	for {
		repaired, fetched, err := r.reconcilePage(ctx, page)
		if err != nil {
			return err
		}
		if repaired > 0 && r.Logger != nil {
			r.Logger.Info("conversation activity repaired", "count", repaired, "page", page.Number)
		}
		if fetched < page.Size {
			return nil
		}
		page.Number++
	}
}

func (r *Reconciler) reconcilePage(ctx context.Context, page domainchat.Page) (repaired, fetched int, err error) {
	unit, err := r.UoW.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return 0, 0, err
	}
	ctx = unit.Context(ctx)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	conversations, err := unit.Conversations().ListActive(ctx, page)
	if err != nil {
		return 0, 0, err
	}
	for _, conversation := range conversations {
		latest, err := unit.Messages().Latest(ctx, conversation.ID)
		if errors.Is(err, domainchat.ErrMessageNotFound) {
			continue
		}
		if err != nil {
			return 0, 0, err
		}
		if !cacheStale(conversation, latest) {
			continue
		}
		preview := domainchat.Preview(latest.Content)
		if err := unit.Conversations().TouchActivity(ctx, conversation.ID, preview, latest.SentAt); err != nil {
			return 0, 0, err
		}
		repaired++
	}
	if err := unit.Commit(ctx); err != nil {
		return 0, 0, err
	}
	committed = true
	return repaired, len(conversations), nil
}

func cacheStale(conversation *domainchat.Conversation, latest *domainchat.Message) bool {
	if conversation.LastMessageAt.Before(latest.SentAt) {
		return true
	}
	return conversation.LastMessageAt.Equal(latest.SentAt) &&
		conversation.LastMessagePreview != domainchat.Preview(latest.Content)
}

func (r *Reconciler) interval() time.Duration {
	if r.Interval <= 0 {
		return 30 * time.Second
	}
	return r.Interval
}

func (r *Reconciler) pageSize() int {
	if r.PageSize <= 0 {
		return 100
	}
	return r.PageSize
}
