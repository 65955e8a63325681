package uow

import (
	"context"

	appoutbox "hostal/internal/app/outbox"
	domainchat "hostal/internal/domain/chat"
)

// UnitOfWork coordinates the conversation store, the message log and the
// outbox inside one transaction boundary.
type UnitOfWork interface {
	Conversations() domainchat.ConversationRepository
	Messages() domainchat.MessageLog
	Outbox() appoutbox.Outbox

	// Context binds the transaction to ctx so repository calls performed
	// with the returned context join it. Implementations without real
	// transactions return ctx unchanged.
	Context(ctx context.Context) context.Context

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Factory starts unit of work instances.
type Factory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
