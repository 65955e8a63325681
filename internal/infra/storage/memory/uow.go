package memory

import (
	"context"

	appoutbox "hostal/internal/app/outbox"
	"hostal/internal/app/uow"
	domainchat "hostal/internal/domain/chat"
)

// Factory hands out units of work over the shared in-memory stores. There is
// no real transaction: writes land immediately and rollback is a no-op, which
// is acceptable for development and tests.
type Factory struct {
	conversations *ConversationRepository
	messages      *MessageLog
	outbox        *OutboxStore
}

func NewFactory() *Factory {
	return &Factory{
		conversations: NewConversationRepository(),
		messages:      NewMessageLog(),
		outbox:        NewOutboxStore(),
	}
}

func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	return &Unit{factory: f}, nil
}

// Conversations exposes the underlying store for seeding and assertions.
func (f *Factory) Conversations() *ConversationRepository { return f.conversations }

// Messages exposes the underlying log for seeding and assertions.
func (f *Factory) Messages() *MessageLog { return f.messages }

// Outbox exposes the collected event records.
func (f *Factory) Outbox() *OutboxStore { return f.outbox }

type Unit struct {
	factory *Factory
}

func (u *Unit) Conversations() domainchat.ConversationRepository { return u.factory.conversations }

func (u *Unit) Messages() domainchat.MessageLog { return u.factory.messages }

func (u *Unit) Outbox() appoutbox.Outbox { return u.factory.outbox }

func (u *Unit) Context(ctx context.Context) context.Context { return ctx }

func (u *Unit) Commit(ctx context.Context) error { return nil }

func (u *Unit) Rollback(ctx context.Context) error { return nil }

var (
	_ uow.Factory    = (*Factory)(nil)
	_ uow.UnitOfWork = (*Unit)(nil)
)
