package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "hostal/internal/app/outbox"
	"hostal/internal/app/uow"
	domainchat "hostal/internal/domain/chat"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	ConversationRepo domainchat.ConversationRepository
	MessageRepo      domainchat.MessageLog
	OutboxStore      appoutbox.Outbox
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:       session,
		conversations: f.ConversationRepo,
		messages:      f.MessageRepo,
		outbox:        f.OutboxStore,
	}, nil
}

type Unit struct {
	session mongo.Session

	conversations domainchat.ConversationRepository
	messages      domainchat.MessageLog
	outbox        appoutbox.Outbox
}

func (u *Unit) Conversations() domainchat.ConversationRepository {
	return u.conversations
}

func (u *Unit) Messages() domainchat.MessageLog {
	return u.messages
}

func (u *Unit) Outbox() appoutbox.Outbox {
	return u.outbox
}

// Context binds the Mongo session so downstream repository calls join the
// transaction.
func (u *Unit) Context(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

var (
	_ uow.Factory    = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
)
