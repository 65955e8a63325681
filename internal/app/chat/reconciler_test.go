package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainchat "hostal/internal/domain/chat"
	"hostal/internal/infra/storage/memory"
)

func Test_ReconcileOnce_Repairs_Stale_Cache(t *testing.T) {
	req := require.New(t)
	factory := memory.NewFactory()
	ctx := context.Background()

	conversation, err := domainchat.NewConversation(domainchat.ConversationParams{
		ID: "c1", Participant1: "u1", Participant2: "u2",
	})
	req.NoError(err)
	req.NoError(factory.Conversations().Create(ctx, conversation))

	// A message landed but the cache write was lost.
	sentAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	message, err := domainchat.NewMessage(domainchat.MessageParams{
		ID: "m1", ConversationID: "c1", SenderID: "u1", Content: "hola", SentAt: sentAt,
	})
	req.NoError(err)
	req.NoError(factory.Messages().Append(ctx, message))

	reconciler := &Reconciler{UoW: factory}
	req.NoError(reconciler.ReconcileOnce(ctx))

	repaired, err := factory.Conversations().ByID(ctx, "c1")
	req.NoError(err)
	req.Equal("hola", repaired.LastMessagePreview)
	req.Equal(sentAt, repaired.LastMessageAt)
}

func Test_ReconcileOnce_Skips_Empty_And_Fresh_Conversations(t *testing.T) {
	req := require.New(t)
	factory := memory.NewFactory()
	ctx := context.Background()

	empty, err := domainchat.NewConversation(domainchat.ConversationParams{
		ID: "empty", Participant1: "u1", Participant2: "u2",
	})
	req.NoError(err)
	req.NoError(factory.Conversations().Create(ctx, empty))

	fresh, err := domainchat.NewConversation(domainchat.ConversationParams{
		ID: "fresh", Participant1: "u1", Participant2: "u3",
	})
	req.NoError(err)
	req.NoError(factory.Conversations().Create(ctx, fresh))

	sentAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	message, err := domainchat.NewMessage(domainchat.MessageParams{
		ID: "m1", ConversationID: "fresh", SenderID: "u1", Content: "hola", SentAt: sentAt,
	})
	req.NoError(err)
	req.NoError(factory.Messages().Append(ctx, message))
	req.NoError(factory.Conversations().TouchActivity(ctx, "fresh", "hola", sentAt))

	reconciler := &Reconciler{UoW: factory}
	req.NoError(reconciler.ReconcileOnce(ctx))

	got, err := factory.Conversations().ByID(ctx, "empty")
	req.NoError(err)
	req.True(got.LastMessageAt.IsZero())

	got, err = factory.Conversations().ByID(ctx, "fresh")
	req.NoError(err)
	req.Equal(sentAt, got.LastMessageAt)
}

func Test_ReconcileOnce_Never_Moves_Cache_Backwards(t *testing.T) {
	req := require.New(t)
	factory := memory.NewFactory()
	ctx := context.Background()

	conversation, err := domainchat.NewConversation(domainchat.ConversationParams{
		ID: "c1", Participant1: "u1", Participant2: "u2",
	})
	req.NoError(err)
	req.NoError(factory.Conversations().Create(ctx, conversation))

	sentAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	message, err := domainchat.NewMessage(domainchat.MessageParams{
		ID: "m1", ConversationID: "c1", SenderID: "u1", Content: "hola", SentAt: sentAt,
	})
	req.NoError(err)
	req.NoError(factory.Messages().Append(ctx, message))

	// Cache already ahead of the log, e.g. after an activity refresh.
	ahead := sentAt.Add(time.Hour)
	req.NoError(factory.Conversations().TouchActivity(ctx, "c1", "hola", ahead))

	reconciler := &Reconciler{UoW: factory}
	req.NoError(reconciler.ReconcileOnce(ctx))

	got, err := factory.Conversations().ByID(ctx, "c1")
	req.NoError(err)
	req.Equal(ahead, got.LastMessageAt)
}

func Test_Reconciler_Requires_Factory(t *testing.T) {
	req := require.New(t)
	reconciler := &Reconciler{}
	req.ErrorIs(reconciler.ReconcileOnce(context.Background()), ErrReconcilerNotConfigured)
	req.ErrorIs(reconciler.Run(context.Background()), ErrReconcilerNotConfigured)
}
