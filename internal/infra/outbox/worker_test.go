package outbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Worker_Topic_Derivation(t *testing.T) {
	req := require.New(t)

	w := &Worker{}
	req.Equal("chat.events.v1", w.topicFor("chat.message_sent"))
	req.Equal("chat.events.v1", w.topicFor("chat"))

	w.TopicPrefix = "staging."
	req.Equal("staging.chat.events.v1", w.topicFor("chat.conversation_started"))
}

func Test_Worker_Requires_Dependencies(t *testing.T) {
	req := require.New(t)
	w := &Worker{}
	req.ErrorIs(w.Run(context.Background()), ErrWorkerNotConfigured)
}
