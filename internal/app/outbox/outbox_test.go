package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hostal/internal/domain/shared/events"
)

type stubEvent struct {
	name string
	at   time.Time
}

func (e stubEvent) EventName() string     { return e.name }
func (e stubEvent) AggregateID() string   { return "agg-1" }
func (e stubEvent) OccurredAt() time.Time { return e.at }

type collectingBox struct {
	records []EventRecord
}

func (b *collectingBox) Add(ctx context.Context, record EventRecord) error {
	b.records = append(b.records, record)
	return nil
}

func Test_JSONEventEncoder_Fills_Record(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	encoder := JSONEventEncoder{IDGenerator: func() string { return "fixed-id" }}

	record, err := encoder.Encode(stubEvent{name: "chat.message_sent", at: at})
	req.NoError(err)
	req.Equal("fixed-id", record.ID)
	req.Equal("chat.message_sent", record.Name)
	req.Equal("agg-1", record.Aggregate)
	req.Equal(at, record.OccurredAt)
	req.NotEmpty(record.Payload)
}

func Test_RecordDomainEvents_Nil_Box_Is_Noop(t *testing.T) {
	req := require.New(t)
	err := RecordDomainEvents(context.Background(), nil, nil, []events.DomainEvent{stubEvent{name: "x"}})
	req.NoError(err)
}

func Test_RecordDomainEvents_Encodes_All(t *testing.T) {
	req := require.New(t)
	box := &collectingBox{}
	evs := []events.DomainEvent{
		stubEvent{name: "chat.conversation_started"},
		stubEvent{name: "chat.message_sent"},
	}
	req.NoError(RecordDomainEvents(context.Background(), box, nil, evs))
	req.Len(box.records, 2)
	req.Equal("chat.conversation_started", box.records[0].Name)
}
