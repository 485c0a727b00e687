// README: Kafka publisher for ride transition events.
package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"campusride/internal/modules/ride"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	writer MessageWriter
}

func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{writer: w}
}

// Record implements ride.EventSink. Events are keyed by ride id so one
// ride's history stays on one partition.
func (p *Publisher) Record(ctx context.Context, e ride.TransitionEvent) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.RideID), Value: b})
}
