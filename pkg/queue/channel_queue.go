package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ChannelQueue is an in-process transport backed by watermill's GoChannel.
// Suitable for single-node deployments and tests; messages do not survive
// a restart (queued job rows in the database cover recovery).
type ChannelQueue struct {
	pubSub *gochannel.GoChannel
}

var _ Queue = &ChannelQueue{}

func NewChannelQueue() *ChannelQueue {
	return &ChannelQueue{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{},
			watermill.NewStdLogger(false, false),
		),
	}
}

func (q *ChannelQueue) Publish(ctx context.Context, subject string, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return q.pubSub.Publish(subject, msg)
}

func (q *ChannelQueue) Subscribe(subject string, handler Handler) error {
	messages, err := q.pubSub.Subscribe(context.Background(), subject)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			if err := handler(msg.Context(), msg.Payload); err != nil {
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}()

	return nil
}

func (q *ChannelQueue) Close() error {
	return q.pubSub.Close()
}
