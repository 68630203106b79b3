package queue

import (
	"context"
	"fmt"
	"time"

	"ragchat-be/internal/pkg/logger"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	jobStreamName     = "JOBS"
	jobStreamSubjects = "jobs.>"
)

// NatsQueue is a JetStream-backed transport. The JOBS stream persists
// submitted work across process restarts; consumers are durable so a
// restarted worker resumes where it left off.
type NatsQueue struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	log logger.ILogger
}

var _ Queue = &NatsQueue{}

func NewNatsQueue(url string, log logger.ILogger) (*NatsQueue, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      jobStreamName,
		Subjects:  []string{jobStreamSubjects},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		// NATS may not be ready yet; the stream may also already exist.
		log.Warn("queue", "failed to ensure JOBS stream", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return &NatsQueue{nc: nc, js: js, log: log}, nil
}

func (q *NatsQueue) Publish(ctx context.Context, subject string, payload []byte) error {
	if _, err := q.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// Subscribe attaches a durable consumer to the JOBS stream. Handler failure
// Naks the message for redelivery by the broker.
func (q *NatsQueue) Subscribe(subject string, handler Handler) error {
	ctx := context.Background()

	consumer, err := q.js.CreateOrUpdateConsumer(ctx, jobStreamName, jetstream.ConsumerConfig{
		Durable:       durableNameFor(subject),
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	_, err = consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(context.Background(), msg.Data()); err != nil {
			q.log.Error("queue", "handler failed", map[string]interface{}{
				"subject": msg.Subject(),
				"error":   err.Error(),
			})
			msg.Nak()
			return
		}
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	q.log.Info("queue", "subscribed", map[string]interface{}{
		"subject": subject,
	})
	return nil
}

func (q *NatsQueue) Close() error {
	if q.nc != nil {
		q.nc.Close()
	}
	return nil
}

func durableNameFor(subject string) string {
	out := make([]rune, 0, len(subject))
	for _, r := range subject {
		if r == '.' || r == '>' || r == '*' {
			r = '_'
		}
		out = append(out, r)
	}
	return "worker_" + string(out)
}
