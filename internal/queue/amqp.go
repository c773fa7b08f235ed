package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// AMQPQueue maps each topic to a durable RabbitMQ queue of the same name.
type AMQPQueue struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	pub      *amqp.Channel
	declared map[string]bool
	log      *zap.Logger
}

func NewAMQPQueue(url string, log *zap.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return &AMQPQueue{conn: conn, pub: ch, declared: map[string]bool{}, log: log}, nil
}

func declare(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	return err
}

func (q *AMQPQueue) Publish(ctx context.Context, topic string, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.declared[topic] {
		if err := declare(q.pub, topic); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", topic, err)
		}
		q.declared[topic] = true
	}
	return q.pub.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Subscribe consumes topic on its own channel with manual acks. A failed job
// is requeued once, then dropped.
func (q *AMQPQueue) Subscribe(topic string, handler Handler) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declare(ch, topic); err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare queue %s: %w", topic, err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return err
	}
	msgs, err := ch.Consume(topic, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for d := range msgs {
			var job Job
			if err := json.Unmarshal(d.Body, &job); err != nil {
				q.log.Warn("invalid job", zap.String("topic", topic), zap.Error(err))
				d.Ack(false)
				continue
			}
			if err := handler(context.Background(), job); err != nil {
				q.log.Error("job failed",
					zap.String("queue_item_id", job.QueueItemID.String()),
					zap.Bool("redelivered", d.Redelivered),
					zap.Error(err),
				)
				if !d.Redelivered {
					d.Nack(false, true)
					continue
				}
			}
			d.Ack(false)
		}
		q.log.Info("consumer stopped", zap.String("topic", topic))
	}()
	return nil
}

func (q *AMQPQueue) Close() error {
	if q.pub != nil {
		q.pub.Close()
	}
	return q.conn.Close()
}
