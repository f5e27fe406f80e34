package notify

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

const (
	exchangeName = "bibliotech.notifications"
	exchangeType = "topic"

	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
	confirmTimeout = 5 * time.Second
)

// AMQPNotifier publishes events to a topic exchange with the event type as
// the routing key. A separate mailer consumes them.
type AMQPNotifier struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	confirms chan amqp.Confirmation
	// Confirms arrive in publish order, so publishes are serialized.
	mu sync.Mutex
}

func NewAMQPNotifier(url string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to RabbitMQ")
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to open channel")
	}

	err = channel.ExchangeDeclare(
		exchangeName,
		exchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, errors.Wrap(err, "failed to declare exchange")
	}

	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, errors.Wrap(err, "failed to enable publisher confirms")
	}

	return &AMQPNotifier{
		conn:     conn,
		channel:  channel,
		confirms: channel.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.WithStack(err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	log := logger.FromContext(ctx)
	backoff := initialBackoff
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff = nextBackoff(backoff)
			}
		}

		err := n.channel.PublishWithContext(ctx, exchangeName, event.Type, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    event.ID,
			Body:         body,
			Headers:      amqp.Table{"event_type": event.Type},
		})
		if err != nil {
			lastErr = errors.WithStack(err)
			log.Err(err).Warn("publish failed, retrying", logger.Data{"attempt": attempt + 1, "event_id": event.ID})
			continue
		}

		select {
		case confirm := <-n.confirms:
			if confirm.Ack {
				return nil
			}
			lastErr = errors.New("event not acknowledged")
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(confirmTimeout):
			lastErr = errors.New("confirmation timeout")
		}
		log.Err(lastErr).Warn("publish not confirmed, retrying", logger.Data{"attempt": attempt + 1, "event_id": event.ID})
	}

	return errors.Wrapf(lastErr, "failed to publish event after %d attempts", maxRetries)
}

func (n *AMQPNotifier) Close() error {
	if n.channel != nil {
		_ = n.channel.Close()
	}
	if n.conn != nil {
		return errors.WithStack(n.conn.Close())
	}
	return nil
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
