package amqp

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/votingapp/ballot-box/pkg/ballotbox"
)

type amqpQueue struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   string

	publishMutex sync.Mutex

	mutex      sync.Mutex
	closed     bool
	deliveries <-chan amqp091.Delivery
}

func New(conn *amqp091.Connection, queue string) (ballotbox.Queue, error) {
	channel, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open channel")
	}

	_, err = channel.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to declare queue")
	}

	return &amqpQueue{
		conn:    conn,
		channel: channel,
		queue:   queue,
	}, nil
}

func (q *amqpQueue) Push(token string) error {
	if q.isClosed() {
		return ballotbox.ErrClosed
	}

	q.publishMutex.Lock()
	defer q.publishMutex.Unlock()

	return q.channel.Publish("", q.queue, false, false, amqp091.Publishing{
		ContentType: "text/plain",
		MessageId:   uuid.NewString(),
		Body:        []byte(token),
	})
}

func (q *amqpQueue) Pop() (string, error) {
	deliveries, err := q.deliveryChannel()
	if err != nil {
		return "", err
	}

	delivery, ok := <-deliveries
	if !ok {
		q.mutex.Lock()
		q.deliveries = nil
		closed := q.closed
		q.mutex.Unlock()

		if closed {
			return "", ballotbox.ErrClosed
		}

		return "", errors.New("delivery channel closed by broker")
	}

	return string(delivery.Body), nil
}

func (q *amqpQueue) Ping() error {
	if q.isClosed() {
		return ballotbox.ErrClosed
	}

	if q.conn.IsClosed() {
		return errors.New("connection is closed")
	}

	return nil
}

func (q *amqpQueue) Close() error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true

	if err := q.channel.Close(); err != nil {
		_ = q.conn.Close()

		return err
	}

	return q.conn.Close()
}

// deliveryChannel subscribes on first use. Delaying the subscription keeps
// push-only processes from being handed deliveries they would never consume.
func (q *amqpQueue) deliveryChannel() (<-chan amqp091.Delivery, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closed {
		return nil, ballotbox.ErrClosed
	}

	if q.deliveries != nil {
		return q.deliveries, nil
	}

	// Tokens are acknowledged on delivery, so a token handed to a consumer
	// is gone even if that consumer later fails to record it.
	deliveries, err := q.channel.Consume(q.queue, "", true, false, false, false, nil)
	if err != nil {
		return nil, err
	}

	q.deliveries = deliveries

	return q.deliveries, nil
}

func (q *amqpQueue) isClosed() bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return q.closed
}
