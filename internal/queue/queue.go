// internal/queue/queue.go
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// SendQueue carries accepted campaign ids from the API to the worker.
const SendQueue = "campaign_sends"

// SendJob is the wire payload for one accepted campaign send.
type SendJob struct {
	CampaignID int64 `json:"campaign_id"`
}

// Publisher is the side the API uses.
type Publisher interface {
	PublishSend(campaignID int64) error
}

// AMQPQueue wraps a RabbitMQ connection with the send queue declared.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  zerolog.Logger
}

func Dial(url string, log zerolog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		SendQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	return &AMQPQueue{conn: conn, ch: ch, log: log}, nil
}

func (q *AMQPQueue) PublishSend(campaignID int64) error {
	body, err := json.Marshal(SendJob{CampaignID: campaignID})
	if err != nil {
		return err
	}
	return q.ch.Publish(
		"",
		SendQueue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Consume delivers send jobs to handler until the channel closes. A handler
// error requeues the job once (first delivery only); a redelivered failure is
// dropped so a poisoned job cannot spin forever.
func (q *AMQPQueue) Consume(handler func(job SendJob) error) error {
	msgs, err := q.ch.Consume(
		SendQueue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	for d := range msgs {
		var job SendJob
		if err := json.Unmarshal(d.Body, &job); err != nil {
			q.log.Warn().Err(err).Msg("dropping malformed send job")
			d.Ack(false)
			continue
		}

		if err := handler(job); err != nil {
			if !d.Redelivered {
				q.log.Warn().Err(err).Int64("campaign_id", job.CampaignID).Msg("send job failed, requeueing")
				d.Nack(false, true)
				continue
			}
			q.log.Error().Err(err).Int64("campaign_id", job.CampaignID).Msg("send job failed again, dropping")
		}
		d.Ack(false)
	}
	return nil
}

func (q *AMQPQueue) Close() error {
	q.ch.Close()
	return q.conn.Close()
}

var _ Publisher = (*AMQPQueue)(nil)
