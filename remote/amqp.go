package remote

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/aruizmx/comandero/utils"
)

const changeExchange = "pos.changes"

// AMQPClient bridges the change feed over a broker: the primary terminal
// publishes every change row (routing key = collection name), secondary
// terminals consume their feed from a bound queue instead of polling the
// database. Per-collection ordering holds because all changes for a
// collection share one routing key and one publisher.
type AMQPClient struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func DialAMQP(url string) (*AMQPClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(changeExchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &AMQPClient{conn: conn, ch: ch}, nil
}

func (c *AMQPClient) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// PublishChange fans one change event out to the exchange.
func (c *AMQPClient) PublishChange(ctx context.Context, ev ChangeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.ch.PublishWithContext(
		ctx,
		changeExchange,
		ev.Collection,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// SubscribeChanges makes the client a FeedSource: a server-named exclusive
// queue bound to the collection's routing key.
func (c *AMQPClient) SubscribeChanges(collection string, handler func(ChangeEvent)) (func(), error) {
	q, err := c.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, err
	}
	if err := c.ch.QueueBind(q.Name, collection, changeExchange, false, nil); err != nil {
		return nil, err
	}

	tag := "feed-" + collection + "-" + q.Name
	msgs, err := c.ch.Consume(q.Name, tag, true, true, false, false, nil)
	if err != nil {
		return nil, err
	}

	go func() {
		for msg := range msgs {
			var ev ChangeEvent
			if err := json.Unmarshal(msg.Body, &ev); err != nil {
				utils.ErrorLogger.Printf("amqp feed: dropping undecodable message on %s: %v", collection, err)
				continue
			}
			handler(ev)
		}
	}()

	return func() {
		if err := c.ch.Cancel(tag, false); err != nil {
			utils.ErrorLogger.Printf("amqp feed: cancel %s: %v", tag, err)
		}
	}, nil
}
