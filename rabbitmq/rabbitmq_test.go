package rabbitmq_test

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"github.com/udemarket/markethub/common"
	"github.com/udemarket/markethub/db/models"
	"github.com/udemarket/markethub/rabbitmq"
)

type fakeAMQPClient struct {
	mu        sync.Mutex
	exchanges []string
	published []publishedMsg
}

type publishedMsg struct {
	exchange string
	key      string
	body     []byte
}

func (f *fakeAMQPClient) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	body := append([]byte{}, msg.Body...)
	f.published = append(f.published, publishedMsg{exchange: exchange, key: key, body: body})
	return nil
}

func (f *fakeAMQPClient) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append(f.exchanges, name)
	return nil
}

func (f *fakeAMQPClient) Close() error { return nil }

func (f *fakeAMQPClient) snapshot() []publishedMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedMsg{}, f.published...)
}

func encodeEvent(ctx context.Context, event models.ItemEvent, w io.Writer) error {
	return json.NewEncoder(w).Encode(event)
}

func TestStartPublishEvents(t *testing.T) {
	t.Parallel()

	amqpClient := &fakeAMQPClient{}
	client, err := rabbitmq.NewClient(amqpClient, rabbitmq.WithEventExchange("test_events"))
	assert.NoError(t, err)

	events := make(chan models.ItemEvent, 2)
	events <- models.ItemEvent{
		Type: common.ItemEventListed,
		Item: models.Item{ID: 1, AssetID: 1, Price: 100, Seller: 2},
	}
	events <- models.ItemEvent{
		Type: common.ItemEventSold,
		Item: models.Item{ID: 1, AssetID: 1, Price: 100, Seller: 2, Sold: true},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := client.StartPublishEvents(ctx, func() (chan models.ItemEvent, error) {
			return events, nil
		}, encodeEvent)
		assert.ErrorIs(t, err, context.Canceled)
	}()

	//wait a bit for events to be processed
	time.Sleep(100 * time.Millisecond)
	cancel()

	published := amqpClient.snapshot()
	assert.Len(t, published, 2)
	assert.Equal(t, "test_events", published[0].exchange)
	assert.Equal(t, common.ItemEventListed, published[0].key)
	assert.Equal(t, common.ItemEventSold, published[1].key)

	var decoded models.ItemEvent
	assert.NoError(t, json.Unmarshal(published[1].body, &decoded))
	assert.True(t, decoded.Item.Sold)
	assert.Equal(t, int64(1), decoded.Item.ID)
}
