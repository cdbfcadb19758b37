package service

import (
	"context"
	"encoding/json"
	"io"

	"github.com/udemarket/markethub/db/models"
)

// publishItemEvent fans an event out to the firehose and the seller's
// personal topic. Buyer topics are published at the settlement call site
// where the buyer is known.
func (svc *MarkethubService) publishItemEvent(event models.ItemEvent) {
	svc.EventPubSub.Publish(FirehoseTopic, event)
	svc.EventPubSub.Publish(userTopic(event.Item.Seller), event)
}

// subscriberBuffer absorbs event bursts; Publish drops events for
// subscribers whose buffer is full instead of blocking.
const subscriberBuffer = 16

// SubscribeItemEvents registers on the firehose topic and returns the
// channel together with its subscription id so callers can unsubscribe.
func (svc *MarkethubService) SubscribeItemEvents() (string, chan models.ItemEvent, error) {
	ch := make(chan models.ItemEvent, subscriberBuffer)
	subID, err := svc.EventPubSub.Subscribe(FirehoseTopic, ch)
	if err != nil {
		return "", nil, err
	}
	return subID, ch, nil
}

// EncodeItemEvent writes the wire form of an event, shared by the
// webhook poster and the broker publisher.
func (svc *MarkethubService) EncodeItemEvent(ctx context.Context, event models.ItemEvent, w io.Writer) error {
	return json.NewEncoder(w).Encode(event)
}
