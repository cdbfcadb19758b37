package service

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/udemarket/markethub/db/models"
)

func (svc *MarkethubService) StartWebhookSubscription(ctx context.Context) {

	svc.Logger.Infof("Starting webhook subscription with webhook url %s", svc.Config.WebhookUrl)
	events := make(chan models.ItemEvent)
	subID, err := svc.EventPubSub.Subscribe(FirehoseTopic, events)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	defer svc.EventPubSub.Unsubscribe(subID, FirehoseTopic)
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			svc.postToWebhook(ctx, event)
		}
	}
}

func (svc *MarkethubService) postToWebhook(ctx context.Context, event models.ItemEvent) {

	payload := new(bytes.Buffer)
	err := svc.EncodeItemEvent(ctx, event, payload)
	if err != nil {
		svc.Logger.Error(err)
		return
	}

	resp, err := http.Post(svc.Config.WebhookUrl, "application/json", payload)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			svc.Logger.Error(err)
		}
		svc.Logger.Errorf("Webhook status code was %d, body: %s", resp.StatusCode, msg)
	}
}
