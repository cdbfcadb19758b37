package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/udemarket/markethub/db/models"
	"github.com/udemarket/markethub/lib/service"
	"github.com/udemarket/markethub/lib/tokens"
)

// EventStreamController : EventStreamController struct
type EventStreamController struct {
	svc *service.MarkethubService
}

type ItemEventWrapper struct {
	Type string       `json:"type"`
	Item *models.Item `json:"item,omitempty"`
}

func NewEventStreamController(svc *service.MarkethubService) *EventStreamController {
	return &EventStreamController{svc: svc}
}

// StreamEvents streams the caller's item events to the client
func (controller *EventStreamController) StreamEvents(c echo.Context) error {
	userId, err := tokens.ParseToken(controller.svc.Config.JWTSecret, (c.QueryParam("token")))
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("user:%d", userId)
	// buffered so a slow websocket write cannot stall publishers
	eventChan := make(chan models.ItemEvent, 16)
	subId, err := controller.svc.EventPubSub.Subscribe(topic, eventChan)
	if err != nil {
		return err
	}
	upgrader := websocket.Upgrader{}
	upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		controller.svc.EventPubSub.Unsubscribe(subId, topic)
		return err
	}
	defer ws.Close()

	//start listening for close messages
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, _, err := ws.ReadMessage()
			if err != nil {
				return
			}
		}
	}()

	//start with keepalive message
	err = ws.WriteJSON(&ItemEventWrapper{Type: "keepalive"})
	if err != nil {
		controller.svc.Logger.Error(err)
		controller.svc.EventPubSub.Unsubscribe(subId, topic)
		return err
	}
SocketLoop:
	for {
		select {
		case <-done:
			break SocketLoop
		case <-ticker.C:
			err := ws.WriteJSON(&ItemEventWrapper{Type: "keepalive"})
			if err != nil {
				controller.svc.Logger.Error(err)
				break SocketLoop
			}
		case event := <-eventChan:
			item := event.Item
			err := ws.WriteJSON(&ItemEventWrapper{
				Type: event.Type,
				Item: &item,
			})
			if err != nil {
				controller.svc.Logger.Error(err)
				break SocketLoop
			}
		}
	}
	controller.svc.EventPubSub.Unsubscribe(subId, topic)
	return nil
}
