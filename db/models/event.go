package models

// ItemEvent is published on listing and settlement, both to in-process
// subscribers (websocket streams, webhooks) and to the rabbitmq exchange.
type ItemEvent struct {
	Type string `json:"type"`
	Item Item   `json:"item"`
}
