package service

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/udemarket/markethub/db/models"
)

// FirehoseTopic carries every item event regardless of user.
const FirehoseTopic = "items"

func userTopic(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

type Pubsub struct {
	mu   sync.RWMutex
	subs map[string]map[string]chan models.ItemEvent
}

func NewPubsub() *Pubsub {
	ps := &Pubsub{}
	ps.subs = make(map[string]map[string]chan models.ItemEvent)
	return ps
}

func (ps *Pubsub) Subscribe(topic string, ch chan models.ItemEvent) (subId string, err error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		ps.subs[topic] = make(map[string]chan models.ItemEvent)
	}
	subId = uuid.NewString()
	ps.subs[topic][subId] = ch
	return subId, nil
}

func (ps *Pubsub) Unsubscribe(id string, topic string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		return
	}
	if ps.subs[topic][id] == nil {
		return
	}
	close(ps.subs[topic][id])
	delete(ps.subs[topic], id)
}

// Publish never blocks: a subscriber whose channel is full misses the
// event. Settlement and the publish pipeline call this on the request
// path, so a stalled consumer must not be able to wedge them.
func (ps *Pubsub) Publish(topic string, msg models.ItemEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.subs[topic] == nil {
		return
	}

	for _, ch := range ps.subs[topic] {
		select {
		case ch <- msg:
		default:
		}
	}
}
