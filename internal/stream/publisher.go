package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/crm-api/internal/model"
	"github.com/jwalitptl/crm-api/pkg/messaging"
)

const DefaultChannel = "notifications"

// HubPublisher delivers straight into this process's hub.
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(_ context.Context, n *model.Notification) error {
	p.hub.Publish(n.UserID, NotificationEvent(n))
	return nil
}

// Envelope is the cross-process message carrying one notification.
type Envelope struct {
	UserID       int64           `json:"user_id"`
	Notification json.RawMessage `json:"notification"`
}

// BrokerPublisher fans notifications out through a broker so every API
// instance's relay can deliver them to its own streams. When the broker
// publish fails and a local hub is set, the notification still reaches the
// streams held by this process.
type BrokerPublisher struct {
	broker  messaging.Broker
	channel string
	local   *Hub
}

// NewBrokerPublisher returns a publisher on channel. local may be nil for
// processes that hold no streams.
func NewBrokerPublisher(broker messaging.Broker, channel string, local *Hub) *BrokerPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &BrokerPublisher{broker: broker, channel: channel, local: local}
}

func (p *BrokerPublisher) Publish(ctx context.Context, n *model.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	msg, err := json.Marshal(Envelope{UserID: n.UserID, Notification: body})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := p.broker.Publish(ctx, p.channel, msg); err != nil {
		if p.local != nil {
			p.local.Publish(n.UserID, NotificationEvent(n))
			return fmt.Errorf("failed to publish notification, delivered to local streams only: %w", err)
		}
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
