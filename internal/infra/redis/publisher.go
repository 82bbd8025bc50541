package redis

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher broadcasts events over Redis pub/sub. Delivery is best effort.
type Publisher struct {
	client *Client
}

func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish sends payload as JSON on the channel derived from event.
func (p *Publisher) Publish(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	if err := p.client.rdb.Publish(ctx, p.client.channel(event), data).Err(); err != nil {
		return fmt.Errorf("publish %s failed: %w", event, err)
	}
	return nil
}
