// README: FCM push for notifications to a user's registered device.
package notify

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

type Pusher interface {
	Push(ctx context.Context, deviceToken string, n Notification) error
}

type FCMPusher struct {
	client *messaging.Client
}

func NewFCMPusher(client *messaging.Client) *FCMPusher {
	return &FCMPusher{client: client}
}

// Push sends n as a high-priority FCM message. The deviceToken must be
// resolved by the caller.
func (p *FCMPusher) Push(ctx context.Context, deviceToken string, n Notification) error {
	if deviceToken == "" {
		return fmt.Errorf("empty device token for ride %s", n.RideID)
	}
	msg := &messaging.Message{
		Token: deviceToken,
		Data: map[string]string{
			"type":    string(n.Kind),
			"ride_id": string(n.RideID),
		},
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	if _, err := p.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending FCM for ride %s: %w", n.RideID, err)
	}
	return nil
}
