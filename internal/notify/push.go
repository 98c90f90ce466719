package notify

import (
	"context"
	"fmt"

	pubnub "github.com/pubnub/go"
)

// PubNubSender delivers push notifications over PubNub channels. A user's
// devices subscribe to user-<id>; match/tournament audiences subscribe to
// the broadcast topic channel.
type PubNubSender struct {
	pn *pubnub.PubNub
}

func NewPubNubSender(pn *pubnub.PubNub) *PubNubSender {
	return &PubNubSender{pn: pn}
}

func (s *PubNubSender) SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error {
	channel := fmt.Sprintf("user-%s", userID)
	return s.publish(ctx, channel, title, body, data)
}

func (s *PubNubSender) SendToTopic(ctx context.Context, topic, title, body string, data map[string]string) error {
	return s.publish(ctx, topic, title, body, data)
}

func (s *PubNubSender) publish(ctx context.Context, channel, title, body string, data map[string]string) error {
	message := map[string]any{
		"title": title,
		"body":  body,
	}
	if len(data) > 0 {
		message["data"] = data
	}

	_, status, err := s.pn.PublishWithContext(ctx).
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		return fmt.Errorf("pubnub publish %s: %w", channel, err)
	}
	if status.Error != nil {
		return fmt.Errorf("pubnub publish %s: status %d", channel, status.StatusCode)
	}
	return nil
}
