// Package notify holds the per-channel send interfaces the dispatcher fans
// out to. Token/contact storage belongs to a collaborating service; this
// package only resolves and sends.
package notify

import "context"

type PushSender interface {
	// SendToUser targets one user's subscribed device channel.
	SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error
	// SendToTopic broadcasts to everyone subscribed to the topic channel,
	// e.g. all watchers of a match or tournament.
	SendToTopic(ctx context.Context, topic, title, body string, data map[string]string) error
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SmsSender interface {
	Send(ctx context.Context, to, message string) error
}

// Contact is a user's reachable addresses. Empty fields mean the channel
// is skipped, not failed.
type Contact struct {
	Email string
	Phone string
}

type ContactResolver interface {
	Resolve(ctx context.Context, tenantID, userID string) (Contact, error)
}
