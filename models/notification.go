package models

import "time"

type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// NotificationJob is one fan-out attempt derived from a DomainEvent. It is
// ephemeral: never persisted, each channel succeeds or fails on its own.
type NotificationJob struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	TenantID  string            `json:"tenant_id"`
	UserID    string            `json:"user_id,omitempty"`
	Topic     string            `json:"topic,omitempty"`
	Channels  []Channel         `json:"channels"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
}

// Broadcast reports whether the job targets a topic rather than a single user.
func (j NotificationJob) Broadcast() bool {
	return j.Topic != ""
}

type ChannelResult struct {
	Channel   Channel   `json:"channel"`
	Attempted bool      `json:"attempted"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type DispatchResult struct {
	EventID  string          `json:"event_id"`
	Success  bool            `json:"success"`
	Channels []ChannelResult `json:"channels"`
}
