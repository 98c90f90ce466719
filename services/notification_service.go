package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"league-system/internal/bus"
	"league-system/internal/notify"
	"league-system/models"
	"league-system/monitoring"
)

// Consumer groups, one per subscribed topic so each stream tracks its own
// delivery cursor.
const (
	groupMatchNotifications      = "notifications-match"
	groupScoringNotifications    = "notifications-scoring"
	groupTournamentNotifications = "notifications-tournament"
	groupPaymentNotifications    = "notifications-payment"
)

// NotificationService consumes lifecycle and scoring events and fans each
// one out to push, email and SMS. Channels are isolated: one channel
// failing never blocks the others, and a job counts as delivered when at
// least one attempted channel succeeded.
type NotificationService struct {
	push     notify.PushSender
	email    notify.EmailSender
	sms      notify.SmsSender
	contacts notify.ContactResolver
}

func NewNotificationService(push notify.PushSender, email notify.EmailSender, sms notify.SmsSender, contacts notify.ContactResolver) *NotificationService {
	return &NotificationService{push: push, email: email, sms: sms, contacts: contacts}
}

// Start registers this service's consumer groups on the bus. Match,
// scoring and tournament events broadcast to topic channels; payment
// events produce a per-user receipt across every channel.
func (s *NotificationService) Start(ctx context.Context, eventBus bus.Bus) {
	eventBus.Subscribe(ctx, models.TopicMatchLifecycle, groupMatchNotifications, s.handleMatchEvent)
	eventBus.Subscribe(ctx, models.TopicBallScoring, groupScoringNotifications, s.handleScoringEvent)
	eventBus.Subscribe(ctx, models.TopicTournamentLifecycle, groupTournamentNotifications, s.handleTournamentEvent)
	eventBus.Subscribe(ctx, models.TopicPaymentLifecycle, groupPaymentNotifications, s.handlePaymentEvent)
}

func (s *NotificationService) handleMatchEvent(ctx context.Context, event models.DomainEvent) error {
	var data models.MatchEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		slog.Warn("drop malformed match event", "event_id", event.ID, "error", err)
		return nil
	}

	title, body := renderMatchEvent(event.Type, data)
	if title == "" {
		// Unknown event type on a known topic: ack, a retry cannot help.
		return nil
	}

	return s.dispatch(ctx, models.NotificationJob{
		EventID:   event.ID,
		EventType: event.Type,
		TenantID:  data.TenantID,
		Topic:     fmt.Sprintf("%s-%s", data.TenantID, data.MatchID),
		Channels:  []models.Channel{models.ChannelPush},
		Title:     title,
		Body:      body,
		Data:      map[string]string{"match_id": data.MatchID, "status": string(data.Status)},
	})
}

func (s *NotificationService) handleScoringEvent(ctx context.Context, event models.DomainEvent) error {
	var data models.ScoringEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		slog.Warn("drop malformed scoring event", "event_id", event.ID, "error", err)
		return nil
	}

	title, body := renderScoringEvent(event.Type, data)
	if title == "" {
		return nil
	}

	return s.dispatch(ctx, models.NotificationJob{
		EventID:   event.ID,
		EventType: event.Type,
		TenantID:  data.TenantID,
		Topic:     fmt.Sprintf("%s-%s", data.TenantID, data.MatchID),
		Channels:  []models.Channel{models.ChannelPush},
		Title:     title,
		Body:      body,
		Data:      map[string]string{"match_id": data.MatchID, "over": data.Over},
	})
}

func (s *NotificationService) handleTournamentEvent(ctx context.Context, event models.DomainEvent) error {
	var data models.TournamentEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		slog.Warn("drop malformed tournament event", "event_id", event.ID, "error", err)
		return nil
	}

	title, body := renderTournamentEvent(event.Type, data)
	if title == "" {
		return nil
	}

	return s.dispatch(ctx, models.NotificationJob{
		EventID:   event.ID,
		EventType: event.Type,
		TenantID:  data.TenantID,
		Topic:     fmt.Sprintf("%s-%s", data.TenantID, data.TournamentID),
		Channels:  []models.Channel{models.ChannelPush},
		Title:     title,
		Body:      body,
		Data:      map[string]string{"tournament_id": data.TournamentID, "status": string(data.Status)},
	})
}

func (s *NotificationService) handlePaymentEvent(ctx context.Context, event models.DomainEvent) error {
	var data models.PaymentEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		slog.Warn("drop malformed payment event", "event_id", event.ID, "error", err)
		return nil
	}

	title, body := renderPaymentEvent(event.Type, data)
	if title == "" {
		return nil
	}

	return s.dispatch(ctx, models.NotificationJob{
		EventID:   event.ID,
		EventType: event.Type,
		TenantID:  data.TenantID,
		UserID:    data.UserID,
		Channels:  []models.Channel{models.ChannelPush, models.ChannelEmail, models.ChannelSMS},
		Title:     title,
		Body:      body,
		Data:      map[string]string{"payment_id": data.PaymentID, "status": string(data.Status)},
	})
}

// dispatch fans one job out to its channels. The returned error is the ack
// decision: nil when at least one attempted channel succeeded (or every
// channel was skipped), non-nil when every attempted channel failed so the
// broker redelivers.
func (s *NotificationService) dispatch(ctx context.Context, job models.NotificationJob) error {
	result := s.Dispatch(ctx, job)
	if result.Success {
		return nil
	}

	attempted := 0
	for _, ch := range result.Channels {
		if ch.Attempted {
			attempted++
		}
	}
	if attempted == 0 {
		// Nothing to deliver, e.g. a user with no stored contact. Not a
		// failure; redelivery would only skip again.
		return nil
	}

	return fmt.Errorf("dispatch %s: all %d attempted channels failed", job.EventID, attempted)
}

// Dispatch attempts every channel of the job and reports per-channel
// results. A broadcast job only has a push channel; per-user jobs resolve
// the user's contact and skip email/SMS when no address is stored.
func (s *NotificationService) Dispatch(ctx context.Context, job models.NotificationJob) models.DispatchResult {
	var contact notify.Contact
	if !job.Broadcast() {
		c, err := s.contacts.Resolve(ctx, job.TenantID, job.UserID)
		if err != nil {
			// Resolution failure degrades to push-only rather than failing
			// the whole job.
			slog.Warn("resolve contact", "tenant_id", job.TenantID, "user_id", job.UserID, "error", err)
		} else {
			contact = c
		}
	}

	result := models.DispatchResult{EventID: job.EventID}
	for _, channel := range job.Channels {
		cr := s.sendChannel(ctx, job, channel, contact)
		result.Channels = append(result.Channels, cr)
		if cr.Success {
			result.Success = true
		}
	}

	if !result.Success {
		slog.Warn("notification undelivered", "event_id", job.EventID, "type", job.EventType)
	}
	return result
}

func (s *NotificationService) sendChannel(ctx context.Context, job models.NotificationJob, channel models.Channel, contact notify.Contact) models.ChannelResult {
	cr := models.ChannelResult{Channel: channel, Timestamp: time.Now().UTC()}

	var err error
	switch channel {
	case models.ChannelPush:
		cr.Attempted = true
		err = s.sendPush(ctx, job)
	case models.ChannelEmail:
		if contact.Email == "" {
			monitoring.NotificationSend(string(channel), "skipped")
			return cr
		}
		cr.Attempted = true
		err = s.trySend(func() error {
			return s.email.Send(ctx, contact.Email, job.Title, job.Body)
		})
	case models.ChannelSMS:
		if contact.Phone == "" {
			monitoring.NotificationSend(string(channel), "skipped")
			return cr
		}
		cr.Attempted = true
		err = s.trySend(func() error {
			return s.sms.Send(ctx, contact.Phone, job.Title+": "+job.Body)
		})
	default:
		err = errors.New("unknown channel")
		cr.Attempted = true
	}

	if err != nil {
		cr.Error = err.Error()
		monitoring.NotificationSend(string(channel), "error")
		slog.Warn("notification channel failed", "event_id", job.EventID, "channel", channel, "error", err)
		return cr
	}

	cr.Success = true
	monitoring.NotificationSend(string(channel), "ok")
	return cr
}

func (s *NotificationService) sendPush(ctx context.Context, job models.NotificationJob) error {
	return s.trySend(func() error {
		if job.Broadcast() {
			return s.push.SendToTopic(ctx, job.Topic, job.Title, job.Body, job.Data)
		}
		return s.push.SendToUser(ctx, job.UserID, job.Title, job.Body, job.Data)
	})
}

// trySend confines a panicking sender to its own channel result.
func (s *NotificationService) trySend(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()
	return fn()
}

func renderMatchEvent(eventType string, d models.MatchEventData) (title, body string) {
	switch eventType {
	case models.EventMatchCreated:
		return "Match scheduled", fmt.Sprintf("%s vs %s has been scheduled", d.TeamAID, d.TeamBID)
	case models.EventMatchStarted:
		body := fmt.Sprintf("%s vs %s is live now", d.TeamAID, d.TeamBID)
		if d.TossWinnerID != "" {
			body = fmt.Sprintf("%s. %s won the toss and chose to %s", body, d.TossWinnerID, d.TossDecision)
		}
		return "Match started", body
	case models.EventMatchEnded:
		return "Match result", d.Result
	case models.EventMatchAbandoned:
		body := fmt.Sprintf("%s vs %s has been abandoned", d.TeamAID, d.TeamBID)
		if d.Reason != "" {
			body += ": " + d.Reason
		}
		return "Match abandoned", body
	}
	return "", ""
}

func renderScoringEvent(eventType string, d models.ScoringEventData) (title, body string) {
	switch eventType {
	case models.EventSixHit:
		return "SIX!", commentaryOr(d, fmt.Sprintf("%s smashes it over the ropes", d.BatterID))
	case models.EventFourHit:
		return "FOUR!", commentaryOr(d, fmt.Sprintf("%s finds the boundary", d.BatterID))
	case models.EventWicket:
		return "WICKET!", commentaryOr(d, fmt.Sprintf("%s strikes, %s has to go", d.BowlerID, d.BatterID))
	}
	return "", ""
}

func commentaryOr(d models.ScoringEventData, fallback string) string {
	if d.Commentary != "" {
		return d.Commentary
	}
	return fallback
}

func renderTournamentEvent(eventType string, d models.TournamentEventData) (title, body string) {
	switch eventType {
	case models.EventTournamentCreated:
		return "New tournament", fmt.Sprintf("%s has been announced", d.Name)
	case models.EventTournamentOpened:
		return "Registration open", fmt.Sprintf("Registration for %s is now open", d.Name)
	case models.EventTournamentStarted:
		return "Tournament started", fmt.Sprintf("%s is underway", d.Name)
	case models.EventTournamentCompleted:
		body := fmt.Sprintf("%s has concluded", d.Name)
		if d.WinnerID != "" {
			body = fmt.Sprintf("%s. Congratulations to %s", body, d.WinnerID)
		}
		return "Tournament completed", body
	case models.EventTournamentCancelled:
		body := fmt.Sprintf("%s has been cancelled", d.Name)
		if d.Reason != "" {
			body += ": " + d.Reason
		}
		return "Tournament cancelled", body
	}
	return "", ""
}

func renderPaymentEvent(eventType string, d models.PaymentEventData) (title, body string) {
	switch eventType {
	case models.EventPaymentCompleted:
		return "Payment received", fmt.Sprintf("Your payment of %s %s was successful", d.Currency, d.Amount)
	case models.EventPaymentFailed:
		return "Payment failed", fmt.Sprintf("Your payment of %s %s could not be completed", d.Currency, d.Amount)
	case models.EventPaymentRefunded:
		return "Payment refunded", fmt.Sprintf("Your payment of %s %s has been refunded", d.Currency, d.Amount)
	}
	return "", ""
}
