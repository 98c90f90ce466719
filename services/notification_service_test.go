package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"league-system/internal/bus"
	"league-system/internal/notify"
	"league-system/models"
)

type fakePush struct {
	mu     sync.Mutex
	err    error
	users  []string
	topics []string
}

func (f *fakePush) SendToUser(_ context.Context, userID, _, _ string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.users = append(f.users, userID)
	return nil
}

func (f *fakePush) SendToTopic(_ context.Context, topic, _, _ string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	return nil
}

type fakeEmail struct {
	err error
	to  []string
}

func (f *fakeEmail) Send(_ context.Context, to, _, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, to)
	return nil
}

type fakeSms struct {
	err error
	to  []string
}

func (f *fakeSms) Send(_ context.Context, to, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, to)
	return nil
}

type fakeContacts struct {
	contacts map[string]notify.Contact
	err      error
}

func (f *fakeContacts) Resolve(_ context.Context, _, userID string) (notify.Contact, error) {
	if f.err != nil {
		return notify.Contact{}, f.err
	}
	return f.contacts[userID], nil
}

func newNotifyFixture() (*NotificationService, *fakePush, *fakeEmail, *fakeSms, *fakeContacts) {
	push := &fakePush{}
	email := &fakeEmail{}
	sms := &fakeSms{}
	contacts := &fakeContacts{contacts: map[string]notify.Contact{}}
	return NewNotificationService(push, email, sms, contacts), push, email, sms, contacts
}

func matchStartedEvent(t *testing.T) models.DomainEvent {
	t.Helper()
	event, err := models.NewEvent(models.EventMatchStarted, "m1", models.MatchEventData{
		MatchID:  "m1",
		TenantID: "psl",
		TeamAID:  "a",
		TeamBID:  "b",
		Status:   models.MatchLive,
	})
	require.NoError(t, err)
	return event
}

func paymentCompletedEvent(t *testing.T) models.DomainEvent {
	t.Helper()
	event, err := models.NewEvent(models.EventPaymentCompleted, "p1", models.PaymentEventData{
		PaymentID: "p1",
		TenantID:  "psl",
		UserID:    "u1",
		Amount:    "5000",
		Currency:  "PKR",
		Status:    models.PaymentCompleted,
	})
	require.NoError(t, err)
	return event
}

func TestMatchEventBroadcastsToTopic(t *testing.T) {
	svc, push, _, _, _ := newNotifyFixture()

	err := svc.handleMatchEvent(context.Background(), matchStartedEvent(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"psl-m1"}, push.topics)
}

func TestPaymentEventFansOutPerUser(t *testing.T) {
	svc, push, email, sms, contacts := newNotifyFixture()
	contacts.contacts["u1"] = notify.Contact{Email: "u1@example.com", Phone: "+923001234567"}

	err := svc.handlePaymentEvent(context.Background(), paymentCompletedEvent(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, push.users)
	assert.Equal(t, []string{"u1@example.com"}, email.to)
	assert.Equal(t, []string{"+923001234567"}, sms.to)
}

func TestChannelFailureDoesNotBlockOthers(t *testing.T) {
	svc, push, email, sms, contacts := newNotifyFixture()
	push.err = errors.New("no device tokens")
	contacts.contacts["u1"] = notify.Contact{Email: "u1@example.com"}

	// Push fails and SMS is skipped, but the email lands, so the event is
	// acknowledged.
	err := svc.handlePaymentEvent(context.Background(), paymentCompletedEvent(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"u1@example.com"}, email.to)
	assert.Empty(t, sms.to)

	result := svc.Dispatch(context.Background(), models.NotificationJob{
		EventID:  "e1",
		TenantID: "psl",
		UserID:   "u1",
		Channels: []models.Channel{models.ChannelPush, models.ChannelEmail, models.ChannelSMS},
	})
	assert.True(t, result.Success)
	require.Len(t, result.Channels, 3)
	assert.False(t, result.Channels[0].Success)
	assert.True(t, result.Channels[0].Attempted)
	assert.True(t, result.Channels[1].Success)
	assert.False(t, result.Channels[2].Attempted, "no phone on file means skip, not fail")
}

func TestAllAttemptedChannelsFailingRequestsRedelivery(t *testing.T) {
	svc, push, email, sms, contacts := newNotifyFixture()
	push.err = errors.New("pubnub down")
	email.err = errors.New("smtp down")
	sms.err = errors.New("gateway down")
	contacts.contacts["u1"] = notify.Contact{Email: "u1@example.com", Phone: "+92300"}

	err := svc.handlePaymentEvent(context.Background(), paymentCompletedEvent(t))
	assert.Error(t, err)
}

func TestMissingContactSkipsWithoutFailing(t *testing.T) {
	svc, push, email, sms, _ := newNotifyFixture()

	// Unknown user: push still goes out, email/SMS are skipped.
	err := svc.handlePaymentEvent(context.Background(), paymentCompletedEvent(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, push.users)
	assert.Empty(t, email.to)
	assert.Empty(t, sms.to)
}

func TestContactResolutionErrorDegradesToPush(t *testing.T) {
	svc, push, email, _, contacts := newNotifyFixture()
	contacts.err = errors.New("redis down")

	err := svc.handlePaymentEvent(context.Background(), paymentCompletedEvent(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, push.users)
	assert.Empty(t, email.to)
}

func TestMalformedEventIsAcked(t *testing.T) {
	svc, push, _, _, _ := newNotifyFixture()

	err := svc.handleMatchEvent(context.Background(), models.DomainEvent{
		ID:   "broken",
		Type: models.EventMatchStarted,
		Data: json.RawMessage(`{"match_id": 42`),
	})
	assert.NoError(t, err, "a malformed event can never succeed on retry")
	assert.Empty(t, push.topics)
}

func TestUnknownEventTypeIsAcked(t *testing.T) {
	svc, push, _, _, _ := newNotifyFixture()

	event, err := models.NewEvent("MatchRescheduled", "m1", models.MatchEventData{
		MatchID: "m1", TenantID: "psl",
	})
	require.NoError(t, err)

	assert.NoError(t, svc.handleMatchEvent(context.Background(), event))
	assert.Empty(t, push.topics)
}

func TestPanickingSenderIsConfinedToItsChannel(t *testing.T) {
	push := &panickyPush{}
	email := &fakeEmail{}
	contacts := &fakeContacts{contacts: map[string]notify.Contact{
		"u1": {Email: "u1@example.com"},
	}}
	svc := NewNotificationService(push, email, &fakeSms{}, contacts)

	err := svc.handlePaymentEvent(context.Background(), paymentCompletedEvent(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"u1@example.com"}, email.to)
}

type panickyPush struct{}

func (panickyPush) SendToUser(context.Context, string, string, string, map[string]string) error {
	panic("nil client")
}

func (panickyPush) SendToTopic(context.Context, string, string, string, map[string]string) error {
	panic("nil client")
}

func TestScoringEventsWiredThroughBus(t *testing.T) {
	svc, push, _, _, _ := newNotifyFixture()
	eventBus := bus.NewInMemory()
	svc.Start(context.Background(), eventBus)

	event, err := models.NewEvent(models.EventSixHit, "m1", models.ScoringEventData{
		MatchID:  "m1",
		TenantID: "psl",
		BatterID: "babar-azam",
	})
	require.NoError(t, err)
	require.NoError(t, eventBus.Publish(context.Background(), models.TopicBallScoring, event))

	assert.Equal(t, []string{"psl-m1"}, push.topics)
}
