package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berryevents69/Berry-Events-sub000/pkg/config"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox/payloads"
)

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := newTestEventRegistry(t)
	bookingID := uuid.New()
	providerID := uuid.New()
	data, err := json.Marshal(payloads.ProviderAssignedEvent{
		BookingID:  bookingID,
		JobID:      uuid.New(),
		ProviderID: providerID,
		DistanceKm: 1.2,
	})
	require.NoError(t, err)

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventProviderAssigned,
		AggregateType: enums.AggregateBooking,
		AggregateID:   bookingID,
		Payload:       envelopeFor(t, data),
	})
	require.NoError(t, err)
	assert.Equal(t, "bookings-topic", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)

	payload, ok := resolved.Payload.(*payloads.ProviderAssignedEvent)
	require.True(t, ok, "unexpected payload type %T", resolved.Payload)
	assert.Equal(t, providerID, payload.ProviderID)
}

func TestResolveRoutesByAggregate(t *testing.T) {
	reg := newTestEventRegistry(t)
	cases := []struct {
		eventType enums.OutboxEventType
		aggregate enums.OutboxAggregateType
		topic     string
	}{
		{enums.EventBookingQueued, enums.AggregateBooking, "bookings-topic"},
		{enums.EventJobExpired, enums.AggregateBooking, "bookings-topic"},
		{enums.EventOrderCreated, enums.AggregateOrder, "orders-topic"},
		{enums.EventOrderStatusChanged, enums.AggregateOrder, "orders-topic"},
		{enums.EventWalletPaymentCharged, enums.AggregateWallet, "wallet-topic"},
		{enums.EventWalletRefunded, enums.AggregateWallet, "wallet-topic"},
	}
	for _, tc := range cases {
		t.Run(string(tc.eventType), func(t *testing.T) {
			resolved, err := reg.Resolve(models.OutboxEvent{
				EventType:     tc.eventType,
				AggregateType: tc.aggregate,
				AggregateID:   uuid.New(),
				Payload:       envelopeFor(t, []byte(`{}`)),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.topic, resolved.Descriptor.Topic)
		})
	}
}

func TestResolveRejectsMalformedRows(t *testing.T) {
	reg := newTestEventRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType:     enums.OutboxEventType("chat_message_sent"),
			AggregateType: enums.AggregateBooking,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateWallet,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Payload:       envelopeFor(t, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, []byte("null")),
		},
		"broken envelope": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"data":`),
		},
		"wrong payload shape": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, []byte(`{"item_count":"three"}`)),
		},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			require.Error(t, err)
			var nonRetry NonRetryableError
			assert.True(t, errors.As(err, &nonRetry), "expected non-retryable, got %T", err)
		})
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "o"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "booking")
	assert.Contains(t, err.Error(), "wallet")
}

func TestTopicsAreDistinct(t *testing.T) {
	assert.Equal(t, []string{"bookings-topic", "orders-topic", "wallet-topic"}, newTestEventRegistry(t).Topics())
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		BookingsTopic: "bookings-topic",
		OrdersTopic:   "orders-topic",
		WalletTopic:   "wallet-topic",
	})
	require.NoError(t, err)
	return reg
}

func envelopeFor(t *testing.T, data []byte) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return raw
}
