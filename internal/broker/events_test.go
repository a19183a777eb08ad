package broker

import (
	"encoding/json"
	"testing"
	"time"

	"fulfillment-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, event interface{}) kafka.Message {
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestDecodeAuditRecordOrderEvent(t *testing.T) {
	msg := encode(t, &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:    42,
		OrderCode:  "ORD-0000000042",
		FromStatus: models.OrderStatusShipped,
		ToStatus:   models.OrderStatusDelivered,
	})

	record, err := DecodeAuditRecord(msg)
	require.NoError(t, err)

	assert.Equal(t, "evt-1", record.EventID)
	assert.Equal(t, models.EventTypeOrderStatusChanged, record.EventType)
	assert.Equal(t, "order", record.EntityKind)
	assert.Equal(t, int64(42), record.EntityID)
	assert.JSONEq(t, string(msg.Value), string(record.Payload))
}

func TestDecodeAuditRecordReturnEvent(t *testing.T) {
	msg := encode(t, &models.ReversePickupScheduledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-2",
			EventType: models.EventTypeReversePickupScheduled,
			Timestamp: time.Now(),
		},
		ReturnID:   7,
		OrderID:    42,
		ShipmentID: "SR123",
	})

	record, err := DecodeAuditRecord(msg)
	require.NoError(t, err)

	assert.Equal(t, "return", record.EntityKind)
	assert.Equal(t, int64(7), record.EntityID)
}

func TestDecodeAuditRecordUnknownType(t *testing.T) {
	msg := kafka.Message{Value: []byte(`{"event_id":"evt-3","event_type":"SOMETHING_ELSE"}`)}

	record, err := DecodeAuditRecord(msg)
	require.NoError(t, err)

	assert.Empty(t, record.EntityKind)
	assert.Equal(t, "SOMETHING_ELSE", record.EventType)
}

func TestDecodeAuditRecordMalformedPayload(t *testing.T) {
	_, err := DecodeAuditRecord(kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
