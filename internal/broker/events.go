package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"fulfillment-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing fulfillment domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderStatusChanged publishes an OrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishShipmentCreated publishes a ShipmentCreated event
func (ep *EventPublisher) PublishShipmentCreated(ctx context.Context, event *models.ShipmentCreatedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReturnRequested publishes a ReturnRequested event
func (ep *EventPublisher) PublishReturnRequested(ctx context.Context, event *models.ReturnRequestedEvent) error {
	key := fmt.Sprintf("return-%d", event.ReturnID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReturnStatusChanged publishes a ReturnStatusChanged event
func (ep *EventPublisher) PublishReturnStatusChanged(ctx context.Context, event *models.ReturnStatusChangedEvent) error {
	key := fmt.Sprintf("return-%d", event.ReturnID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReversePickupScheduled publishes a ReversePickupScheduled event
func (ep *EventPublisher) PublishReversePickupScheduled(ctx context.Context, event *models.ReversePickupScheduledEvent) error {
	key := fmt.Sprintf("return-%d", event.ReturnID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// DecodeAuditRecord maps a consumed fulfillment event onto an audit entry.
// Unknown event types return an entry with an empty entity kind; the caller
// decides whether to record or skip them.
func DecodeAuditRecord(msg kafka.Message) (*models.AuditEvent, error) {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return nil, fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	record := &models.AuditEvent{
		EventID:   base.EventID,
		EventType: base.EventType,
		Payload:   msg.Value,
	}

	switch base.EventType {
	case models.EventTypeOrderStatusChanged:
		var ev models.OrderStatusChangedEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", base.EventType, err)
		}
		record.EntityKind = "order"
		record.EntityID = ev.OrderID

	case models.EventTypeShipmentCreated:
		var ev models.ShipmentCreatedEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", base.EventType, err)
		}
		record.EntityKind = "order"
		record.EntityID = ev.OrderID

	case models.EventTypeReturnRequested:
		var ev models.ReturnRequestedEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", base.EventType, err)
		}
		record.EntityKind = "return"
		record.EntityID = ev.ReturnID

	case models.EventTypeReturnStatusChanged:
		var ev models.ReturnStatusChangedEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", base.EventType, err)
		}
		record.EntityKind = "return"
		record.EntityID = ev.ReturnID

	case models.EventTypeReversePickupScheduled:
		var ev models.ReversePickupScheduledEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", base.EventType, err)
		}
		record.EntityKind = "return"
		record.EntityID = ev.ReturnID
	}

	return record, nil
}
