package store

import (
	"context"

	"fulfillment-service/internal/models"
)

// InsertAuditEvent appends a consumed fulfillment event to the audit log.
// The unique event id makes redelivered messages a no-op; returns false when
// the event was already recorded.
func (s *Store) InsertAuditEvent(ctx context.Context, ev *models.AuditEvent) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fulfillment_audit (event_id, event_type, entity_kind, entity_id, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING`,
		ev.EventID, ev.EventType, ev.EntityKind, ev.EntityID, ev.Payload)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ListAuditEvents retrieves the most recent audit entries for an entity
func (s *Store) ListAuditEvents(ctx context.Context, entityKind string, entityID int64, limit int) ([]models.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.AuditEvent
	err := s.db.SelectContext(ctx, &events, `
		SELECT * FROM fulfillment_audit
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY recorded_at DESC LIMIT $3`,
		entityKind, entityID, limit)
	return events, err
}
