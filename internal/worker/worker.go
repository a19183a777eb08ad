package worker

import (
	"context"
	"log"

	"fulfillment-service/internal/broker"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/store"
	"fulfillment-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// auditStore is the persistence surface the audit worker needs
type auditStore interface {
	InsertAuditEvent(ctx context.Context, ev *models.AuditEvent) (bool, error)
}

// AuditWorker consumes fulfillment events and records them in the audit log
type AuditWorker struct {
	consumer *broker.Consumer
	store    auditStore
	logger   *zap.Logger
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(consumer *broker.Consumer, s *store.Store) *AuditWorker {
	return &AuditWorker{
		consumer: consumer,
		store:    s,
		logger:   util.GetLogger(),
	}
}

// Start starts the worker
func (w *AuditWorker) Start(ctx context.Context) error {
	log.Println("Starting audit worker...")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	log.Println("Stopping audit worker...")
	return w.consumer.Close()
}

func (w *AuditWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	record, err := broker.DecodeAuditRecord(msg)
	if err != nil {
		// malformed messages are logged and committed, not retried forever
		w.logger.Error("Failed to decode fulfillment event", zap.Error(err))
		return nil
	}

	if record.EntityKind == "" {
		w.logger.Warn("Skipping unknown event type",
			zap.String("event_type", record.EventType))
		return nil
	}

	inserted, err := w.store.InsertAuditEvent(ctx, record)
	if err != nil {
		return err
	}
	if !inserted {
		w.logger.Info("Audit event already recorded",
			zap.String("event_id", record.EventID))
		return nil
	}

	w.logger.Debug("Audit event recorded",
		zap.String("event_type", record.EventType),
		zap.String("entity_kind", record.EntityKind),
		zap.Int64("entity_id", record.EntityID))
	return nil
}
