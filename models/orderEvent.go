package models

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PublishStatusPending    = "PENDING"
	PublishStatusProcessing = "PROCESSING"
	PublishStatusSent       = "SENT"
	PublishStatusFailed     = "FAILED"
	PublishStatusDead       = "DEAD"
)

// OrderEvent is the transactional outbox row for order notifications. The
// row commits in the same transaction as the order change it describes; the
// dispatcher publishes it to Pub/Sub afterwards.
type OrderEvent struct {
	ID               string         `gorm:"primary_key;size:36" json:"id"`
	OrderId          int            `gorm:"index;not null" json:"order_id"`
	UserId           int            `gorm:"not null" json:"user_id"`
	EventType        OrderEventType `gorm:"size:4;not null" json:"event_type"`
	OrderStatus      OrderStatus    `gorm:"size:16;not null" json:"order_status"`
	Payload          string         `gorm:"type:text;not null" json:"payload"`
	PublishStatus    string         `gorm:"size:16;index:idx_order_events_claim;not null;default:PENDING" json:"publish_status"`
	Attempts         int            `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt    time.Time      `gorm:"index:idx_order_events_claim;not null" json:"next_attempt_at"`
	LockedAt         *time.Time     `json:"locked_at"`
	LockedBy         string         `gorm:"size:64" json:"locked_by"`
	LastPublishError string         `gorm:"size:1024" json:"last_publish_error"`
	CorrelationId    string         `gorm:"size:64" json:"correlation_id"`
	SentAt           *time.Time     `json:"sent_at"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// RecordOrderEvent inserts an outbox row inside the caller's transaction so
// the event exists if and only if the order change commits.
func RecordOrderEvent(tx *gorm.DB, ctx context.Context, order *Order, eventType OrderEventType) error {
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	message := config.OrderEventMessage{
		ID:            uuid.NewString(),
		OrderId:       order.ID,
		UserId:        order.UserId,
		EventType:     string(eventType),
		OrderStatus:   string(order.Status),
		OccurredAt:    time.Now().UTC(),
		CorrelationId: correlationId,
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	event := OrderEvent{
		ID:            message.ID,
		OrderId:       order.ID,
		UserId:        order.UserId,
		EventType:     eventType,
		OrderStatus:   order.Status,
		Payload:       string(payload),
		PublishStatus: PublishStatusPending,
		NextAttemptAt: time.Now().UTC(),
		CorrelationId: correlationId,
	}
	return tx.WithContext(ctx).Create(&event).Error
}

// ClaimPendingOrderEvents moves up to batchSize due rows to PROCESSING under
// this worker's id. SKIP LOCKED keeps concurrent dispatchers from claiming
// the same rows.
func ClaimPendingOrderEvents(ctx context.Context, workerId string, batchSize int) ([]OrderEvent, error) {
	db := config.GetDB()
	now := time.Now().UTC()

	var claimed []OrderEvent
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []OrderEvent
		err := tx.Raw(`
			SELECT * FROM order_events
			WHERE publish_status IN (?, ?) AND next_attempt_at <= ?
			ORDER BY next_attempt_at
			LIMIT ?
			FOR UPDATE SKIP LOCKED`,
			PublishStatusPending, PublishStatusFailed, now, batchSize).
			Scan(&rows).Error
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		err = tx.Model(&OrderEvent{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"publish_status": PublishStatusProcessing,
				"locked_at":      now,
				"locked_by":      workerId,
			}).Error
		if err != nil {
			return err
		}
		claimed = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func MarkOrderEventSent(ctx context.Context, eventId string) error {
	db := config.GetDB()
	now := time.Now().UTC()
	return db.WithContext(ctx).Model(&OrderEvent{}).
		Where("id = ?", eventId).
		Updates(map[string]interface{}{
			"publish_status": PublishStatusSent,
			"sent_at":        now,
			"locked_at":      nil,
			"locked_by":      "",
		}).Error
}

// MarkOrderEventFailed records a publish failure and schedules the retry.
// Rows at or past maxAttempts park as DEAD for manual inspection.
func MarkOrderEventFailed(ctx context.Context, event *OrderEvent, publishErr error, nextAttemptAt time.Time, maxAttempts int) error {
	db := config.GetDB()

	attempts := event.Attempts + 1
	status := PublishStatusFailed
	if attempts >= maxAttempts {
		status = PublishStatusDead
	}

	errText := publishErr.Error()
	if len(errText) > 1024 {
		errText = errText[:1024]
	}

	return db.WithContext(ctx).Model(&OrderEvent{}).
		Where("id = ?", event.ID).
		Updates(map[string]interface{}{
			"publish_status":     status,
			"attempts":           attempts,
			"next_attempt_at":    nextAttemptAt,
			"last_publish_error": errText,
			"locked_at":          nil,
			"locked_by":          "",
		}).Error
}

// RequeueStaleOrderEvents returns PROCESSING rows whose lock is older than
// staleAfter to PENDING, recovering from dispatcher crashes.
func RequeueStaleOrderEvents(ctx context.Context, staleAfter time.Duration) (int64, error) {
	db := config.GetDB()
	cutoff := time.Now().UTC().Add(-staleAfter)

	result := db.WithContext(ctx).Model(&OrderEvent{}).
		Where("publish_status = ? AND locked_at < ?", PublishStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"publish_status": PublishStatusPending,
			"locked_at":      nil,
			"locked_by":      "",
		})
	return result.RowsAffected, result.Error
}
