package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultDispatchInterval = 5 * time.Second
	defaultDispatchBatch    = 20
	defaultMaxAttempts      = 8
	staleLockAfter          = 5 * time.Minute
)

// dispatcherConfig is read once at startup from the environment.
type dispatcherConfig struct {
	interval    time.Duration
	batchSize   int
	maxAttempts int
	workerId    string
}

func loadDispatcherConfig() dispatcherConfig {
	cfg := dispatcherConfig{
		interval:    defaultDispatchInterval,
		batchSize:   defaultDispatchBatch,
		maxAttempts: defaultMaxAttempts,
	}
	if v, err := strconv.Atoi(os.Getenv("ORDER_EVENTS_POLL_SECONDS")); err == nil && v > 0 {
		cfg.interval = time.Duration(v) * time.Second
	}
	if v, err := strconv.Atoi(os.Getenv("ORDER_EVENTS_BATCH_SIZE")); err == nil && v > 0 {
		cfg.batchSize = v
	}
	if v, err := strconv.Atoi(os.Getenv("ORDER_EVENTS_MAX_ATTEMPTS")); err == nil && v > 0 {
		cfg.maxAttempts = v
	}

	hostname, _ := os.Hostname()
	cfg.workerId = fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
	return cfg
}

// backoffDelay is the wait before attempt n (1-based): 30s, 60s, 120s, ...
// capped at one hour.
func backoffDelay(attempts int) time.Duration {
	delay := 30 * time.Second
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= time.Hour {
			return time.Hour
		}
	}
	return delay
}

// StartOrderEventDispatcher polls the order_events outbox and publishes
// pending rows to Pub/Sub until ctx is cancelled. Run it in its own
// goroutine after the database is up.
func StartOrderEventDispatcher(ctx context.Context) {
	functionName := "StartOrderEventDispatcher"
	logger := config.GetLogger()
	cfg := loadDispatcherConfig()

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if requeued, err := models.RequeueStaleOrderEvents(ctx, staleLockAfter); err != nil {
			config.LogError(logger, moduleName, functionName, "requeue stale events", nil, err)
		} else if requeued > 0 {
			logger.WithField("requeued", requeued).Warn("recovered stale order events")
		}

		events, err := models.ClaimPendingOrderEvents(ctx, cfg.workerId, cfg.batchSize)
		if err != nil {
			config.LogError(logger, moduleName, functionName, "claim order events", nil, err)
			continue
		}

		for i := range events {
			dispatchOrderEvent(ctx, &events[i], cfg.maxAttempts)
		}
	}
}

func dispatchOrderEvent(ctx context.Context, event *models.OrderEvent, maxAttempts int) {
	functionName := "dispatchOrderEvent"
	logger := config.GetLogger()

	var message config.OrderEventMessage
	if err := json.Unmarshal([]byte(event.Payload), &message); err != nil {
		// A row that cannot even be decoded will never publish; park it.
		if markErr := models.MarkOrderEventFailed(ctx, event, err, time.Now().UTC(), 1); markErr != nil {
			config.LogError(logger, moduleName, functionName, "park undecodable event", event.ID, markErr)
		}
		return
	}

	messageId, err := config.PublishOrderEventWithResult(ctx, message)
	if err != nil {
		attempts := event.Attempts + 1
		nextAttemptAt := time.Now().UTC().Add(backoffDelay(attempts))
		if markErr := models.MarkOrderEventFailed(ctx, event, err, nextAttemptAt, maxAttempts); markErr != nil {
			config.LogError(logger, moduleName, functionName, "mark event failed", event.ID, markErr)
		}
		config.LogError(logger, moduleName, functionName, "publish order event", event.ID, err)
		return
	}

	if err := models.MarkOrderEventSent(ctx, event.ID); err != nil {
		// Publish succeeded but the row still says PROCESSING; the stale
		// requeue will retry and Pub/Sub consumers must dedupe on event id.
		config.LogError(logger, moduleName, functionName, "mark event sent", event.ID, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"order_id":   event.OrderId,
		"message_id": messageId,
	}).Info("order event published")
}
