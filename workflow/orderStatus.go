package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/models"
	"github.com/freshfork/supply_backend/utils"
)

var ErrIllegalTransition = errors.New("illegal order status transition")

// statusTransitions is the whole state machine. A status absent from the map
// is terminal.
var statusTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending: {
		models.OrderStatusApproved,
		models.OrderStatusProcessing,
		models.OrderStatusCancelled,
		models.OrderStatusRejected,
	},
	models.OrderStatusApproved: {
		models.OrderStatusProcessing,
		models.OrderStatusCancelled,
		models.OrderStatusRejected,
	},
	models.OrderStatusProcessing: {
		models.OrderStatusPacked,
		models.OrderStatusCancelled,
	},
	models.OrderStatusPacked: {
		models.OrderStatusShipped,
		models.OrderStatusCancelled,
	},
	models.OrderStatusShipped: {
		models.OrderStatusDelivered,
		models.OrderStatusCancelled,
	},
	models.OrderStatusDelivered: {
		models.OrderStatusReturned,
	},
}

// CanTransition reports whether from may move to to in one step.
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionOrderStatus moves an order to a new status. The order row is
// locked for the whole transaction, so concurrent transitions serialize and
// the stock restore on cancellation runs at most once.
func TransitionOrderStatus(ctx context.Context, orderId int, statusName string) (*models.Order, error) {
	functionName := "TransitionOrderStatus"
	logger := config.GetLogger()

	newStatus, err := models.ParseOrderStatus(statusName)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	order, err := models.GetOrderForUpdate(tx, ctx, orderId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// Non-staff callers may only cancel their own orders; every other
	// transition belongs to the fulfilment side.
	if isStaff, _ := utils.GetIsStaffFromContext(ctx); !isStaff {
		userId, ok := utils.GetUserIdFromContext(ctx)
		if !ok || order.UserId != userId || newStatus != models.OrderStatusCancelled {
			tx.Rollback()
			return nil, models.ErrorOrderAccessDenied
		}
	}

	// Cancelling an already-cancelled order is a no-op success, so retried
	// cancel requests never restore stock twice.
	if order.Status == models.OrderStatusCancelled && newStatus == models.OrderStatusCancelled {
		tx.Rollback()
		return order, nil
	}

	if !CanTransition(order.Status, newStatus) {
		tx.Rollback()
		return nil, fmt.Errorf("%w: %s to %s", ErrIllegalTransition, order.Status, newStatus)
	}

	if newStatus == models.OrderStatusCancelled {
		for _, item := range order.Items {
			variantId := 0
			if item.VariantId != nil {
				variantId = *item.VariantId
			}
			err := models.RestoreStock(tx, ctx, item.ProductId, variantId, item.Quantity)
			if err != nil {
				tx.Rollback()
				config.LogError(logger, moduleName, functionName, "restore stock on cancel", item, err)
				return nil, err
			}
		}
	}

	now := time.Now().UTC()
	values := map[string]interface{}{
		"Status": newStatus,
	}
	switch newStatus {
	case models.OrderStatusApproved:
		if order.ApprovedAt == nil {
			values["ApprovedAt"] = now
		}
	case models.OrderStatusDelivered:
		if order.DeliveredAt == nil {
			values["DeliveredAt"] = now
		}
	case models.OrderStatusCancelled:
		if order.CancelledAt == nil {
			values["CancelledAt"] = now
		}
	}

	if err := tx.Model(order).Updates(values).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, moduleName, functionName, "update order status", orderId, err)
		return nil, err
	}

	order.Status = newStatus
	if err := models.RecordOrderEvent(tx, ctx, order, models.OrderEventTypeStatusChanged); err != nil {
		tx.Rollback()
		config.LogError(logger, moduleName, functionName, "record order event", orderId, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, moduleName, functionName, "commit status transition", orderId, err)
		return nil, err
	}

	if newStatus == models.OrderStatusCancelled {
		for _, item := range order.Items {
			models.InvalidateStockCache(item.ProductId, utils.DereferencePtr(item.VariantId))
		}
	}
	return order, nil
}

// CancelOrder is the customer-facing cancel path.
func CancelOrder(ctx context.Context, orderId int) (*models.Order, error) {
	return TransitionOrderStatus(ctx, orderId, string(models.OrderStatusCancelled))
}
