package models

import (
	"context"

	"github.com/freshfork/supply_backend/utils"
	"gorm.io/gorm"
)

// ReservationResult reports the outcome of a conditional stock decrement.
// When Reserved is false, Available carries the count observed at the time
// of the failed attempt so callers can build a shortfall message.
type ReservationResult struct {
	Reserved  bool
	Available int
}

// CheckAndReserveStock decrements the inventory counter for a product or,
// when variantId is non-zero, for that variant. The decrement is a single
// conditional UPDATE guarded by inventory_count >= quantity, so concurrent
// reservations against the same row cannot drive the counter negative.
// Must run inside the caller's transaction.
func CheckAndReserveStock(tx *gorm.DB, ctx context.Context, productId int, variantId int, quantity int) (*ReservationResult, error) {
	if quantity <= 0 {
		return nil, utils.ErrorInvalidQuantity
	}

	var result *gorm.DB
	if variantId != 0 {
		result = tx.WithContext(ctx).Model(&ProductVariant{}).
			Where("id = ? AND inventory_count >= ?", variantId, quantity).
			UpdateColumn("inventory_count", gorm.Expr("inventory_count - ?", quantity))
	} else {
		result = tx.WithContext(ctx).Model(&Product{}).
			Where("id = ? AND inventory_count >= ?", productId, quantity).
			UpdateColumn("inventory_count", gorm.Expr("inventory_count - ?", quantity))
	}
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 1 {
		return &ReservationResult{Reserved: true}, nil
	}

	available, err := readStockCount(tx, ctx, productId, variantId)
	if err != nil {
		return nil, err
	}
	return &ReservationResult{Reserved: false, Available: available}, nil
}

// RestoreStock adds quantity back to the counter the matching reservation
// decremented. Must run inside the caller's transaction.
func RestoreStock(tx *gorm.DB, ctx context.Context, productId int, variantId int, quantity int) error {
	if quantity <= 0 {
		return utils.ErrorInvalidQuantity
	}

	var result *gorm.DB
	if variantId != 0 {
		result = tx.WithContext(ctx).Model(&ProductVariant{}).
			Where("id = ?", variantId).
			UpdateColumn("inventory_count", gorm.Expr("inventory_count + ?", quantity))
	} else {
		result = tx.WithContext(ctx).Model(&Product{}).
			Where("id = ?", productId).
			UpdateColumn("inventory_count", gorm.Expr("inventory_count + ?", quantity))
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

// AvailableStock reads the current counter for a product or variant outside
// any transaction. The value is advisory; placement re-checks under the
// conditional UPDATE.
func AvailableStock(ctx context.Context, productId int, variantId int) (int, error) {
	if variantId != 0 {
		variant, err := utils.FetchModel[ProductVariant](ctx, variantId)
		if err != nil {
			return 0, err
		}
		return variant.InventoryCount, nil
	}
	product, err := utils.FetchModel[Product](ctx, productId)
	if err != nil {
		return 0, err
	}
	return product.InventoryCount, nil
}

// InvalidateStockCache drops cached catalog entries whose counters changed.
// Call after the transaction that moved stock has committed.
func InvalidateStockCache(productId int, variantId int) {
	_ = utils.RemoveRedisItem[Product](productId)
	if variantId != 0 {
		_ = utils.RemoveRedisItem[ProductVariant](variantId)
	}
}

func readStockCount(tx *gorm.DB, ctx context.Context, productId int, variantId int) (int, error) {
	var count int
	var err error
	if variantId != 0 {
		err = tx.WithContext(ctx).Model(&ProductVariant{}).
			Where("id = ?", variantId).
			Pluck("inventory_count", &count).Error
	} else {
		err = tx.WithContext(ctx).Model(&Product{}).
			Where("id = ?", productId).
			Pluck("inventory_count", &count).Error
	}
	return count, err
}
