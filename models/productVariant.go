package models

import (
	"context"
	"time"

	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/utils"
	"github.com/shopspring/decimal"
)

type ProductVariant struct {
	ID              int             `gorm:"primary_key" json:"id"`
	ProductId       int             `gorm:"index;not null" json:"product_id"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	Sku             string          `gorm:"size:64;uniqueIndex;not null" json:"sku"`
	PriceAdjustment decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price_adjustment"`
	InventoryCount  int             `gorm:"not null;default:0" json:"inventory_count"`
	IsActive        *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProductVariant struct {
	ProductId       int             `json:"product_id" binding:"required"`
	Name            string          `json:"name" binding:"required"`
	Sku             string          `json:"sku" binding:"required"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
	InventoryCount  *int            `json:"inventory_count"`
}

type UpdateProductVariantInput struct {
	Name            *string          `json:"name"`
	PriceAdjustment *decimal.Decimal `json:"price_adjustment"`
	IsActive        *bool            `json:"is_active"`
}

func CreateProductVariant(ctx context.Context, input *NewProductVariant) (*ProductVariant, error) {
	if err := utils.ValidateResourceId[Product](ctx, input.ProductId); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[ProductVariant](ctx, "sku", input.Sku, 0); err != nil {
		return nil, err
	}

	variant := ProductVariant{
		ProductId:       input.ProductId,
		Name:            input.Name,
		Sku:             input.Sku,
		PriceAdjustment: input.PriceAdjustment,
		IsActive:        utils.NewTrue(),
	}
	if input.InventoryCount != nil {
		variant.InventoryCount = *input.InventoryCount
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&variant).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func UpdateProductVariant(ctx context.Context, id int, input *UpdateProductVariantInput) (*ProductVariant, error) {
	variant, err := utils.FetchModel[ProductVariant](ctx, id)
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	values := map[string]interface{}{}
	if input.Name != nil {
		values["Name"] = *input.Name
	}
	if input.PriceAdjustment != nil {
		values["PriceAdjustment"] = *input.PriceAdjustment
	}
	if input.IsActive != nil {
		values["IsActive"] = *input.IsActive
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(variant).Updates(values).Error; err != nil {
		return nil, err
	}
	if err := invalidateVariantCache(variant); err != nil {
		return nil, err
	}
	return variant, nil
}

// invalidateVariantCache drops both the variant entry and the parent product
// entry, which embeds the variant list.
func invalidateVariantCache(variant *ProductVariant) error {
	if err := utils.RemoveRedisItem[ProductVariant](variant.ID); err != nil {
		return err
	}
	return utils.RemoveRedisItem[Product](variant.ProductId)
}

// AdjustVariantInventory sets the variant-level counter directly, for staff
// restock flows.
func AdjustVariantInventory(ctx context.Context, id int, newCount int) (*ProductVariant, error) {
	if newCount < 0 {
		return nil, utils.ErrorNegativeInventory
	}
	variant, err := utils.FetchModel[ProductVariant](ctx, id)
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(variant).
		UpdateColumn("inventory_count", newCount).Error
	if err != nil {
		return nil, err
	}
	if err := invalidateVariantCache(variant); err != nil {
		return nil, err
	}
	return variant, nil
}
