package models

import (
	"context"
	"time"

	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/utils"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID             int              `gorm:"primary_key" json:"id"`
	CategoryId     int              `gorm:"index;not null" json:"category_id"`
	Category       *ProductCategory `gorm:"foreignKey:CategoryId" json:"category,omitempty"`
	Name           string           `gorm:"size:255;not null" json:"name"`
	Sku            string           `gorm:"size:64;uniqueIndex;not null" json:"sku"`
	Description    string           `gorm:"type:text" json:"description"`
	BasePrice      decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"base_price"`
	InventoryCount int              `gorm:"not null;default:0" json:"inventory_count"`
	IsActive       *bool            `gorm:"not null;default:true" json:"is_active"`
	Variants       []ProductVariant `gorm:"foreignKey:ProductId" json:"variants,omitempty"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p Product) GetCursor() string {
	return p.Name
}

func (p Product) GetID() int {
	return p.ID
}

type NewProduct struct {
	CategoryId     int             `json:"category_id" binding:"required"`
	Name           string          `json:"name" binding:"required"`
	Sku            string          `json:"sku" binding:"required"`
	Description    string          `json:"description"`
	BasePrice      decimal.Decimal `json:"base_price" binding:"required"`
	InventoryCount *int            `json:"inventory_count"`
}

type UpdateProductInput struct {
	CategoryId  *int             `json:"category_id"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	BasePrice   *decimal.Decimal `json:"base_price"`
	IsActive    *bool            `json:"is_active"`
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	if err := utils.ValidateResourceId[ProductCategory](ctx, input.CategoryId); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Product](ctx, "sku", input.Sku, 0); err != nil {
		return nil, err
	}

	product := Product{
		CategoryId:  input.CategoryId,
		Name:        input.Name,
		Sku:         input.Sku,
		Description: input.Description,
		BasePrice:   input.BasePrice,
		IsActive:    utils.NewTrue(),
	}
	if input.InventoryCount != nil {
		product.InventoryCount = *input.InventoryCount
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *UpdateProductInput) (*Product, error) {
	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if input.CategoryId != nil {
		if err := utils.ValidateResourceId[ProductCategory](ctx, *input.CategoryId); err != nil {
			return nil, err
		}
	}

	values := map[string]interface{}{}
	if input.CategoryId != nil {
		values["CategoryId"] = *input.CategoryId
	}
	if input.Name != nil {
		values["Name"] = *input.Name
	}
	if input.Description != nil {
		values["Description"] = *input.Description
	}
	if input.BasePrice != nil {
		values["BasePrice"] = *input.BasePrice
	}
	if input.IsActive != nil {
		values["IsActive"] = *input.IsActive
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(product).Updates(values).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[Product](id); err != nil {
		return nil, err
	}
	return product, nil
}

// AdjustProductInventory sets the product-level counter directly. Reserved
// for staff restock flows; order placement goes through the ledger instead.
func AdjustProductInventory(ctx context.Context, id int, newCount int) (*Product, error) {
	if newCount < 0 {
		return nil, utils.ErrorNegativeInventory
	}
	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(product).
		UpdateColumn("inventory_count", newCount).Error
	if err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[Product](id); err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct serves reads from the redis cache when possible. Mutation paths
// drop the cached entry, so a stale read lives at most one cache lifespan.
func GetProduct(ctx context.Context, id int) (*Product, error) {
	if cached, err := utils.RetrieveRedis[Product](id); err == nil && cached != nil {
		return cached, nil
	}

	product, err := utils.FetchModel[Product](ctx, id, "Category", "Variants")
	if err != nil {
		return nil, err
	}
	// cache miss fill is best effort
	_ = utils.StoreRedis[Product](product, id)
	return product, nil
}

type ProductFilter struct {
	Search     *string
	CategoryId *int
	InStock    *bool
}

func PaginateProducts(ctx context.Context, limit *int, after *string, filter *ProductFilter) ([]Edge[Product], *PageInfo, error) {
	pageSize := config.SearchLimit
	if limit != nil && *limit > 0 {
		pageSize = *limit
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Preload("Category").
		Preload("Variants").
		Where("is_active = ?", true)

	if filter != nil {
		if filter.Search != nil && *filter.Search != "" {
			dbCtx.Where("name LIKE ? OR sku LIKE ?", "%"+*filter.Search+"%", "%"+*filter.Search+"%")
		}
		if filter.CategoryId != nil && *filter.CategoryId > 0 {
			dbCtx.Where("category_id = ?", *filter.CategoryId)
		}
		if filter.InStock != nil && *filter.InStock {
			dbCtx.Where(
				"inventory_count > 0 OR EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = products.id AND v.inventory_count > 0)")
		}
	}

	return FetchPagePureCursor[Product](dbCtx, pageSize, after, "name", ">")
}
