package models

import (
	"context"
	"errors"
	"time"

	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/utils"
	"gorm.io/gorm"
)

type Cart struct {
	ID        int        `gorm:"primary_key" json:"id"`
	UserId    int        `gorm:"uniqueIndex;not null" json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartId" json:"items"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// CartItem lines merge on (product_id, variant_id); a nil VariantId means
// the line is for the base product.
type CartItem struct {
	ID        int       `gorm:"primary_key" json:"id"`
	CartId    int       `gorm:"index:idx_cart_line,unique;not null" json:"cart_id"`
	ProductId int       `gorm:"index:idx_cart_line,unique;not null" json:"product_id"`
	VariantId *int      `gorm:"index:idx_cart_line,unique" json:"variant_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Product   *Product  `gorm:"foreignKey:ProductId" json:"product,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCartItem struct {
	ProductId int  `json:"product_id" binding:"required"`
	VariantId *int `json:"variant_id"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

// GetOrCreateCart returns the user's cart, creating it on first use. A
// concurrent first-use create is resolved by re-reading after a duplicate
// key error on user_id.
func GetOrCreateCart(ctx context.Context, userId int) (*Cart, error) {
	db := config.GetDB()

	var cart Cart
	err := db.WithContext(ctx).Where("user_id = ?", userId).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = Cart{UserId: userId}
	err = db.WithContext(ctx).Create(&cart).Error
	if err != nil {
		if utils.IsDuplicateEntry(err) {
			err = db.WithContext(ctx).Where("user_id = ?", userId).First(&cart).Error
			if err != nil {
				return nil, err
			}
			return &cart, nil
		}
		return nil, err
	}
	return &cart, nil
}

func GetCartWithItems(ctx context.Context, userId int) (*Cart, error) {
	cart, err := GetOrCreateCart(ctx, userId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id") }).
		Preload("Items.Product").
		First(cart, cart.ID).Error
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func cartLineQuery(db *gorm.DB, cartId int, productId int, variantId *int) *gorm.DB {
	query := db.Where("cart_id = ? AND product_id = ?", cartId, productId)
	if variantId == nil {
		return query.Where("variant_id IS NULL")
	}
	return query.Where("variant_id = ?", *variantId)
}

// MergeCartLine adds quantity to the matching (product, variant) line inside
// tx, creating the line when it does not exist.
func MergeCartLine(tx *gorm.DB, ctx context.Context, cartId int, productId int, variantId *int, quantity int) error {
	if quantity <= 0 {
		return utils.ErrorInvalidQuantity
	}

	var existing CartItem
	err := cartLineQuery(tx.WithContext(ctx), cartId, productId, variantId).First(&existing).Error
	if err == nil {
		return tx.WithContext(ctx).Model(&existing).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity)).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	item := CartItem{
		CartId:    cartId,
		ProductId: productId,
		VariantId: variantId,
		Quantity:  quantity,
	}
	return tx.WithContext(ctx).Create(&item).Error
}

// AddItemToCart appends a line, merging quantities into an existing line
// with the same product and variant.
func AddItemToCart(ctx context.Context, userId int, input *NewCartItem) (*Cart, error) {
	if input.Quantity <= 0 {
		return nil, utils.ErrorInvalidQuantity
	}

	product, err := GetProduct(ctx, input.ProductId)
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if product.IsActive == nil || !*product.IsActive {
		return nil, utils.ErrorRecordNotFound
	}
	if input.VariantId != nil {
		count, err := utils.ResourceCountWhere[ProductVariant](ctx,
			"id = ? AND product_id = ? AND is_active = ?", *input.VariantId, input.ProductId, true)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, utils.ErrorRecordNotFound
		}
	}

	cart, err := GetOrCreateCart(ctx, userId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return MergeCartLine(tx, ctx, cart.ID, input.ProductId, input.VariantId, input.Quantity)
	})
	if err != nil {
		return nil, err
	}

	return GetCartWithItems(ctx, userId)
}

// UpdateCartItem replaces a line's quantity. Quantity zero removes the line.
func UpdateCartItem(ctx context.Context, userId int, itemId int, quantity int) (*Cart, error) {
	if quantity < 0 {
		return nil, utils.ErrorInvalidQuantity
	}

	cart, err := GetOrCreateCart(ctx, userId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var item CartItem
	err = db.WithContext(ctx).Where("id = ? AND cart_id = ?", itemId, cart.ID).First(&item).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if quantity == 0 {
		err = db.WithContext(ctx).Delete(&item).Error
	} else {
		err = db.WithContext(ctx).Model(&item).UpdateColumn("quantity", quantity).Error
	}
	if err != nil {
		return nil, err
	}

	return GetCartWithItems(ctx, userId)
}

func RemoveCartItem(ctx context.Context, userId int, itemId int) (*Cart, error) {
	return UpdateCartItem(ctx, userId, itemId, 0)
}

func ClearCart(ctx context.Context, userId int) error {
	cart, err := GetOrCreateCart(ctx, userId)
	if err != nil {
		return err
	}

	db := config.GetDB()
	return db.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&CartItem{}).Error
}
