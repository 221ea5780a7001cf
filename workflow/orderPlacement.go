package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/models"
	"github.com/freshfork/supply_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const moduleName = "workflow"

var (
	ErrEmptyCart = errors.New("cart is empty")

	taxRate             = decimal.NewFromFloat(0.08)
	expressShippingCost = decimal.NewFromInt(15)
	orderNumberPrefix   = "SO-"
)

// PlaceOrderInput carries the checkout form. Shipping and contact fields are
// snapshotted onto the order header.
type PlaceOrderInput struct {
	ShippingAddress    string     `json:"shipping_address" binding:"required"`
	ShippingCity       string     `json:"shipping_city" binding:"required"`
	ShippingState      string     `json:"shipping_state" binding:"required"`
	ShippingZip        string     `json:"shipping_zip" binding:"required"`
	DeliveryPreference string     `json:"delivery_preference" binding:"required"`
	DeliveryDate       *time.Time `json:"delivery_date"`
	DeliveryTime       string     `json:"delivery_time"`
	ManagerName        string     `json:"manager_name" binding:"required"`
	ContactPhone       string     `json:"contact_phone" binding:"required"`
	Notes              string     `json:"notes"`
}

// Shortfall describes one cart line that could not be reserved.
type Shortfall struct {
	ProductId int    `json:"product_id"`
	VariantId *int   `json:"variant_id"`
	Message   string `json:"message"`
}

// PlacementResult is either a placed order or the full list of shortfalls.
// When Shortfalls is non-empty no stock was reserved and no order exists.
type PlacementResult struct {
	Order      *models.Order `json:"order,omitempty"`
	Shortfalls []Shortfall   `json:"shortfalls,omitempty"`
}

// PlaceOrder converts the user's cart into an order. All inventory
// reservations, the order header, its items and the outbox event commit in
// one transaction; any shortfall rolls back every reservation made before
// it and reports every failing line at once.
func PlaceOrder(ctx context.Context, userId int, input *PlaceOrderInput) (*PlacementResult, error) {
	functionName := "PlaceOrder"
	logger := config.GetLogger()

	preference, err := models.ParseDeliveryPreference(input.DeliveryPreference)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidatePhoneNumber(input.ContactPhone, utils.CountryCode); err != nil {
		return nil, err
	}

	// Serialize checkout per user so a double-submitted form cannot place
	// two orders from the same cart snapshot. The conditional stock updates
	// stay authoritative.
	lock, err := utils.CartLock(ctx, userId, moduleName, functionName)
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	cart, err := models.GetCartWithItems(ctx, userId)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
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

	var (
		shortfalls    []Shortfall
		orderItems    []models.OrderItem
		itemsSubtotal = decimal.Zero
	)

	// Reserve in cart insertion order. Keep going after a shortfall so the
	// user sees every failing line, then roll everything back.
	for _, line := range cart.Items {
		product, err := resolveOrderLine(tx, ctx, &line)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				shortfalls = append(shortfalls, Shortfall{
					ProductId: line.ProductId,
					VariantId: line.VariantId,
					Message:   fmt.Sprintf("Product ID %d is no longer available.", line.ProductId),
				})
				continue
			}
			tx.Rollback()
			config.LogError(logger, moduleName, functionName, "resolve cart line", line, err)
			return nil, err
		}

		variantId := 0
		variantName := ""
		unitPrice := product.BasePrice
		if line.VariantId != nil {
			variant, err := resolveOrderVariant(tx, ctx, &line)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					shortfalls = append(shortfalls, Shortfall{
						ProductId: line.ProductId,
						VariantId: line.VariantId,
						Message:   fmt.Sprintf("Product ID %d is no longer available.", line.ProductId),
					})
					continue
				}
				tx.Rollback()
				config.LogError(logger, moduleName, functionName, "resolve cart line variant", line, err)
				return nil, err
			}
			variantId = variant.ID
			variantName = variant.Name
			unitPrice = product.BasePrice.Add(variant.PriceAdjustment)
		}

		reservation, err := models.CheckAndReserveStock(tx, ctx, line.ProductId, variantId, line.Quantity)
		if err != nil {
			tx.Rollback()
			config.LogError(logger, moduleName, functionName, "reserve stock", line, err)
			return nil, err
		}
		if !reservation.Reserved {
			shortfalls = append(shortfalls, Shortfall{
				ProductId: line.ProductId,
				VariantId: line.VariantId,
				Message:   shortfallMessage(product.Name, variantName, reservation.Available),
			})
			continue
		}

		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		itemsSubtotal = itemsSubtotal.Add(lineTotal)
		orderItems = append(orderItems, models.OrderItem{
			ProductId:   line.ProductId,
			VariantId:   line.VariantId,
			ProductName: product.Name,
			VariantName: variantName,
			Quantity:    line.Quantity,
			UnitPrice:   unitPrice,
			LineTotal:   lineTotal,
		})
	}

	if len(shortfalls) > 0 {
		tx.Rollback()
		return &PlacementResult{Shortfalls: shortfalls}, nil
	}

	seqNo, err := utils.GetSequence[models.Order](ctx)
	if err != nil {
		tx.Rollback()
		config.LogError(logger, moduleName, functionName, "order sequence", userId, err)
		return nil, err
	}

	taxAmount, shippingCost, totalAmount := computeOrderTotals(itemsSubtotal, preference)

	order := models.Order{
		OrderNumber:        fmt.Sprintf("%s%06d", orderNumberPrefix, seqNo),
		SequenceNo:         int(seqNo),
		UserId:             userId,
		Status:             models.OrderStatusPending,
		ItemsSubtotal:      itemsSubtotal,
		TaxAmount:          taxAmount,
		ShippingCost:       shippingCost,
		TotalAmount:        totalAmount,
		ShippingAddress:    input.ShippingAddress,
		ShippingCity:       input.ShippingCity,
		ShippingState:      input.ShippingState,
		ShippingZip:        input.ShippingZip,
		DeliveryPreference: preference,
		DeliveryDate:       input.DeliveryDate,
		DeliveryTime:       input.DeliveryTime,
		ManagerName:        input.ManagerName,
		ContactPhone:       input.ContactPhone,
		Notes:              input.Notes,
		Items:              orderItems,
	}
	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, moduleName, functionName, "create order", order.OrderNumber, err)
		return nil, err
	}

	if err := models.RecordOrderEvent(tx, ctx, &order, models.OrderEventTypePlaced); err != nil {
		tx.Rollback()
		config.LogError(logger, moduleName, functionName, "record order event", order.OrderNumber, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, moduleName, functionName, "commit order", order.OrderNumber, err)
		return nil, err
	}

	// The order is durable at this point. A failed cart clear leaves stale
	// cart rows but never undoes the order.
	if err := models.ClearCart(ctx, userId); err != nil {
		config.LogError(logger, moduleName, functionName, "clear cart after placement", userId, err)
	}
	for _, item := range orderItems {
		models.InvalidateStockCache(item.ProductId, utils.DereferencePtr(item.VariantId))
	}

	return &PlacementResult{Order: &order}, nil
}

func resolveOrderLine(tx *gorm.DB, ctx context.Context, line *models.CartItem) (*models.Product, error) {
	var product models.Product
	err := tx.WithContext(ctx).
		Where("id = ? AND is_active = ?", line.ProductId, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func resolveOrderVariant(tx *gorm.DB, ctx context.Context, line *models.CartItem) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := tx.WithContext(ctx).
		Where("id = ? AND product_id = ? AND is_active = ?", *line.VariantId, line.ProductId, true).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// computeOrderTotals derives tax, shipping and the grand total from the
// items subtotal. Tax rounds half-up to cents; express delivery carries a
// flat shipping charge.
func computeOrderTotals(itemsSubtotal decimal.Decimal, preference models.DeliveryPreference) (tax, shipping, total decimal.Decimal) {
	tax = itemsSubtotal.Mul(taxRate).Round(2)
	shipping = decimal.Zero
	if preference == models.DeliveryPreferenceExpress {
		shipping = expressShippingCost
	}
	total = itemsSubtotal.Add(tax).Add(shipping)
	return tax, shipping, total
}

func shortfallMessage(productName string, variantName string, available int) string {
	if variantName != "" {
		return fmt.Sprintf("Not enough inventory for %s (%s). Available: %d.", productName, variantName, available)
	}
	return fmt.Sprintf("Not enough inventory for %s. Available: %d.", productName, available)
}
