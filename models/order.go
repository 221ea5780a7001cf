package models

import (
	"context"
	"errors"
	"time"

	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Order struct {
	ID                 int                `gorm:"primary_key" json:"id"`
	OrderNumber        string             `gorm:"size:32;uniqueIndex;not null" json:"order_number"`
	SequenceNo         int                `gorm:"index;not null" json:"sequence_no"`
	UserId             int                `gorm:"index;not null" json:"user_id"`
	User               *User              `gorm:"foreignKey:UserId" json:"user,omitempty"`
	Status             OrderStatus        `gorm:"size:16;index;not null" json:"status"`
	ItemsSubtotal      decimal.Decimal    `gorm:"type:decimal(12,2);not null" json:"items_subtotal"`
	TaxAmount          decimal.Decimal    `gorm:"type:decimal(12,2);not null" json:"tax_amount"`
	ShippingCost       decimal.Decimal    `gorm:"type:decimal(12,2);not null" json:"shipping_cost"`
	TotalAmount        decimal.Decimal    `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	ShippingAddress    string             `gorm:"size:512;not null" json:"shipping_address"`
	ShippingCity       string             `gorm:"size:128;not null" json:"shipping_city"`
	ShippingState      string             `gorm:"size:64;not null" json:"shipping_state"`
	ShippingZip        string             `gorm:"size:16;not null" json:"shipping_zip"`
	DeliveryPreference DeliveryPreference `gorm:"size:16;not null" json:"delivery_preference"`
	DeliveryDate       *time.Time         `json:"delivery_date"`
	DeliveryTime       string             `gorm:"size:32" json:"delivery_time"`
	ManagerName        string             `gorm:"size:255;not null" json:"manager_name"`
	ContactPhone       string             `gorm:"size:32;not null" json:"contact_phone"`
	Notes              string             `gorm:"type:text" json:"notes"`
	Items              []OrderItem        `gorm:"foreignKey:OrderId" json:"items"`
	ApprovedAt         *time.Time         `json:"approved_at"`
	DeliveredAt        *time.Time         `json:"delivered_at"`
	CancelledAt        *time.Time         `json:"cancelled_at"`
	CreatedAt          time.Time          `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o Order) GetCursor() string {
	return o.CreatedAt.String()
}

func (o Order) GetID() int {
	return o.ID
}

// OrderItem snapshots the product name and unit price at placement time, so
// later catalog edits never change what an order shows or refunds.
type OrderItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	OrderId     int             `gorm:"index;not null" json:"order_id"`
	ProductId   int             `gorm:"index;not null" json:"product_id"`
	VariantId   *int            `json:"variant_id"`
	ProductName string          `gorm:"size:255;not null" json:"product_name"`
	VariantName string          `gorm:"size:255" json:"variant_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

var ErrorOrderAccessDenied = errors.New("order does not belong to the requesting user")

// GetOrder loads an order with its items. Non-staff callers can only read
// their own orders.
func GetOrder(ctx context.Context, id int) (*Order, error) {
	order, err := utils.FetchModel[Order](ctx, id, "Items", "User")
	if err != nil {
		return nil, err
	}

	if isStaff, _ := utils.GetIsStaffFromContext(ctx); !isStaff {
		userId, ok := utils.GetUserIdFromContext(ctx)
		if !ok || order.UserId != userId {
			return nil, ErrorOrderAccessDenied
		}
	}
	return order, nil
}

// GetOrderForUpdate loads an order with a row lock inside tx. Used by the
// status workflow so concurrent transitions serialize on the order row.
func GetOrderForUpdate(tx *gorm.DB, ctx context.Context, id int) (*Order, error) {
	var order Order
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type OrderFilter struct {
	Status *OrderStatus
}

// PaginateUserOrders lists the calling user's orders, newest first. The
// composite cursor keeps orders created in the same second from repeating
// across pages.
func PaginateUserOrders(ctx context.Context, userId int, limit *int, after *string, filter *OrderFilter) ([]Edge[Order], *PageInfo, error) {
	pageSize := config.SearchLimit
	if limit != nil && *limit > 0 {
		pageSize = *limit
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userId)

	if filter != nil && filter.Status != nil {
		dbCtx.Where("status = ?", *filter.Status)
	}

	return FetchPageCompositeCursor[Order](dbCtx, pageSize, after, "created_at", "<")
}

// ListWarehouseQueue returns all orders in a status, oldest first, for the
// fulfilment views.
func ListWarehouseQueue(ctx context.Context, status OrderStatus) ([]*Order, error) {
	if !status.IsValid() {
		return nil, ErrorUnknownOrderStatus
	}

	db := config.GetDB()
	var orders []*Order
	err := db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
