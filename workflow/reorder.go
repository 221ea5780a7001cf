package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/models"
	"github.com/freshfork/supply_backend/utils"
	"gorm.io/gorm"
)

// ReorderIssue explains why a past order line was dropped or reduced while
// staging a reorder.
type ReorderIssue struct {
	ProductId int    `json:"product_id"`
	VariantId *int   `json:"variant_id"`
	Message   string `json:"message"`
}

// ReorderResult reports what a reorder staged. Unusable is set when not one
// line from the past order could be added, in which case the cart is
// untouched.
type ReorderResult struct {
	Cart       *models.Cart   `json:"cart"`
	Issues     []ReorderIssue `json:"issues,omitempty"`
	StagedQty  int            `json:"staged_qty"`
	Unusable   bool           `json:"unusable"`
}

// reorderPlan is the outcome of reconciling one past line against current
// stock and the current cart. addQty of zero means the line is skipped.
type reorderPlan struct {
	addQty int
	issue  string
}

// planReorderLine clamps a requested quantity to what stock allows after
// counting units already in the cart. Pure so the clamp rules are unit
// testable.
func planReorderLine(productLabel string, requested int, available int, alreadyInCart int) reorderPlan {
	if available <= 0 {
		return reorderPlan{issue: fmt.Sprintf("'%s' is out of stock.", productLabel)}
	}

	capacity := available - alreadyInCart
	if capacity <= 0 {
		return reorderPlan{issue: fmt.Sprintf(
			"'%s' is already in your cart at the available limit (%d).", productLabel, available)}
	}
	if requested > capacity {
		return reorderPlan{
			addQty: capacity,
			issue: fmt.Sprintf("Only %d units of '%s' are available (requested %d).",
				available, productLabel, requested),
		}
	}
	return reorderPlan{addQty: requested}
}

func reorderLabel(productName string, variantName string) string {
	if variantName != "" {
		return fmt.Sprintf("%s (%s)", productName, variantName)
	}
	return productName
}

// ReorderIntoCart stages the lines of a past order into the user's cart,
// clamped to current stock. The past order itself is never modified and no
// stock is reserved; reservation happens at checkout.
func ReorderIntoCart(ctx context.Context, userId int, orderId int) (*ReorderResult, error) {
	functionName := "ReorderIntoCart"
	logger := config.GetLogger()

	order, err := models.GetOrder(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if order.UserId != userId {
		return nil, models.ErrorOrderAccessDenied
	}

	lock, err := utils.CartLock(ctx, userId, moduleName, functionName)
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	cart, err := models.GetCartWithItems(ctx, userId)
	if err != nil {
		return nil, err
	}

	inCart := map[string]int{}
	for _, item := range cart.Items {
		inCart[cartLineKey(item.ProductId, item.VariantId)] += item.Quantity
	}

	var (
		issues []ReorderIssue
		adds   []models.NewCartItem
		staged int
	)

	for _, item := range order.Items {
		product, variant, err := currentCatalogLine(ctx, &item)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, utils.ErrorRecordNotFound) {
				issues = append(issues, ReorderIssue{
					ProductId: item.ProductId,
					VariantId: item.VariantId,
					Message:   fmt.Sprintf("Product ID %d is no longer available.", item.ProductId),
				})
				continue
			}
			config.LogError(logger, moduleName, functionName, "resolve order line", item, err)
			return nil, err
		}

		available := product.InventoryCount
		variantName := ""
		if variant != nil {
			available = variant.InventoryCount
			variantName = variant.Name
		}

		label := reorderLabel(product.Name, variantName)
		plan := planReorderLine(label, item.Quantity, available, inCart[cartLineKey(item.ProductId, item.VariantId)])
		if plan.issue != "" {
			issues = append(issues, ReorderIssue{
				ProductId: item.ProductId,
				VariantId: item.VariantId,
				Message:   plan.issue,
			})
		}
		if plan.addQty > 0 {
			adds = append(adds, models.NewCartItem{
				ProductId: item.ProductId,
				VariantId: item.VariantId,
				Quantity:  plan.addQty,
			})
			staged += plan.addQty
			inCart[cartLineKey(item.ProductId, item.VariantId)] += plan.addQty
		}
	}

	if len(adds) == 0 {
		return &ReorderResult{Cart: cart, Issues: issues, Unusable: true}, nil
	}

	// Stage every line in one transaction: the cart gains all planned lines
	// or none of them.
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, add := range adds {
			if err := models.MergeCartLine(tx, ctx, cart.ID, add.ProductId, add.VariantId, add.Quantity); err != nil {
				config.LogError(logger, moduleName, functionName, "stage reorder line", add, err)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cart, err = models.GetCartWithItems(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &ReorderResult{Cart: cart, Issues: issues, StagedQty: staged}, nil
}

func currentCatalogLine(ctx context.Context, item *models.OrderItem) (*models.Product, *models.ProductVariant, error) {
	product, err := utils.FetchModelWhere[models.Product](ctx, "id = ? AND is_active = ?", item.ProductId, true)
	if err != nil {
		return nil, nil, err
	}

	if item.VariantId == nil {
		return product, nil, nil
	}
	variant, err := utils.FetchModelWhere[models.ProductVariant](ctx,
		"id = ? AND product_id = ? AND is_active = ?", *item.VariantId, item.ProductId, true)
	if err != nil {
		return nil, nil, err
	}
	return product, variant, nil
}

func cartLineKey(productId int, variantId *int) string {
	if variantId == nil {
		return fmt.Sprintf("%d", productId)
	}
	return fmt.Sprintf("%d:%d", productId, *variantId)
}
