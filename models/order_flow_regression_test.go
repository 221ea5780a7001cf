package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/models"
	"github.com/freshfork/supply_backend/utils"
	"github.com/freshfork/supply_backend/workflow"
	"github.com/shopspring/decimal"
)

// End-to-end order flow against real MySQL + Redis in throwaway docker
// containers: placement reserves stock atomically, a shortfall rolls every
// reservation back, cancel restores stock exactly once, reorder clamps to
// current availability, captured order prices survive later catalog edits,
// and a held cart lock surfaces as a busy error.

func TestOrderFlowReservesRestoresAndClampsStock(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "supply_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	user, err := models.CreateUser(ctx, &models.NewUser{
		Name:          "Dana Reyes",
		Email:         "dana@test.local",
		FranchiseName: "Downtown #014",
		Phone:         "+12025550137",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	ctx = utils.SetUserIdInContext(ctx, user.ID)
	ctx = utils.SetUserNameInContext(ctx, user.Name)

	category, err := models.CreateProductCategory(ctx, &models.NewProductCategory{Name: "Proteins"})
	if err != nil {
		t.Fatalf("CreateProductCategory: %v", err)
	}

	stock := 10
	chicken, err := models.CreateProduct(ctx, &models.NewProduct{
		CategoryId:     category.ID,
		Name:           "Chicken Breast",
		Sku:            "PR-CHB",
		BasePrice:      decimal.RequireFromString("42.50"),
		InventoryCount: &stock,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	variantStock := 5
	grind, err := models.CreateProductVariant(ctx, &models.NewProductVariant{
		ProductId:       chicken.ID,
		Name:            "Diced",
		Sku:             "PR-CHB-DC",
		PriceAdjustment: decimal.RequireFromString("1.50"),
		InventoryCount:  &variantStock,
	})
	if err != nil {
		t.Fatalf("CreateProductVariant: %v", err)
	}

	placeInput := &workflow.PlaceOrderInput{
		ShippingAddress:    "100 Main St",
		ShippingCity:       "Washington",
		ShippingState:      "DC",
		ShippingZip:        "20001",
		DeliveryPreference: "express",
		ManagerName:        "Dana Reyes",
		ContactPhone:       "+12025550137",
	}

	// 1) Shortfall: ask for more than stock; nothing may be reserved.
	if _, err := models.AddItemToCart(ctx, user.ID, &models.NewCartItem{
		ProductId: chicken.ID, Quantity: 4,
	}); err != nil {
		t.Fatalf("AddItemToCart: %v", err)
	}
	if _, err := models.AddItemToCart(ctx, user.ID, &models.NewCartItem{
		ProductId: chicken.ID, VariantId: &grind.ID, Quantity: 8,
	}); err != nil {
		t.Fatalf("AddItemToCart(variant): %v", err)
	}

	result, err := workflow.PlaceOrder(ctx, user.ID, placeInput)
	if err != nil {
		t.Fatalf("PlaceOrder(shortfall): %v", err)
	}
	if result.Order != nil {
		t.Fatalf("expected no order on shortfall, got %s", result.Order.OrderNumber)
	}
	if len(result.Shortfalls) != 1 {
		t.Fatalf("expected 1 shortfall, got %d: %+v", len(result.Shortfalls), result.Shortfalls)
	}
	assertStock(t, ctx, chicken.ID, 0, 10)
	assertStock(t, ctx, chicken.ID, grind.ID, 5)

	// The failed attempt must leave the cart intact.
	cart, err := models.GetCartWithItems(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetCartWithItems: %v", err)
	}
	if len(cart.Items) != 2 {
		t.Fatalf("expected cart preserved after shortfall, got %d items", len(cart.Items))
	}

	// 2) Fix the variant line and place for real.
	if _, err := models.UpdateCartItem(ctx, user.ID, cart.Items[1].ID, 5); err != nil {
		t.Fatalf("UpdateCartItem: %v", err)
	}
	result, err = workflow.PlaceOrder(ctx, user.ID, placeInput)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if result.Order == nil {
		t.Fatalf("expected an order, got shortfalls: %+v", result.Shortfalls)
	}
	order := result.Order
	if order.Status != models.OrderStatusPending {
		t.Fatalf("new order status = %s, want pending", order.Status)
	}
	// 4 * 42.50 + 5 * 44.00 = 390.00; tax 31.20; express shipping 15.
	if !order.TotalAmount.Equal(decimal.RequireFromString("436.20")) {
		t.Fatalf("order total = %s, want 436.20", order.TotalAmount)
	}
	assertStock(t, ctx, chicken.ID, 0, 6)
	assertStock(t, ctx, chicken.ID, grind.ID, 0)

	cart, err = models.GetCartWithItems(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetCartWithItems: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected cart cleared after placement, got %d items", len(cart.Items))
	}

	// An outbox row must exist for the placement.
	var eventCount int64
	if err := db.WithContext(ctx).Model(&models.OrderEvent{}).
		Where("order_id = ? AND event_type = ?", order.ID, models.OrderEventTypePlaced).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count order events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected 1 placement event, got %d", eventCount)
	}

	// 3) Cancel restores stock; repeating the cancel is a no-op.
	if _, err := workflow.CancelOrder(ctx, order.ID); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	assertStock(t, ctx, chicken.ID, 0, 10)
	assertStock(t, ctx, chicken.ID, grind.ID, 5)

	if _, err := workflow.CancelOrder(ctx, order.ID); err != nil {
		t.Fatalf("CancelOrder(repeat): %v", err)
	}
	assertStock(t, ctx, chicken.ID, 0, 10)
	assertStock(t, ctx, chicken.ID, grind.ID, 5)

	// 4) Reorder clamps to what is now on the shelf.
	if _, err := models.AdjustProductInventory(ctx, chicken.ID, 2); err != nil {
		t.Fatalf("AdjustProductInventory: %v", err)
	}
	reorder, err := workflow.ReorderIntoCart(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("ReorderIntoCart: %v", err)
	}
	if reorder.Unusable {
		t.Fatalf("reorder unusable; issues: %+v", reorder.Issues)
	}
	if len(reorder.Issues) != 1 {
		t.Fatalf("expected 1 clamp issue, got %d: %+v", len(reorder.Issues), reorder.Issues)
	}
	cart = reorder.Cart
	if len(cart.Items) != 2 {
		t.Fatalf("expected 2 staged lines, got %d", len(cart.Items))
	}
	for _, item := range cart.Items {
		if item.VariantId == nil && item.Quantity != 2 {
			t.Fatalf("base line staged %d, want clamp to 2", item.Quantity)
		}
		if item.VariantId != nil && item.Quantity != 5 {
			t.Fatalf("variant line staged %d, want 5", item.Quantity)
		}
	}

	// Reorder must not touch stock.
	assertStock(t, ctx, chicken.ID, 0, 2)
	assertStock(t, ctx, chicken.ID, grind.ID, 5)

	// 5) Captured order prices survive catalog price changes.
	if _, err := models.UpdateProduct(ctx, chicken.ID, &models.UpdateProductInput{
		BasePrice: decimalPtr("60.00"),
	}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	placed, err := models.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder after price change: %v", err)
	}
	for _, item := range placed.Items {
		want := "42.50"
		if item.VariantId != nil {
			want = "44.00"
		}
		if !item.UnitPrice.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("order item unit price = %s after catalog edit, want %s", item.UnitPrice, want)
		}
		if !item.LineTotal.Equal(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))) {
			t.Fatalf("order item line total = %s, want %s x %d", item.LineTotal, item.UnitPrice, item.Quantity)
		}
	}
	if !placed.TotalAmount.Equal(decimal.RequireFromString("436.20")) {
		t.Fatalf("order total = %s after catalog edit, want 436.20", placed.TotalAmount)
	}

	// 6) A held cart lock makes checkout report busy without touching stock.
	held, err := config.GetRedisLock().Obtain(ctx, fmt.Sprintf("cart:%d", user.ID), 30*time.Second, nil)
	if err != nil {
		t.Fatalf("obtain cart lock: %v", err)
	}
	_, err = workflow.PlaceOrder(ctx, user.ID, placeInput)
	if !errors.Is(err, utils.ErrorCartBusy) {
		t.Fatalf("PlaceOrder under held lock: err = %v, want ErrorCartBusy", err)
	}
	if err := held.Release(ctx); err != nil {
		t.Fatalf("release cart lock: %v", err)
	}
	assertStock(t, ctx, chicken.ID, 0, 2)
	assertStock(t, ctx, chicken.ID, grind.ID, 5)
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func assertStock(t *testing.T, ctx context.Context, productId int, variantId int, want int) {
	t.Helper()
	got, err := models.AvailableStock(ctx, productId, variantId)
	if err != nil {
		t.Fatalf("AvailableStock(%d,%d): %v", productId, variantId, err)
	}
	if got != want {
		t.Fatalf("stock(product=%d variant=%d) = %d, want %d", productId, variantId, got, want)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("supply-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("supply-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=supply_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
