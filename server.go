package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/middlewares"
	"github.com/freshfork/supply_backend/models"
	"github.com/freshfork/supply_backend/utils"
	"github.com/freshfork/supply_backend/workflow"
)

const defaultPort = "8080"

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// respondError translates workflow and model errors to HTTP statuses. Only
// unexpected errors become 500s; everything the client can act on keeps its
// message.
func respondError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(validationErrs)})
	case errors.Is(err, workflow.ErrEmptyCart),
		errors.Is(err, utils.ErrorInvalidQuantity),
		errors.Is(err, utils.ErrorNegativeInventory),
		errors.Is(err, models.ErrorUnknownOrderStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrorOrderAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, workflow.ErrIllegalTransition), errors.Is(err, utils.ErrorCartBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func currentUserId(c *gin.Context) (int, bool) {
	userId, ok := utils.GetUserIdFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return 0, false
	}
	return userId, true
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", name)})
		return 0, false
	}
	return id, true
}

func cursorParams(c *gin.Context) (*int, *string, bool) {
	var after *string
	if raw := strings.TrimSpace(c.Query("after")); raw != "" {
		after = &raw
	}
	var limit *int
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return nil, nil, false
		}
		limit = &n
	}
	return limit, after, true
}

func getCurrentUserHandler(c *gin.Context) {
	user, err := models.CurrentUser(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func createUserHandler(c *gin.Context) {
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	user, err := models.CreateUser(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func listCategoriesHandler(c *gin.Context) {
	categories, err := models.ListAllProductCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func createCategoryHandler(c *gin.Context) {
	var input models.NewProductCategory
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	category, err := models.CreateProductCategory(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func updateCategoryHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var input models.NewProductCategory
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	category, err := models.UpdateProductCategory(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func deleteCategoryHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	if _, err := models.DeleteProductCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func listProductsHandler(c *gin.Context) {
	limit, after, ok := cursorParams(c)
	if !ok {
		return
	}

	filter := models.ProductFilter{}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.Search = &search
	}
	if raw := strings.TrimSpace(c.Query("category_id")); raw != "" {
		categoryId, err := strconv.Atoi(raw)
		if err != nil || categoryId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id"})
			return
		}
		filter.CategoryId = &categoryId
	}
	if strings.EqualFold(c.Query("in_stock"), "true") {
		filter.InStock = utils.NewTrue()
	}

	edges, pageInfo, err := models.PaginateProducts(c.Request.Context(), limit, after, &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"edges": edges, "page_info": pageInfo})
}

func getProductHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	product, err := models.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func createProductHandler(c *gin.Context) {
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	product, err := models.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func updateProductHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var input models.UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	product, err := models.UpdateProduct(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type inventoryAdjustRequest struct {
	InventoryCount *int `json:"inventory_count" binding:"required"`
}

func adjustProductInventoryHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req inventoryAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	product, err := models.AdjustProductInventory(c.Request.Context(), id, *req.InventoryCount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func createVariantHandler(c *gin.Context) {
	var input models.NewProductVariant
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	variant, err := models.CreateProductVariant(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, variant)
}

func updateVariantHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var input models.UpdateProductVariantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	variant, err := models.UpdateProductVariant(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, variant)
}

func adjustVariantInventoryHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req inventoryAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	variant, err := models.AdjustVariantInventory(c.Request.Context(), id, *req.InventoryCount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, variant)
}

func getCartHandler(c *gin.Context) {
	userId, ok := currentUserId(c)
	if !ok {
		return
	}
	cart, err := models.GetCartWithItems(c.Request.Context(), userId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func addCartItemHandler(c *gin.Context) {
	userId, ok := currentUserId(c)
	if !ok {
		return
	}
	var input models.NewCartItem
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	cart, err := models.AddItemToCart(c.Request.Context(), userId, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func updateCartItemHandler(c *gin.Context) {
	userId, ok := currentUserId(c)
	if !ok {
		return
	}
	itemId, ok := pathId(c, "itemId")
	if !ok {
		return
	}
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	cart, err := models.UpdateCartItem(c.Request.Context(), userId, itemId, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func removeCartItemHandler(c *gin.Context) {
	userId, ok := currentUserId(c)
	if !ok {
		return
	}
	itemId, ok := pathId(c, "itemId")
	if !ok {
		return
	}
	cart, err := models.RemoveCartItem(c.Request.Context(), userId, itemId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func clearCartHandler(c *gin.Context) {
	userId, ok := currentUserId(c)
	if !ok {
		return
	}
	if err := models.ClearCart(c.Request.Context(), userId); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func placeOrderHandler(c *gin.Context) {
	userId, ok := currentUserId(c)
	if !ok {
		return
	}
	var input workflow.PlaceOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	result, err := workflow.PlaceOrder(c.Request.Context(), userId, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(result.Shortfalls) > 0 {
		// 409: the cart conflicts with current stock; nothing was reserved.
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func listOrdersHandler(c *gin.Context) {
	userId, ok := currentUserId(c)
	if !ok {
		return
	}
	limit, after, ok := cursorParams(c)
	if !ok {
		return
	}

	filter := models.OrderFilter{}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := models.ParseOrderStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Status = &status
	}

	edges, pageInfo, err := models.PaginateUserOrders(c.Request.Context(), userId, limit, after, &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"edges": edges, "page_info": pageInfo})
}

func getOrderHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	order, err := models.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func cancelOrderHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	order, err := workflow.CancelOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func reorderHandler(c *gin.Context) {
	userId, ok := currentUserId(c)
	if !ok {
		return
	}
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	result, err := workflow.ReorderIntoCart(c.Request.Context(), userId, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if result.Unusable {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

type statusTransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

func transitionOrderStatusHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req statusTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	order, err := workflow.TransitionOrderStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func warehouseQueueHandler(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("status"))
	if raw == "" {
		raw = string(models.OrderStatusPending)
	}
	status, err := models.ParseOrderStatus(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	orders, err := models.ListWarehouseQueue(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// orderEventReplayHandler requeues DEAD or FAILED outbox rows for another
// publish attempt. Ops tooling; staff only.
func orderEventReplayHandler(c *gin.Context) {
	db := config.GetDB()
	result := db.WithContext(c.Request.Context()).Model(&models.OrderEvent{}).
		Where("publish_status IN (?, ?)", models.PublishStatusDead, models.PublishStatusFailed).
		Updates(map[string]interface{}{
			"publish_status":  models.PublishStatusPending,
			"attempts":        0,
			"next_attempt_at": time.Now().UTC(),
		})
	if result.Error != nil {
		respondError(c, result.Error)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requeued": result.RowsAffected})
}

func registerRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.Use(middlewares.SessionMiddleware())

	api.GET("/me", getCurrentUserHandler)

	api.GET("/catalog/categories", listCategoriesHandler)
	api.GET("/catalog/products", listProductsHandler)
	api.GET("/catalog/products/:id", getProductHandler)

	api.GET("/cart", getCartHandler)
	api.POST("/cart/items", addCartItemHandler)
	api.PUT("/cart/items/:itemId", updateCartItemHandler)
	api.DELETE("/cart/items/:itemId", removeCartItemHandler)
	api.DELETE("/cart", clearCartHandler)

	api.POST("/orders", placeOrderHandler)
	api.GET("/orders", listOrdersHandler)
	api.GET("/orders/:id", getOrderHandler)
	api.POST("/orders/:id/cancel", cancelOrderHandler)
	api.POST("/orders/:id/reorder", reorderHandler)

	staff := api.Group("")
	staff.Use(middlewares.RequireStaff())
	staff.POST("/users", createUserHandler)
	staff.POST("/catalog/categories", createCategoryHandler)
	staff.PUT("/catalog/categories/:id", updateCategoryHandler)
	staff.DELETE("/catalog/categories/:id", deleteCategoryHandler)
	staff.POST("/catalog/products", createProductHandler)
	staff.PUT("/catalog/products/:id", updateProductHandler)
	staff.PUT("/catalog/products/:id/inventory", adjustProductInventoryHandler)
	staff.POST("/catalog/variants", createVariantHandler)
	staff.PUT("/catalog/variants/:id", updateVariantHandler)
	staff.PUT("/catalog/variants/:id/inventory", adjustVariantInventoryHandler)
	staff.GET("/warehouse/orders", warehouseQueueHandler)
	staff.POST("/orders/:id/status", transitionOrderStatusHandler)
	staff.POST("/internal/ops/order-events/replay", orderEventReplayHandler)
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "X-User-Id", "X-User-Name", "X-Is-Staff")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	registerRoutes(r)
	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Now DB is ready; run migrations.
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Start the outbox dispatcher (publishes AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	go workflow.StartOrderEventDispatcher(dispatcherCtx)

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelDispatcher()

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}
