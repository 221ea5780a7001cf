package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/models"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

// inventory-audit cross-checks the live inventory counters against the order
// book. It reports counters that have gone negative and, per product and
// variant, how many units are held by orders that are still in flight
// (placed but not yet delivered, cancelled, rejected or returned).

type auditRow struct {
	ProductId   int
	VariantId   int
	Name        string
	Current     int
	HeldByOrder int
}

func main() {
	envFile := flag.String("env", ".env", "Path to env file (optional)")
	verbose := flag.Bool("verbose", false, "Print every row, not just anomalies")
	flag.Parse()

	_ = godotenv.Load(*envFile)

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx := context.Background()

	rows, err := collectAuditRows(ctx, db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit query failed: %v\n", err)
		os.Exit(1)
	}

	anomalies := 0
	for _, row := range rows {
		negative := row.Current < 0
		if negative {
			anomalies++
		}
		if !*verbose && !negative && row.HeldByOrder == 0 {
			continue
		}
		marker := " "
		if negative {
			marker = "!"
		}
		scope := fmt.Sprintf("product %d", row.ProductId)
		if row.VariantId != 0 {
			scope = fmt.Sprintf("product %d variant %d", row.ProductId, row.VariantId)
		}
		fmt.Printf("%s %-40s %-28s current=%d held_by_open_orders=%d\n",
			marker, row.Name, scope, row.Current, row.HeldByOrder)
	}

	fmt.Printf("\naudited %d counters, %d negative\n", len(rows), anomalies)
	if anomalies > 0 {
		os.Exit(2)
	}
}

// openStatuses are the order states that still hold reserved stock.
var openStatuses = []models.OrderStatus{
	models.OrderStatusPending,
	models.OrderStatusApproved,
	models.OrderStatusProcessing,
	models.OrderStatusPacked,
	models.OrderStatusShipped,
}

func collectAuditRows(ctx context.Context, db *gorm.DB) ([]auditRow, error) {
	var rows []auditRow

	// Base-product counters: held units exclude lines that target a variant.
	err := db.WithContext(ctx).Raw(`
		SELECT p.id AS product_id, 0 AS variant_id, p.name AS name,
		       p.inventory_count AS current,
		       COALESCE(SUM(CASE WHEN o.status IN ? THEN oi.quantity ELSE 0 END), 0) AS held_by_order
		FROM products p
		LEFT JOIN order_items oi
		       ON oi.product_id = p.id AND oi.variant_id IS NULL
		LEFT JOIN orders o ON o.id = oi.order_id
		GROUP BY p.id, p.name, p.inventory_count
		ORDER BY p.id`, openStatuses).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var variantRows []auditRow
	err = db.WithContext(ctx).Raw(`
		SELECT v.product_id AS product_id, v.id AS variant_id,
		       CONCAT(p.name, ' / ', v.name) AS name,
		       v.inventory_count AS current,
		       COALESCE(SUM(CASE WHEN o.status IN ? THEN oi.quantity ELSE 0 END), 0) AS held_by_order
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		LEFT JOIN order_items oi ON oi.variant_id = v.id
		LEFT JOIN orders o ON o.id = oi.order_id
		GROUP BY v.product_id, v.id, p.name, v.name, v.inventory_count
		ORDER BY v.product_id, v.id`, openStatuses).
		Scan(&variantRows).Error
	if err != nil {
		return nil, err
	}

	return append(rows, variantRows...), nil
}
