package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/freshfork/supply_backend/appctx"
	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/models"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedVariant struct {
	name       string
	sku        string
	adjustment string
	stock      int
}

type seedProduct struct {
	name        string
	sku         string
	description string
	basePrice   string
	stock       int
	variants    []seedVariant
}

var seedCatalog = map[string][]seedProduct{
	"Proteins": {
		{name: "Chicken Breast", sku: "PR-CHB", description: "Boneless skinless, 10 lb case", basePrice: "42.50", stock: 120},
		{name: "Ground Beef 80/20", sku: "PR-GBF", description: "10 lb chub", basePrice: "38.00", stock: 90,
			variants: []seedVariant{
				{name: "Coarse Grind", sku: "PR-GBF-CG", adjustment: "0.00", stock: 40},
				{name: "Fine Grind", sku: "PR-GBF-FG", adjustment: "1.50", stock: 35},
			}},
	},
	"Produce": {
		{name: "Romaine Hearts", sku: "PD-ROM", description: "Case of 12", basePrice: "24.00", stock: 60},
		{name: "Roma Tomatoes", sku: "PD-TOM", description: "25 lb case", basePrice: "19.75", stock: 80},
	},
	"Dry Goods": {
		{name: "All-Purpose Flour", sku: "DG-APF", description: "50 lb bag", basePrice: "21.00", stock: 150,
			variants: []seedVariant{
				{name: "Bleached", sku: "DG-APF-BL", adjustment: "0.00", stock: 70},
				{name: "Unbleached", sku: "DG-APF-UB", adjustment: "2.25", stock: 55},
			}},
		{name: "Canola Oil", sku: "DG-CNO", description: "35 lb jug", basePrice: "33.40", stock: 45},
	},
	"Packaging": {
		{name: "Takeout Containers", sku: "PK-TOC", description: "9x9 hinged, case of 200", basePrice: "28.90", stock: 200},
	},
}

func main() {
	envFile := flag.String("env", ".env", "Path to env file (optional)")
	flag.Parse()

	_ = godotenv.Load(*envFile)

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx := context.WithValue(context.Background(), appctx.ContextKeyUserId, 0)
	ctx = context.WithValue(ctx, appctx.ContextKeyUserName, "SeedDemo")

	seedUsers(ctx, db)

	for categoryName, products := range seedCatalog {
		category, err := ensureCategory(ctx, db, categoryName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "category %q: %v\n", categoryName, err)
			os.Exit(1)
		}
		for _, p := range products {
			if err := ensureProduct(ctx, db, category.ID, p); err != nil {
				fmt.Fprintf(os.Stderr, "product %q: %v\n", p.name, err)
				os.Exit(1)
			}
		}
	}

	fmt.Println("seed complete")
}

func seedUsers(ctx context.Context, db *gorm.DB) {
	users := []models.NewUser{
		{Name: "Dana Reyes", Email: "dana@downtown.example.com", FranchiseName: "Downtown #014", Phone: "+12025550137"},
		{Name: "Marcus Webb", Email: "marcus@airport.example.com", FranchiseName: "Airport #022", Phone: "+12025550144"},
	}
	for _, u := range users {
		var count int64
		db.WithContext(ctx).Model(&models.User{}).Where("email = ?", u.Email).Count(&count)
		if count > 0 {
			continue
		}
		input := u
		if _, err := models.CreateUser(ctx, &input); err != nil {
			fmt.Fprintf(os.Stderr, "user %q: %v\n", u.Email, err)
		}
	}
}

func ensureCategory(ctx context.Context, db *gorm.DB, name string) (*models.ProductCategory, error) {
	var category models.ProductCategory
	err := db.WithContext(ctx).Where("name = ?", name).First(&category).Error
	if err == nil {
		return &category, nil
	}
	return models.CreateProductCategory(ctx, &models.NewProductCategory{Name: name})
}

func ensureProduct(ctx context.Context, db *gorm.DB, categoryId int, p seedProduct) error {
	var count int64
	db.WithContext(ctx).Model(&models.Product{}).Where("sku = ?", p.sku).Count(&count)
	if count > 0 {
		return nil
	}

	basePrice, err := decimal.NewFromString(p.basePrice)
	if err != nil {
		return err
	}
	stock := p.stock
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		CategoryId:     categoryId,
		Name:           p.name,
		Sku:            p.sku,
		Description:    p.description,
		BasePrice:      basePrice,
		InventoryCount: &stock,
	})
	if err != nil {
		return err
	}

	for _, v := range p.variants {
		adjustment, err := decimal.NewFromString(v.adjustment)
		if err != nil {
			return err
		}
		variantStock := v.stock
		_, err = models.CreateProductVariant(ctx, &models.NewProductVariant{
			ProductId:       product.ID,
			Name:            v.name,
			Sku:             v.sku,
			PriceAdjustment: adjustment,
			InventoryCount:  &variantStock,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
