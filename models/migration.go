package models

import (
	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/utils"
)

// MigrateTable keeps the schema in sync on boot. Order matters: referenced
// tables migrate before the tables that point at them.
func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&User{},
		&ProductCategory{},
		&Product{},
		&ProductVariant{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&OrderEvent{},
	)
	utils.ErrorPanic(err)
}
