package utils

import (
	"context"
	"errors"

	"github.com/freshfork/supply_backend/config"
)

// ValidateResourceId checks existence of a model of type T with the given id.
func ValidateResourceId[T any](ctx context.Context, id interface{}) error {
	db := config.GetDB()
	var count int64
	var model T
	dbCtx := db.WithContext(ctx).Model(&model).Where("id = ?", id)
	if err := dbCtx.Count(&count).Error; err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// ValidateUnique checks uniqueness of column's value against existing records,
// except the record with the given id. (exceptId = 0 for create)
func ValidateUnique[T any](ctx context.Context, column string, value interface{}, exceptId interface{}) error {
	db := config.GetDB()
	var count int64
	var model T
	dbCtx := db.WithContext(ctx).Model(&model).Where(column+" = ?", value)
	if exceptId != 0 {
		dbCtx.Where("id != ?", exceptId)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New(column + " already exists")
	}
	return nil
}

func ResourceCountWhere[T any](ctx context.Context, condition string, value ...interface{}) (int64, error) {
	db := config.GetDB()
	var count int64
	var model T
	dbCtx := db.WithContext(ctx).Model(&model).Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
