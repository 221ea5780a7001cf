package utils

import (
	"context"

	"github.com/freshfork/supply_backend/config"
)

/* DB fetching */

// FetchModel fetches a model by primary key.
// (may return ErrorRecordNotFound)
func FetchModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// FetchModelWhere fetches the first model matching the condition.
// (may return ErrorRecordNotFound)
func FetchModelWhere[T any](ctx context.Context, condition string, values ...interface{}) (*T, error) {
	db := config.GetDB()
	var result T
	err := db.WithContext(ctx).Where(condition, values...).First(&result).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// FetchAllModels fetches all models matching the condition.
func FetchAllModels[T any](ctx context.Context, condition string, values ...interface{}) ([]*T, error) {
	db := config.GetDB()
	var results []*T
	dbCtx := db.WithContext(ctx)
	if condition != "" {
		dbCtx = dbCtx.Where(condition, values...)
	}
	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
