package models

import (
	"context"
	"errors"
	"time"

	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/utils"
)

type ProductCategory struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name" binding:"required"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProductCategory struct {
	Name string `json:"name" binding:"required"`
}

func CreateProductCategory(ctx context.Context, input *NewProductCategory) (*ProductCategory, error) {
	if err := utils.ValidateUnique[ProductCategory](ctx, "name", input.Name, 0); err != nil {
		return nil, err
	}

	category := ProductCategory{
		Name:     input.Name,
		IsActive: utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func UpdateProductCategory(ctx context.Context, id int, input *NewProductCategory) (*ProductCategory, error) {
	category, err := utils.FetchModel[ProductCategory](ctx, id)
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := utils.ValidateUnique[ProductCategory](ctx, "name", input.Name, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(category).Updates(map[string]interface{}{
		"Name": input.Name,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[ProductCategory](id); err != nil {
		return nil, err
	}
	return category, nil
}

func DeleteProductCategory(ctx context.Context, id int) (*ProductCategory, error) {
	category, err := utils.FetchModel[ProductCategory](ctx, id)
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	// check if products exist under the category
	count, err := utils.ResourceCountWhere[Product](ctx, "category_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("category still has products")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(category).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[ProductCategory](id); err != nil {
		return nil, err
	}
	return category, nil
}

func ListAllProductCategories(ctx context.Context) ([]*ProductCategory, error) {
	return utils.FetchAllModels[ProductCategory](ctx, "is_active = ?", true)
}
