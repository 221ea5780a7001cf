package models

import (
	"context"
	"errors"
	"time"

	"github.com/freshfork/supply_backend/config"
	"github.com/freshfork/supply_backend/utils"
)

// User is a franchisee account (or warehouse staff when IsStaff is set).
// Authentication/session mechanics live outside this service; requests arrive
// with the user id already resolved onto the context.
type User struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Email         string    `gorm:"size:255;uniqueIndex;not null" json:"email" binding:"required"`
	FranchiseName string    `gorm:"size:255" json:"franchise_name"`
	Phone         string    `gorm:"size:50" json:"phone"`
	IsStaff       *bool     `gorm:"not null;default:false" json:"is_staff"`
	IsActive      *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	FranchiseName string `json:"franchise_name"`
	Phone         string `json:"phone"`
	IsStaff       *bool  `json:"is_staff"`
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	if err := utils.ValidateUnique[User](ctx, "email", input.Email, 0); err != nil {
		return nil, err
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, err
		}
	}

	isStaff := input.IsStaff
	if isStaff == nil {
		isStaff = utils.NewFalse()
	}
	user := User{
		Name:          input.Name,
		Email:         input.Email,
		FranchiseName: input.FranchiseName,
		Phone:         input.Phone,
		IsStaff:       isStaff,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	return utils.FetchModel[User](ctx, id)
}

// CurrentUser resolves the requesting user from context.
func CurrentUser(ctx context.Context) (*User, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, errors.New("user id is required")
	}
	return utils.FetchModel[User](ctx, userId)
}
