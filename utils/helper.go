package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/freshfork/supply_backend/config"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "US"

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	num, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return fmt.Errorf("invalid phone number: %v", err)
	}
	if !libphonenumber.IsValidNumber(num) {
		return errors.New("invalid phone number")
	}
	return nil
}

// ProcessValidationErrors flattens gin binding errors into field => message.
func ProcessValidationErrors(err error) map[string]string {
	errs := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldErr := range validationErrors {
			errs[fieldErr.Field()] = fmt.Sprintf("failed on '%s' validation", fieldErr.Tag())
		}
	} else {
		errs["error"] = err.Error()
	}
	return errs
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	if ptr != nil {
		return *ptr
	}
	var def T
	if len(defaults) > 0 {
		def = defaults[0]
	}
	return def
}

func NilIfZero[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// CartLock obtains a short-lived per-user lock around cart-mutating flows
// (placement clear, reorder merge) so two concurrent requests don't interleave
// line merges. Contention surfaces as ErrorCartBusy; correctness of inventory
// never depends on the lock, the DB row guards are authoritative.
func CartLock(ctx context.Context, userId int, moduleName string, functionName string) (*redislock.Lock, error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Avoid nil-pointer panics when Redis lock isn't initialized yet.
		config.LogError(logger, moduleName, functionName, "Redis lock not initialized", userId, errors.New("redis lock is nil"))
		return nil, errors.New("service not ready (redis lock not initialized)")
	}
	lockKey := fmt.Sprintf("cart:%d", userId)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain cart lock", userId, err)
		return nil, ErrorCartBusy
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining cart lock", userId, err)
		return nil, err
	}
	return lock, nil
}
