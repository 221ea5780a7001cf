package utils

import (
	"context"

	"github.com/freshfork/supply_backend/appctx"
)

type contextKey = appctx.ContextKey

var (
	contextKeyUserId        = appctx.ContextKeyUserId
	contextKeyUserName      = appctx.ContextKeyUserName
	contextKeyCorrelationId = appctx.ContextKeyCorrelationId
	contextKeyIsStaff       = appctx.ContextKeyIsStaff
)

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, contextKeyUserId)
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, contextKeyUserName)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, contextKeyCorrelationId)
}

func GetIsStaffFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, contextKeyIsStaff)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, contextKeyUserId, userId)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return appctx.Set(ctx, contextKeyUserName, userName)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, contextKeyCorrelationId, correlationId)
}

func SetIsStaffInContext(ctx context.Context, isStaff bool) context.Context {
	return appctx.Set(ctx, contextKeyIsStaff, isStaff)
}
