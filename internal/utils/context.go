package utils

import (
	"context"
)

type contextKey string

// ContextUserIDKey carries the Firebase UID of an authenticated client.
const ContextUserIDKey contextKey = "userID"

// ContextKeyNameKey carries the name of the API key used by a service caller.
const ContextKeyNameKey contextKey = "keyName"

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID := ctx.Value(ContextUserIDKey)
	userIDStr, ok := userID.(string)
	return userIDStr, ok
}

func GetKeyNameFromContext(ctx context.Context) (string, bool) {
	name := ctx.Value(ContextKeyNameKey)
	nameStr, ok := name.(string)
	return nameStr, ok
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserIDKey, userID)
}

func WithKeyName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextKeyNameKey, name)
}
