package utils

import (
	"context"
)

type contextKey string

const ContextSessionIDKey contextKey = "sessionID"

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextSessionIDKey, id)
}

func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextSessionIDKey).(string)
	return id, ok && id != ""
}
