package auth

import (
	"context"
	"group-chat/domain/chat"
	"group-chat/errors"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// Provider yields the verified identity of the caller.
type Provider interface {
	CurrentUser(ctx context.Context) (chat.UserID, error)
}

// ContextProvider reads the identity injected by the HTTP edge after token validation.
type ContextProvider struct{}

func (ContextProvider) CurrentUser(ctx context.Context) (chat.UserID, error) {
	userID, ok := ctx.Value(UserIDKey).(chat.UserID)
	if !ok || userID == "" {
		return "", errors.ErrUnauthenticated
	}
	return userID, nil
}

func WithUser(ctx context.Context, userID chat.UserID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
