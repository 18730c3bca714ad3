package utils

import (
	"context"
)

type contextKey string

const (
	StaffEmailKey contextKey = "staff_email"
	TokenKey      contextKey = "token"
)

func GetStaffEmailFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(StaffEmailKey)
	if val == nil {
		return "", false
	}

	email, ok := val.(string)
	return email, ok && email != ""
}

func SetStaffContext(ctx context.Context, staffEmail string) context.Context {
	return context.WithValue(ctx, StaffEmailKey, staffEmail)
}

// GetTokenFromContext returns the bearer token of the current staff session
func GetTokenFromContext(ctx context.Context) (string, bool) {
	tokenVal := ctx.Value(TokenKey)
	if tokenVal == nil {
		return "", false
	}

	token, ok := tokenVal.(string)
	return token, ok
}

// SetTokenContext stores the bearer token on the context
func SetTokenContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}
