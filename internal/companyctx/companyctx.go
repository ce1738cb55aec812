package companyctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// CompanyContextKey is the request context key for the selected company ID.
type CompanyContextKey struct{}

type requestIDKey struct{}

// WithCompanyID stores the company ID in the context.
func WithCompanyID(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, CompanyContextKey{}, strings.TrimSpace(companyID))
}

// CompanyIDFromContext returns the company ID from context, if set.
func CompanyIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	switch typed := ctx.Value(CompanyContextKey{}).(type) {
	case string:
		if typed == "" {
			return "", false
		}
		return typed, true
	case snowflake.ID:
		return typed.String(), true
	case int64:
		return snowflake.ID(typed).String(), true
	}
	return "", false
}

// ParseCompanyID validates a raw company id (a snowflake in base 10).
func ParseCompanyID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return "", false
	}
	return id.String(), true
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
