package companyctx

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestCompanyIDRoundTrip(t *testing.T) {
	ctx := WithCompanyID(context.Background(), " 1234 ")
	id, ok := CompanyIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "1234", id)
}

func TestCompanyIDAcceptsSnowflake(t *testing.T) {
	ctx := context.WithValue(context.Background(), CompanyContextKey{}, snowflake.ID(42))
	id, ok := CompanyIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "42", id)
}

func TestCompanyIDMissing(t *testing.T) {
	_, ok := CompanyIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = CompanyIDFromContext(WithCompanyID(context.Background(), "  "))
	assert.False(t, ok)
}

func TestParseCompanyID(t *testing.T) {
	id, ok := ParseCompanyID("0042")
	assert.True(t, ok)
	assert.Equal(t, "42", id)

	_, ok = ParseCompanyID("acme")
	assert.False(t, ok)
	_, ok = ParseCompanyID("-3")
	assert.False(t, ok)
}

func TestRequestID(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Equal(t, "req-1", RequestIDFromContext(WithRequestID(context.Background(), "req-1")))
}
