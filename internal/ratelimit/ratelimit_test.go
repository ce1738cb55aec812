package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/folio/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeScripter answers every script call with a canned reply.
type fakeScripter struct {
	reply []any
	keys  []string
}

func (f *fakeScripter) reply0(ctx context.Context, keys []string) *redis.Cmd {
	f.keys = keys
	cmd := redis.NewCmd(ctx)
	cmd.SetVal(f.reply)
	return cmd
}

func (f *fakeScripter) Eval(ctx context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return f.reply0(ctx, keys)
}

func (f *fakeScripter) EvalSha(ctx context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return f.reply0(ctx, keys)
}

func (f *fakeScripter) EvalRO(ctx context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return f.reply0(ctx, keys)
}

func (f *fakeScripter) EvalShaRO(ctx context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return f.reply0(ctx, keys)
}

func (f *fakeScripter) ScriptExists(ctx context.Context, _ ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceCmd(ctx)
}

func (f *fakeScripter) ScriptLoad(ctx context.Context, _ string) *redis.StringCmd {
	return redis.NewStringCmd(ctx)
}

func TestTokenBucketAllowed(t *testing.T) {
	fake := &fakeScripter{reply: []any{int64(1), "4.5", int64(1760000000000)}}
	res, err := NewTokenBucket(fake).Allow(context.Background(), "folio:render:company:1", 1, 5)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 5, res.Limit)
	assert.Equal(t, 4, res.Remaining)
	assert.Zero(t, res.RetryAfter)
	assert.Equal(t, []string{"folio:render:company:1"}, fake.keys)
}

func TestTokenBucketDenied(t *testing.T) {
	fake := &fakeScripter{reply: []any{int64(0), "0.5", int64(1760000000000)}}
	res, err := NewTokenBucket(fake).Allow(context.Background(), "k", 2, 5)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 250*time.Millisecond, res.RetryAfter)
}

func TestTokenBucketRejectsBadInput(t *testing.T) {
	var nilBucket *TokenBucket
	_, err := nilBucket.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)

	b := NewTokenBucket(&fakeScripter{reply: []any{int64(1)}})
	_, err = b.Allow(context.Background(), "", 1, 1)
	assert.Error(t, err)
	_, err = b.Allow(context.Background(), "k", 0, 1)
	assert.Error(t, err)
	_, err = b.Allow(context.Background(), "k", 1, 1)
	assert.ErrorContains(t, err, "invalid rate limit script response")
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 10*time.Second, bucketTTL(1, 5))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	l, err := NewLimiter(nil, config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, l)
	assert.False(t, l.Enabled())

	res, err := l.AllowRender(context.Background(), "1843021011205402624")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	release, acquired, err := l.AcquireJob(context.Background(), "remind")
	require.NoError(t, err)
	assert.True(t, acquired)
	release()
}

func TestNewLimiterValidatesConfig(t *testing.T) {
	_, err := NewLimiter(nil, config.Config{RateLimit: config.RateLimitConfig{Enabled: true}}, zap.NewNop())
	assert.ErrorContains(t, err, "redis addr")

	_, err = NewLimiter(nil, config.Config{RateLimit: config.RateLimitConfig{Enabled: true, RedisAddr: "localhost:6379"}}, zap.NewNop())
	assert.ErrorContains(t, err, "must be positive")
}

type fakeLeaseClient struct {
	*fakeScripter
	taken map[string]interface{}
}

func (f *fakeLeaseClient) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	if _, held := f.taken[key]; held {
		return redis.NewBoolResult(false, nil)
	}
	f.taken[key] = value
	return redis.NewBoolResult(true, nil)
}

func TestJobLeaseIsExclusive(t *testing.T) {
	client := &fakeLeaseClient{fakeScripter: &fakeScripter{reply: []any{int64(1)}}, taken: map[string]interface{}{}}
	leases := NewJobLeases(client, time.Minute)
	now := time.Date(2026, time.October, 16, 8, 0, 0, 0, time.UTC)
	leases.now = func() time.Time { return now }
	ctx := context.Background()

	lease, ok, err := leases.Acquire(ctx, " remind ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "remind", lease.Job)
	assert.Equal(t, now.Add(time.Minute), lease.ExpiresAt)
	assert.Equal(t, lease.holder, client.taken["folio:job:remind"])

	second, ok, err := leases.Acquire(ctx, "remind")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, second)

	require.NoError(t, lease.Release(ctx))
	assert.Equal(t, []string{"folio:job:remind"}, client.keys)
}

func TestJobLeaseRejectsBadInput(t *testing.T) {
	client := &fakeLeaseClient{fakeScripter: &fakeScripter{}, taken: map[string]interface{}{}}
	ctx := context.Background()

	_, _, err := NewJobLeases(client, time.Minute).Acquire(ctx, "  ")
	assert.ErrorIs(t, err, ErrLeaseJobEmpty)
	_, _, err = NewJobLeases(client, 0).Acquire(ctx, "remind")
	assert.ErrorIs(t, err, ErrLeaseTTL)

	var nilLease *Lease
	assert.NoError(t, nilLease.Release(ctx))
	assert.Nil(t, NewJobLeases(nil, time.Minute))
}
