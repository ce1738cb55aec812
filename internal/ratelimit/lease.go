package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// releaseIfHolder deletes the lease key only while it still carries the
// holder's token, so an expired lease taken over by another run survives.
const releaseIfHolder = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrLeaseJobEmpty = errors.New("lease_job_empty")
	ErrLeaseTTL      = errors.New("lease_ttl_invalid")
)

type leaseClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// JobLeases hands out at most one live lease per job name, e.g. the
// reminder sweep, so overlapping runs on different hosts skip instead of
// notifying twice.
type JobLeases struct {
	client  leaseClient
	release *redis.Script
	ttl     time.Duration
	now     func() time.Time
}

// Lease is a held job lease. ExpiresAt bounds how long the holder may run
// before another run can take the job over.
type Lease struct {
	Job       string
	ExpiresAt time.Time

	key    string
	holder string
	leases *JobLeases
}

func NewJobLeases(client leaseClient, ttl time.Duration) *JobLeases {
	if client == nil {
		return nil
	}
	return &JobLeases{
		client:  client,
		release: redis.NewScript(releaseIfHolder),
		ttl:     ttl,
		now:     time.Now,
	}
}

func jobKey(job string) string {
	return fmt.Sprintf(keyJob, job)
}

// Acquire takes the lease for job. ok is false when another run holds it.
func (j *JobLeases) Acquire(ctx context.Context, job string) (*Lease, bool, error) {
	job = strings.TrimSpace(job)
	if job == "" {
		return nil, false, ErrLeaseJobEmpty
	}
	if j.ttl <= 0 {
		return nil, false, ErrLeaseTTL
	}

	holder := uuid.NewString()
	key := jobKey(job)
	ok, err := j.client.SetNX(ctx, key, holder, j.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	return &Lease{
		Job:       job,
		ExpiresAt: j.now().Add(j.ttl),
		key:       key,
		holder:    holder,
		leases:    j,
	}, true, nil
}

// Release gives the job back. A lease that already expired and was taken
// by another run is left alone.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.leases == nil {
		return nil
	}
	return l.leases.release.Run(ctx, l.leases.client, []string{l.key}, l.holder).Err()
}
