package ratelimit

import (
	"context"
	"time"

	ulule "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts events per key against a fixed budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Memory is a process-local limiter used when no Redis is configured.
type Memory struct {
	lim *ulule.Limiter
}

// NewMemory constructs a limiter allowing max events per window per key.
func NewMemory(max int, window time.Duration) *Memory {
	store := memory.NewStoreWithOptions(ulule.StoreOptions{
		Prefix:          "tkp:collect",
		CleanUpInterval: window,
	})
	return &Memory{lim: ulule.New(store, ulule.Rate{Period: window, Limit: int64(max)})}
}

// Allow implements Limiter.
func (m *Memory) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := m.lim.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Limit:     int(res.Limit),
		Remaining: int(res.Remaining),
		Reset:     time.Unix(res.Reset, 0),
	}, nil
}
