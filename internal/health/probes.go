package health

import (
	"context"
	"fmt"
	"os"

	redis "github.com/redis/go-redis/v9"
)

// FileProbe reports whether path can be opened for reading.
func FileProbe(name, path string) Probe {
	return Probe{Name: name, Check: func(context.Context) error {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		return f.Close()
	}}
}

// RedisProbe pings the client.
func RedisProbe(client *redis.Client) Probe {
	return Probe{Name: "redis", Check: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}
