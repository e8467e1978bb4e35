package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sentryd/sentryd/internal/config"
)

// NewClient dials Redis per cfg and pings it before returning. An empty
// cfg.Address means Redis is not configured; NewClient returns a nil
// client and nil error in that case, and New treats a nil client as a
// passthrough to the backing store.
func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
