package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/ayush/blog/internal/models"
)

const redisPingTimeout = 5 * time.Second

// NewRedisClient connects the session backend and fails fast when the
// server is unreachable.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, oops.Code("SESSION_BACKEND_UNREACHABLE").With("addr", addr).
			Wrap(fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err))
	}
	return rdb, nil
}
