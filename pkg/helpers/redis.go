package helpers

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns a client for sessions and rate limits. Timeouts are
// short so a slow Redis degrades requests instead of hanging them.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}
