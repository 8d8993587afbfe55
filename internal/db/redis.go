package db

import "github.com/redis/go-redis/v9"

// NewRedisClient builds a redis client for the summary cache. Returns nil
// when no address is configured, which disables caching entirely.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
