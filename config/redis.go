package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces every key the service writes, so one Redis can be
// shared with other applications.
const RedisKeyPrefix = "sehatec:"

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// RedisKey joins parts under the service prefix, e.g. sehatec:session:<id>.
func RedisKey(parts ...string) string {
	return RedisKeyPrefix + strings.Join(parts, ":")
}

// RedisEnabled reports whether REDIS_ENABLED asks for a Redis connection.
func RedisEnabled() bool {
	v, err := strconv.ParseBool(os.Getenv("REDIS_ENABLED"))
	return err == nil && v
}

// redisWanted is true when Redis is switched on explicitly or is the document store.
func redisWanted() bool {
	return RedisEnabled() || os.Getenv("STORAGE_BACKEND") == StorageBackendRedis
}

// redisOptions reads REDIS_URL, or REDIS_ADDR / REDIS_PASS / REDIS_DB when no URL is set.
func redisOptions() (*redis.Options, error) {
	if url := os.Getenv("REDIS_URL"); url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return opts, nil
	}

	opts := &redis.Options{Addr: getEnv("REDIS_ADDR", "localhost:6379")}
	opts.Password = getEnv("REDIS_PASS", os.Getenv("REDIS_PASSWORD"))
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_DB %q: %w", dbStr, err)
		}
		opts.DB = db
	}
	return opts, nil
}

// ConnectRedis opens the shared client used for the session mirror, the rate
// limiter and, with STORAGE_BACKEND=redis, the document store. It returns
// (nil, nil) when Redis is not wanted or the process runs under APPENV=test.
func ConnectRedis() (*redis.Client, error) {
	var err error
	redisOnce.Do(func() {
		if IsTest() || !redisWanted() {
			return
		}

		var opts *redis.Options
		if opts, err = redisOptions(); err != nil {
			return
		}
		rdb := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err = rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			err = fmt.Errorf("redis ping %s: %w", opts.Addr, err)
			return
		}

		redisClient = rdb
		log.Printf("Connected to Redis at %s (db %d)", opts.Addr, opts.DB)
	})
	return redisClient, err
}

// GetRedisClient returns the client opened by ConnectRedis, or nil.
func GetRedisClient() *redis.Client {
	return redisClient
}
