package config

import (
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisEnabled(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"false": false,
		"0":     false,
		"true":  true,
		"1":     true,
		"maybe": false,
	}
	for value, want := range cases {
		t.Setenv("REDIS_ENABLED", value)
		assert.Equal(t, want, RedisEnabled(), "REDIS_ENABLED=%q", value)
	}
}

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "sehatec:patients", RedisKey("patients"))
	assert.Equal(t, "sehatec:session:abc", RedisKey("session", "abc"))
	assert.Equal(t, "sehatec:ratelimit:/login:10.0.0.1", RedisKey("ratelimit", "/login", "10.0.0.1"))
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_PASS", "s3cret")
	t.Setenv("REDIS_DB", "2")

	opts, err := redisOptions()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "s3cret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	t.Setenv("REDIS_DB", "two")
	_, err = redisOptions()
	assert.Error(t, err)

	t.Setenv("REDIS_URL", "redis://:pw@redis.internal:6379/4")
	opts, err = redisOptions()
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 4, opts.DB)
}

func TestRedisWanted(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("STORAGE_BACKEND", StorageBackendDatabase)
	assert.False(t, redisWanted())

	t.Setenv("STORAGE_BACKEND", StorageBackendRedis)
	assert.True(t, redisWanted())
}

func TestConnectRedis_Disabled(t *testing.T) {
	t.Setenv("APPENV", "production")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("STORAGE_BACKEND", StorageBackendDatabase)
	ResetRedisClientForTest()
	t.Cleanup(ResetRedisClientForTest)

	rdb, err := ConnectRedis()
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestConnectRedis_SkippedInTestEnv(t *testing.T) {
	t.Setenv("APPENV", "test")
	t.Setenv("REDIS_ENABLED", "true")
	ResetRedisClientForTest()
	t.Cleanup(ResetRedisClientForTest)

	rdb, err := ConnectRedis()
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestConnectRedis_ConcurrentCalls(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("STORAGE_BACKEND", "")
	ResetRedisClientForTest()
	t.Cleanup(ResetRedisClientForTest)

	type callResult struct {
		rdb interface{}
		err error
	}
	done := make(chan callResult, 5)
	for i := 0; i < 5; i++ {
		go func() {
			rdb, err := ConnectRedis()
			done <- callResult{rdb: rdb, err: err}
		}()
	}

	for i := 0; i < 5; i++ {
		res := <-done
		assert.NoError(t, res.err)
		assert.Nil(t, res.rdb)
	}
}

func TestRedisTestHelpers_SetAndReset(t *testing.T) {
	original := GetRedisClient()
	t.Cleanup(func() { SetRedisClientForTest(original) })

	client, _ := redismock.NewClientMock()
	defer client.Close()

	SetRedisClientForTest(client)
	assert.Equal(t, client, GetRedisClient())

	ResetRedisClientForTest()
	assert.Nil(t, GetRedisClient())
}
