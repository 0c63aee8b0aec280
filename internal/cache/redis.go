package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Seat maps are hot and cheap to rebuild, so the TTL stays short and lock
// transitions invalidate eagerly on top of it.
const seatMapTTL = 3 * time.Second

type RedisClient struct {
	client       *redis.Client
	usersHashKey string
}

func NewRedisClient() (*RedisClient, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	password := os.Getenv("REDIS_PASSWORD")
	usersHashKey := os.Getenv("REDIS_USERS_HASH_KEY")
	if usersHashKey == "" {
		usersHashKey = "users:auth"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client:       rdb,
		usersHashKey: usersHashKey,
	}, nil
}

// GetUserIDByAuth resolves Basic Auth credentials from the warm auth hash,
// avoiding a database round trip per request.
func (c *RedisClient) GetUserIDByAuth(ctx context.Context, email, passwordHash string) (int64, error) {
	authString := fmt.Sprintf("%s:%s", email, passwordHash)
	cacheKey := base64.StdEncoding.EncodeToString([]byte(authString))

	userIDStr, err := c.client.HGet(ctx, c.usersHashKey, cacheKey).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, fmt.Errorf("user not found in cache")
		}
		return 0, fmt.Errorf("cache lookup error: %w", err)
	}

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID in cache: %w", err)
	}

	return userID, nil
}

func seatMapKey(showtimeID string) string {
	return "seatmap:" + showtimeID
}

// GetSeatMapRaw returns the cached seat map JSON as-is to skip the
// unmarshal/marshal overhead on the hot path.
func (c *RedisClient) GetSeatMapRaw(ctx context.Context, showtimeID string) ([]byte, error) {
	data, err := c.client.Get(ctx, seatMapKey(showtimeID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("seat map not cached")
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return data, nil
}

func (c *RedisClient) SetSeatMap(ctx context.Context, showtimeID string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal seat map: %w", err)
	}
	return c.client.Set(ctx, seatMapKey(showtimeID), data, seatMapTTL).Err()
}

// InvalidateSeatMap drops the cached map after a lock or booking transition
// so the next render reflects the new seat states.
func (c *RedisClient) InvalidateSeatMap(ctx context.Context, showtimeID string) error {
	return c.client.Del(ctx, seatMapKey(showtimeID)).Err()
}

func (c *RedisClient) Close() error {
	return c.client.Close()
}
