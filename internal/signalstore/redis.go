package signalstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fx-signal-bot/internal/types"

	"github.com/redis/go-redis/v9"
)

// Redis shares the last-signal state between bot replicas. Each instrument
// key holds "DIR|unixnano" and is swapped atomically with SET ... GET.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(addr, password string, db int, prefix string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{client: client, prefix: prefix}
}

// HealthCheck verifies Redis connectivity.
func (r *Redis) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(instrument string) string {
	return r.prefix + ":last_signal:" + instrument
}

func (r *Redis) CheckAndRecord(ctx context.Context, instrument string, dir types.Direction, at time.Time, within time.Duration) (bool, error) {
	ttl := within
	if ttl <= 0 {
		ttl = time.Minute
	}
	val := encode(dir, at)

	prev, err := r.client.SetArgs(ctx, r.key(instrument), val, redis.SetArgs{Get: true, TTL: ttl}).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	prevDir, prevAt, ok := decode(prev)
	if !ok {
		return false, nil
	}
	return opposes(prevDir, prevAt, dir, at, within), nil
}

func encode(dir types.Direction, at time.Time) string {
	return string(dir) + "|" + strconv.FormatInt(at.UnixNano(), 10)
}

func decode(s string) (types.Direction, time.Time, bool) {
	d, ts, found := strings.Cut(s, "|")
	if !found {
		return "", time.Time{}, false
	}
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return types.Direction(d), time.Unix(0, n), true
}
