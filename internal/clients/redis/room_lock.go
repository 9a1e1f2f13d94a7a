package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

var ErrLockTimeout = errors.New("redis room lock: timed out")

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
	RetryWait time.Duration
	MaxWait   time.Duration
}

// RoomLocker holds one Redis key per chat room while its membership changes.
type RoomLocker struct {
	log *logger.Logger
	rdb goredis.UniversalClient
	cfg Config
}

var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRoomLocker(log *logger.Logger, cfg Config) (*RoomLocker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRoomLockerWithClient(log, rdb, cfg), nil
}

func NewRoomLockerWithClient(log *logger.Logger, rdb goredis.UniversalClient, cfg Config) *RoomLocker {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "counselbridge:room-lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 50 * time.Millisecond
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 10 * time.Second
	}
	return &RoomLocker{log: log.With("client", "RedisRoomLocker"), rdb: rdb, cfg: cfg}
}

// Lock blocks until groupID is free, ctx is done or MaxWait elapses. The
// returned unlock only deletes the key while this holder still owns it.
func (l *RoomLocker) Lock(ctx context.Context, groupID string) (func(), error) {
	key := l.cfg.KeyPrefix + groupID
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.MaxWait)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: group %s", ErrLockTimeout, groupID)
		}
		t := time.NewTimer(l.cfg.RetryWait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return func() {
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := unlockScript.Run(unlockCtx, l.rdb, []string{key}, token).Err(); err != nil {
			l.log.Warn("room unlock failed, lock expires by ttl", "group_id", groupID, "error", err)
		}
	}, nil
}

func (l *RoomLocker) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
