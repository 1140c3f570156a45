// Package lock — распределенная блокировка бронирования на Redis.
// Ключ берется по врачу: два конкурирующих запроса на любые слоты одного
// врача сериализуются еще до обращения к базе.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("блокировка врача уже занята")

type Locker interface {
	WithDoctorLock(ctx context.Context, doctorID int64, fn func(ctx context.Context) error) error
}

type redisDoctorLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDoctorLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisDoctorLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisDoctorLocker) WithDoctorLock(ctx context.Context, doctorID int64, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:doctor:%d", doctorID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("ошибка взятия блокировки: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

// Снимать чужую блокировку нельзя: ключ удаляется только если токен
// совпадает, поэтому протухшая блокировка не срежет чужую секцию.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisDoctorLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("ошибка снятия блокировки: %w", err)
	}
	return nil
}
