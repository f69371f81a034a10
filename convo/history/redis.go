package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL matches the service default of one hour.
const DefaultTTL = 3600 * time.Second

// RedisBackend keeps each session as one redis list with a time-to-live.
// Every append refreshes the TTL of the whole list (sliding-window expiry),
// so a session's text and image refs always expire together. An expired or
// absent session reads as empty, indistinguishable from never written.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
	locks  *sessionLocks
}

func NewRedisBackend(client *redis.Client, ttl time.Duration) *RedisBackend {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisBackend{client: client, ttl: ttl, locks: newSessionLocks()}
}

func (b *RedisBackend) key(s Session) string {
	return "chat:history:" + s.Key()
}

func (b *RedisBackend) Append(ctx context.Context, session Session, msg Message) error {
	if err := session.Validate(); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	// The per-session lock keeps in-process timestamps aligned with list
	// order; across processes RPUSH serializes the pushes themselves and
	// stored order stays authoritative.
	l := b.locks.get(session)
	l.Lock()
	defer l.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	// RPUSH and EXPIRE in one pipeline: the record lands at the tail and
	// the session's expiry window restarts in the same round trip.
	pipe := b.client.TxPipeline()
	pipe.RPush(ctx, b.key(session), data)
	pipe.Expire(ctx, b.key(session), b.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapRedisErr("append", err)
	}
	return nil
}

func (b *RedisBackend) List(ctx context.Context, session Session) ([]Message, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	vals, err := b.client.LRange(ctx, b.key(session), 0, -1).Result()
	if err != nil {
		return nil, wrapRedisErr("list", err)
	}
	msgs := make([]Message, 0, len(vals))
	for _, v := range vals {
		m, err := DecodeMessage([]byte(v))
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (b *RedisBackend) Clear(ctx context.Context, session Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	if err := b.client.Del(ctx, b.key(session)).Err(); err != nil {
		return wrapRedisErr("clear", err)
	}
	return nil
}

func wrapRedisErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, op, err)
}
