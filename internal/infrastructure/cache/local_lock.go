package cache

import (
	"context"
	"sync"
	"time"

	"jan-server/services/chat-api/internal/domain/title"
)

// LocalLocker is the single-process lock used when no Redis is configured.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localLease
	now   func() time.Time
	token uint64
}

type localLease struct {
	token     uint64
	expiresAt time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: make(map[string]localLease),
		now:  time.Now,
	}
}

// Acquire takes key for ttl. An expired lease is taken over.
func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if lease, ok := l.held[key]; ok && now.Before(lease.expiresAt) {
		return nil, title.ErrLockHeld
	}
	l.token++
	token := l.token
	l.held[key] = localLease{token: token, expiresAt: now.Add(ttl)}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if lease, ok := l.held[key]; ok && lease.token == token {
			delete(l.held, key)
		}
	}, nil
}
