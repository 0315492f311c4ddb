package idempotency

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// Sessions resolves bearer tokens to user ids. Tokens are written by the
// identity service under session:<token>; this side only reads them.
type Sessions struct {
	rdb *redis.Client
}

func NewSessions(rdb *redis.Client) *Sessions {
	return &Sessions{rdb: rdb}
}

func (s *Sessions) Resolve(ctx context.Context, token string) (string, error) {
	userID, err := s.rdb.Get(ctx, "session:"+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
