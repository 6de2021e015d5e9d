package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirinyoku/party-rsvp/internal/repository"
	"github.com/kirinyoku/party-rsvp/internal/wizard"
)

// SessionStore keeps wizard sessions as JSON with a sliding TTL that is
// refreshed on every save.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*wizard.Session, error) {
	const op = "redisrepo.SessionStore.Get"

	b, err := s.rdb.Get(ctx, KeySession(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var sess wizard.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *wizard.Session) error {
	const op = "redisrepo.SessionStore.Save"

	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.rdb.Set(ctx, KeySession(sess.ID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, KeySession(id)).Err()
}
