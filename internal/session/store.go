// Package session keeps the logged-in user's identity record in Redis,
// keyed by a session id carried in the access token.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

// ErrNoSession is returned when the session id is unknown or expired.
var ErrNoSession = errors.New("session not found")

// Store keeps current-user sessions in Redis, one JSON record per
// session id, expiring after ttl.
type Store struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewStore returns a Store on rdb.  A ttl ≤ 0 means 12h.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl, prefix: "elams"}
}

// Session is the stored record.
type Session struct {
	Identity  model.Identity `json:"identity"`
	IssuedAt  int64          `json:"iat"`
	ExpiresAt int64          `json:"exp"`
}

func (s *Store) key(id string) string          { return fmt.Sprintf("%s:sess:%s", s.prefix, id) }
func (s *Store) userSetKey(email string) string { return fmt.Sprintf("%s:user_sessions:%s", s.prefix, email) }

// TTL is how long a session lives without being refreshed.
func (s *Store) TTL() time.Duration { return s.ttl }

// Create stores id for a new session and returns its id.
func (s *Store) Create(ctx context.Context, id model.Identity) (string, error) {
	sid := uuid.NewString()
	now := time.Now()
	b, err := json.Marshal(Session{Identity: id, IssuedAt: now.Unix(), ExpiresAt: now.Add(s.ttl).Unix()})
	if err != nil {
		return "", err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.key(sid), b, s.ttl)
	pipe.SAdd(ctx, s.userSetKey(id.Email), sid)
	pipe.Expire(ctx, s.userSetKey(id.Email), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return sid, nil
}

// Get loads the session sid.
func (s *Store) Get(ctx context.Context, sid string) (*Session, error) {
	b, err := s.rdb.Get(ctx, s.key(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Identity is a shortcut for Get(...).Identity.
func (s *Store) Identity(ctx context.Context, sid string) (model.Identity, error) {
	sess, err := s.Get(ctx, sid)
	if err != nil {
		return model.Identity{}, err
	}
	return sess.Identity, nil
}

// Touch extends the session lifetime, used on token refresh.
func (s *Store) Touch(ctx context.Context, sid string) error {
	ok, err := s.rdb.Expire(ctx, s.key(sid), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if !ok {
		return ErrNoSession
	}
	return nil
}

// Delete ends one session.  Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, sid string) error {
	sess, _ := s.Get(ctx, sid)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.key(sid))
	if sess != nil {
		pipe.SRem(ctx, s.userSetKey(sess.Identity.Email), sid)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAllForUser ends every session of email.
func (s *Store) RevokeAllForUser(ctx context.Context, email string) error {
	ids, err := s.rdb.SMembers(ctx, s.userSetKey(email)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, sid := range ids {
		pipe.Del(ctx, s.key(sid))
	}
	pipe.Del(ctx, s.userSetKey(email))
	_, err = pipe.Exec(ctx)
	return err
}
