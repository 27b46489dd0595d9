// Package session tracks who is signed in and which view they are on.
// Sessions live in process memory and, when Redis is configured, are mirrored
// there so other instances can resolve the same token.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ariebrainware/sehatec/config"
	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/util"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidToken    = errors.New("invalid session token")
	ErrSessionNotFound = errors.New("session expired or signed out")
	ErrInvalidTab      = errors.New("tab is not available for this role")
)

// Session is one signed-in user.
type Session struct {
	ID        string     `json:"id"`
	Role      model.Role `json:"role"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Tab       model.Tab  `json:"tab"`
	ExpiresAt time.Time  `json:"expires_at"`
}

type claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Store issues and resolves session tokens.
type Store struct {
	ttl   time.Duration
	local *cache.Cache
	rdb   *redis.Client
	now   func() time.Time
	newID func() string
}

// NewStore returns a Store whose sessions expire after ttl. rdb may be nil.
func NewStore(ttl time.Duration, rdb *redis.Client) *Store {
	return &Store{
		ttl:   ttl,
		local: cache.New(ttl, 10*time.Minute),
		rdb:   rdb,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func sessionKey(id string) string {
	return config.RedisKey("session", id)
}

func userSetKey(userID string) string {
	return config.RedisKey("user_sessions", userID)
}

// Open starts a session for the user on the role's default tab and returns its token.
func (s *Store) Open(ctx context.Context, role model.Role, userID, name string) (string, Session, error) {
	now := s.now().UTC().Truncate(time.Second)
	sess := Session{
		ID:        s.newID(),
		Role:      role,
		UserID:    userID,
		Name:      name,
		Tab:       role.DefaultTab(),
		ExpiresAt: now.Add(s.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	signed, err := token.SignedString(util.GetJWTSecretByte())
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}

	s.local.Set(sess.ID, sess, s.ttl)
	s.mirror(ctx, sess, s.ttl)
	if s.rdb != nil {
		if err := s.rdb.SAdd(ctx, userSetKey(userID), sess.ID).Err(); err != nil {
			log.Printf("session mirror: %v", err)
		} else if err := s.rdb.Expire(ctx, userSetKey(userID), s.ttl).Err(); err != nil {
			log.Printf("session mirror: %v", err)
		}
	}
	return signed, sess, nil
}

// mirror writes sess to Redis. Errors are logged; the local copy stays authoritative.
func (s *Store) mirror(ctx context.Context, sess Session, ttl time.Duration) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		log.Printf("session mirror: %v", err)
		return
	}
	if err := s.rdb.Set(ctx, sessionKey(sess.ID), raw, ttl).Err(); err != nil {
		log.Printf("session mirror: %v", err)
	}
}

func (s *Store) parse(token string) (*claims, error) {
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return util.GetJWTSecretByte(), nil
	})
	if err != nil || !parsed.Valid || c.ID == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// Lookup resolves a token to its live session.
func (s *Store) Lookup(ctx context.Context, token string) (Session, error) {
	c, err := s.parse(token)
	if err != nil {
		return Session{}, err
	}

	sess, err := s.get(ctx, c.ID)
	if err != nil {
		return Session{}, err
	}
	if sess.UserID != c.Subject || sess.Role != c.Role {
		return Session{}, ErrInvalidToken
	}
	return sess, nil
}

func (s *Store) get(ctx context.Context, id string) (Session, error) {
	if v, ok := s.local.Get(id); ok {
		return v.(Session), nil
	}
	if s.rdb == nil {
		return Session{}, ErrSessionNotFound
	}

	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("session mirror: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	remaining := sess.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return Session{}, ErrSessionNotFound
	}
	s.local.Set(id, sess, remaining)
	return sess, nil
}

// SetTab switches the session to another tab of its role.
func (s *Store) SetTab(ctx context.Context, token string, tab model.Tab) (Session, error) {
	sess, err := s.Lookup(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if !sess.Role.HasTab(tab) {
		return Session{}, fmt.Errorf("%s for %s: %w", tab, sess.Role, ErrInvalidTab)
	}

	sess.Tab = tab
	remaining := sess.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return Session{}, ErrSessionNotFound
	}
	s.local.Set(sess.ID, sess, remaining)
	s.mirror(ctx, sess, redis.KeepTTL)
	return sess, nil
}

// Close ends the session behind token.
func (s *Store) Close(ctx context.Context, token string) (Session, error) {
	sess, err := s.Lookup(ctx, token)
	if err != nil {
		return Session{}, err
	}

	s.local.Delete(sess.ID)
	if s.rdb != nil {
		if err := s.rdb.Del(ctx, sessionKey(sess.ID)).Err(); err != nil {
			log.Printf("session mirror: %v", err)
		}
		if err := s.rdb.SRem(ctx, userSetKey(sess.UserID), sess.ID).Err(); err != nil {
			log.Printf("session mirror: %v", err)
		}
	}
	return sess, nil
}
