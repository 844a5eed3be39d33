package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/interview-sim-api/internal/interview"
)

const sessionKeyPrefix = "interview:session:"

// ErrEmptySessionKey indicates the caller did not identify a session.
var ErrEmptySessionKey = errors.New("session key must not be empty")

// SessionStore reads and writes interview counters keyed by web session id.
// Load returns a fresh text-mode session when nothing is stored for the key.
type SessionStore interface {
	Load(ctx context.Context, key string) (interview.Session, error)
	Save(ctx context.Context, key string, session interview.Session) error
}

type redisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore stores sessions as JSON documents that expire after ttl.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisSessionStore{client: client, ttl: ttl}
}

func (s *redisSessionStore) Load(ctx context.Context, key string) (interview.Session, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return interview.Session{}, ErrEmptySessionKey
	}

	raw, err := s.client.Get(ctx, sessionKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return interview.NewSession(interview.ModeText), nil
		}
		return interview.Session{}, fmt.Errorf("load session: %w", err)
	}

	var session interview.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return interview.Session{}, fmt.Errorf("decode session: %w", err)
	}
	if session.Mode == "" {
		session.Mode = interview.ModeText
	}
	return session, nil
}

func (s *redisSessionStore) Save(ctx context.Context, key string, session interview.Session) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptySessionKey
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

type memoryEntry struct {
	session   interview.Session
	expiresAt time.Time
}

type memorySessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemorySessionStore keeps sessions in process memory. Used when Redis is not configured.
func NewMemorySessionStore(ttl time.Duration) SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &memorySessionStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *memorySessionStore) Load(_ context.Context, key string) (interview.Session, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return interview.Session{}, ErrEmptySessionKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return interview.NewSession(interview.ModeText), nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return interview.NewSession(interview.ModeText), nil
	}
	return entry.session, nil
}

func (s *memorySessionStore) Save(_ context.Context, key string, session interview.Session) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptySessionKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{session: session, expiresAt: s.now().Add(s.ttl)}
	return nil
}
