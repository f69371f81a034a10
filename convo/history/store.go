// Package history records per-session conversation turns behind a uniform
// store interface with a choice of backend: a durable file log or a
// volatile redis cache with sliding-window expiry.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options selects and parameterizes the backend a Store binds to.
type Options struct {
	// Backend is BackendFile or BackendRedis; empty defaults to redis.
	Backend string
	// Dir is the storage directory for the file backend.
	Dir string
	// Client is the redis connection for the redis backend.
	Client *redis.Client
	// TTL is the redis session expiry; zero means DefaultTTL.
	TTL time.Duration
}

// Store is the single entry point the rest of the service talks to. It is
// bound to one session and one backend for its lifetime; switching
// backends means constructing a new store. The store owns no data itself
// and adds no failure modes: every error is the bound backend's error.
type Store struct {
	session Session
	backend Backend
}

// New binds a store to a session and an already-constructed backend.
func New(session Session, backend Backend) (*Store, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	return &Store{session: session, backend: backend}, nil
}

// Open builds the backend named in opts and binds a store to it.
func Open(session Session, opts Options) (*Store, error) {
	var backend Backend
	switch opts.Backend {
	case BackendFile:
		backend = NewFileBackend(opts.Dir)
	case BackendRedis, "":
		if opts.Client == nil {
			return nil, fmt.Errorf("%w: no redis client configured", ErrBackendUnavailable)
		}
		backend = NewRedisBackend(opts.Client, opts.TTL)
	default:
		return nil, fmt.Errorf("history: unknown backend %q", opts.Backend)
	}
	return New(session, backend)
}

func (s *Store) Session() Session { return s.session }

// AddUserMessage appends a user turn. Text and imageRef may not both be
// empty; imageRef is optional. The backend stamps the record's timestamp
// while it serializes the append, so timestamps follow stored order.
func (s *Store) AddUserMessage(ctx context.Context, text, imageRef string) error {
	return s.backend.Append(ctx, s.session, Message{
		Role:     RoleUser,
		Text:     text,
		ImageRef: imageRef,
	})
}

// AddAIMessage appends an assistant turn. Assistant turns are text-only.
func (s *Store) AddAIMessage(ctx context.Context, text string) error {
	return s.backend.Append(ctx, s.session, Message{
		Role: RoleAssistant,
		Text: text,
	})
}

// Messages returns the session's records in insertion order; empty when
// the session has never been written or has expired.
func (s *Store) Messages(ctx context.Context) ([]Message, error) {
	return s.backend.List(ctx, s.session)
}

// Clear removes the session's records. Clearing an absent session is a
// no-op.
func (s *Store) Clear(ctx context.Context) error {
	return s.backend.Clear(ctx, s.session)
}
