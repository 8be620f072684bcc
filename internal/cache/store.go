package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix   = "console"
	bumpChannel = "console.tags.bump"
)

// Store caches remote reads in Redis under per-tag versions. Invalidating a tag bumps its
// version, which orphans every key built from the old one. Bumps commute, so mutations that
// settle out of order still leave every touched tag newer than any read issued before them.
type Store struct {
	client     *redis.Client
	ttl        time.Duration
	instanceID string
	group      singleflight.Group

	mu        sync.RWMutex
	listeners []func([]Tag)
}

// NewStore instantiates the store. A nil client disables caching; loaders run on every read.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl, instanceID: uuid.NewString()}
}

func versionKey(tag Tag) string {
	return fmt.Sprintf("%s:tag:%s:version", keyPrefix, tag)
}

// Version returns the current version of tag, starting at zero.
func (s *Store) Version(ctx context.Context, tag Tag) (int64, error) {
	if s == nil || s.client == nil {
		return 0, nil
	}
	ver, err := s.client.Get(ctx, versionKey(tag)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

// Key composes the cache key for a read under tag at its current version.
func (s *Store) Key(ctx context.Context, tag Tag, parts ...string) (string, error) {
	ver, err := s.Version(ctx, tag)
	if err != nil {
		return "", err
	}
	segments := append([]string{keyPrefix, string(tag)}, parts...)
	return fmt.Sprintf("%s:v%d", strings.Join(segments, ":"), ver), nil
}

// FetchJSON loads a cached value or populates it using the loader. Concurrent reads of the
// same key share one loader call.
func (s *Store) FetchJSON(ctx context.Context, tag Tag, parts []string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if s == nil || s.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}
	key, err := s.Key(ctx, tag, parts...)
	if err != nil {
		return err
	}
	payload, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	raw, err, _ := s.group.Do(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
			return nil, err
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}

// Invalidate bumps every tag's version, tells local listeners and broadcasts to other
// instances.
func (s *Store) Invalidate(ctx context.Context, tags ...Tag) error {
	if s == nil || len(tags) == 0 {
		return nil
	}
	if s.client != nil {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, tag := range tags {
				pipe.Incr(ctx, versionKey(tag))
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("cache: bump versions: %w", err)
		}
		if err := s.client.Publish(ctx, bumpChannel, encodeBump(s.instanceID, tags)).Err(); err != nil {
			return fmt.Errorf("cache: publish bump: %w", err)
		}
	}
	s.notify(tags)
	return nil
}

// OnInvalidate registers a callback fired with the tags of each invalidation, local or remote.
func (s *Store) OnInvalidate(fn func([]Tag)) {
	if s == nil || fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// ListenForInvalidation subscribes to bumps published by other instances until ctx is done.
func (s *Store) ListenForInvalidation(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	pubsub := s.client.Subscribe(ctx, bumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("cache: subscribe: %w", err)
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				origin, tags := decodeBump(msg.Payload)
				if origin == s.instanceID || len(tags) == 0 {
					continue
				}
				s.notify(tags)
			}
		}
	}()
	return nil
}

func (s *Store) notify(tags []Tag) {
	s.mu.RLock()
	listeners := make([]func([]Tag), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(append([]Tag(nil), tags...))
	}
}

func encodeBump(origin string, tags []Tag) string {
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = string(tag)
	}
	return origin + "|" + strings.Join(names, ",")
}

func decodeBump(payload string) (string, []Tag) {
	origin, list, found := strings.Cut(payload, "|")
	if !found {
		return "", nil
	}
	var tags []Tag
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			tags = append(tags, Tag(name))
		}
	}
	return origin, tags
}

func roundTrip(value any, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
