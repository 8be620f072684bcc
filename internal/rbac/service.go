package rbac

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-console/internal/remote"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// ErrUnauthenticated is returned when no token is present or the API rejects it.
var ErrUnauthenticated = fmt.Errorf("rbac: unauthenticated: %w", shared.ErrUnauthorized)

// Loader fetches the principal behind the bearer token carried by ctx.
type Loader interface {
	Me(ctx context.Context) (Principal, error)
}

// RemoteLoader implements Loader with GET /auth/me.
type RemoteLoader struct {
	client *remote.Client
}

// NewRemoteLoader constructs the loader.
func NewRemoteLoader(client *remote.Client) *RemoteLoader {
	return &RemoteLoader{client: client}
}

// Me returns the current principal.
func (l *RemoteLoader) Me(ctx context.Context) (Principal, error) {
	var p Principal
	_, err := l.client.Get(ctx, "/auth/me", &p)
	return p, err
}

type cachedPrincipal struct {
	principal Principal
	expires   time.Time
}

// Service resolves bearer tokens to principals and remembers them briefly so every console
// request does not cost an extra round trip.
type Service struct {
	loader Loader
	ttl    time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	entries map[string]cachedPrincipal
}

// NewService constructs a Service. A zero ttl disables memoisation.
func NewService(loader Loader, ttl time.Duration) *Service {
	return &Service{loader: loader, ttl: ttl, clock: time.Now, entries: make(map[string]cachedPrincipal)}
}

// Resolve returns the principal for the token carried by ctx.
func (s *Service) Resolve(ctx context.Context) (*Principal, error) {
	token := strings.TrimSpace(remote.TokenFromContext(ctx))
	if token == "" {
		return nil, ErrUnauthenticated
	}
	key := fingerprint(token)
	now := s.clock()

	s.mu.Lock()
	entry, ok := s.entries[key]
	s.mu.Unlock()
	if ok && now.Before(entry.expires) {
		p := entry.principal
		return &p, nil
	}

	p, err := s.loader.Me(ctx)
	if err != nil {
		if remote.IsRejection(err, http.StatusUnauthorized, http.StatusForbidden) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if s.ttl > 0 {
		s.mu.Lock()
		for k, e := range s.entries {
			if !now.Before(e.expires) {
				delete(s.entries, k)
			}
		}
		s.entries[key] = cachedPrincipal{principal: p, expires: now.Add(s.ttl)}
		s.mu.Unlock()
	}
	return &p, nil
}

// Forget drops the memoised principal for the token carried by ctx.
func (s *Service) Forget(ctx context.Context) {
	token := remote.TokenFromContext(ctx)
	if token == "" {
		return
	}
	s.mu.Lock()
	delete(s.entries, fingerprint(token))
	s.mu.Unlock()
}

// EffectivePermissions returns the permissions of the principal carried by ctx.
func (s *Service) EffectivePermissions(ctx context.Context) ([]string, error) {
	p, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return p.Permissions, nil
}

func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
