package payments

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/internal/remote"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// ErrAlreadySubmitted is returned when the same submission is sent twice.
var ErrAlreadySubmitted = shared.Conflict("payments: submission already sent")

const settledRetention = 15 * time.Minute

// Gateway describes the remote payment endpoint.
type Gateway interface {
	CreatePayment(ctx context.Context, sub Submission) (Payment, error)
}

// RemoteGateway implements Gateway over the business API.
type RemoteGateway struct {
	client *remote.Client
}

// NewRemoteGateway constructs the gateway.
func NewRemoteGateway(client *remote.Client) *RemoteGateway {
	return &RemoteGateway{client: client}
}

// CreatePayment posts a payment with its idempotency key.
func (g *RemoteGateway) CreatePayment(ctx context.Context, sub Submission) (Payment, error) {
	var out Payment
	_, err := g.client.Post(ctx, "/payments", sub, &out, remote.WithIdempotencyKey(sub.IdempotencyKey))
	return out, err
}

// Service submits allocated payments. Each Submission goes out at most once: a second call
// with the same key is refused while the first is pending and after it succeeded. A failed
// submission frees its key so the user can send it again.
type Service struct {
	gateway    Gateway
	dispatcher *cache.Dispatcher
	logger     *slog.Logger
	clock      func() time.Time

	mu      sync.Mutex
	pending map[string]struct{}
	settled map[string]time.Time
}

// NewService constructs the payments service.
func NewService(gateway Gateway, dispatcher *cache.Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gateway:    gateway,
		dispatcher: dispatcher,
		logger:     logger,
		clock:      time.Now,
		pending:    make(map[string]struct{}),
		settled:    make(map[string]time.Time),
	}
}

// Submit sends sub and invalidates every tag a payment touches.
func (s *Service) Submit(ctx context.Context, sub Submission) (Payment, error) {
	if sub.IdempotencyKey == "" || sub.EntityID <= 0 {
		return Payment{}, shared.Invalid(shared.ErrInvalidInput, "payment", "submission must come from Allocate")
	}
	if err := s.claim(sub.IdempotencyKey); err != nil {
		return Payment{}, err
	}
	logger := s.logger.With(
		slog.String("mutation", string(cache.MutationPaymentCreate)),
		slog.String("party", string(sub.Type)),
		slog.Int64("entity_id", sub.EntityID),
		slog.String("amount", sub.Amount.String()),
	)

	payment, err := s.gateway.CreatePayment(ctx, sub)
	if err != nil {
		s.release(sub.IdempotencyKey, false)
		logger.Warn("payment rejected", slog.Any("error", err))
		return Payment{}, err
	}
	s.release(sub.IdempotencyKey, true)
	s.dispatcher.Settle(ctx, cache.MutationPaymentCreate)
	logger.Info("payment settled", slog.Int64("payment_id", payment.ID))
	return payment, nil
}

func (s *Service) claim(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	for k, at := range s.settled {
		if now.Sub(at) > settledRetention {
			delete(s.settled, k)
		}
	}
	if _, ok := s.pending[key]; ok {
		return ErrAlreadySubmitted
	}
	if _, ok := s.settled[key]; ok {
		return ErrAlreadySubmitted
	}
	s.pending[key] = struct{}{}
	return nil
}

func (s *Service) release(key string, succeeded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
	if succeeded {
		s.settled[key] = s.clock()
	}
}
