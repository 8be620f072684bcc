package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// Cache is the read-through cache used for product reads.
type Cache interface {
	FetchJSON(ctx context.Context, tag cache.Tag, parts []string, dest any, loader func(context.Context) (any, error)) error
}

// Principal is the caller, checked before each write.
type Principal interface {
	Can(permission string) bool
}

type Service struct {
	gateway    Gateway
	cache      Cache
	dispatcher *cache.Dispatcher
	logger     *slog.Logger
}

func NewService(gateway Gateway, c Cache, dispatcher *cache.Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, cache: c, dispatcher: dispatcher, logger: logger}
}

func (s *Service) List(ctx context.Context, filter shared.ListFilter) (shared.Page[Product], error) {
	var out shared.Page[Product]
	err := s.cache.FetchJSON(ctx, cache.TagProducts, filter.CacheParts(), &out, func(ctx context.Context) (any, error) {
		return s.gateway.List(ctx, filter)
	})
	return out, err
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.Invalid(shared.ErrInvalidInput, "id", "invalid product ID")
	}
	var out Product
	err := s.cache.FetchJSON(ctx, cache.TagProducts, []string{strconv.FormatInt(id, 10)}, &out, func(ctx context.Context) (any, error) {
		return s.gateway.Get(ctx, id)
	})
	return out, err
}

func (s *Service) Create(ctx context.Context, p Principal, form ProductForm) (Product, error) {
	if err := allow(p, shared.PermProductCreate); err != nil {
		return Product{}, err
	}
	if err := validate(&form); err != nil {
		return Product{}, err
	}
	created, err := s.gateway.Create(ctx, form)
	if err != nil {
		s.logger.Warn("product create rejected", slog.String("code", form.Code), slog.Any("error", err))
		return Product{}, err
	}
	s.dispatcher.Settle(ctx, cache.MutationProductCreate)
	return created, nil
}

func (s *Service) Update(ctx context.Context, p Principal, id int64, form ProductForm) (Product, error) {
	if err := allow(p, shared.PermProductEdit); err != nil {
		return Product{}, err
	}
	if id <= 0 {
		return Product{}, shared.Invalid(shared.ErrInvalidInput, "id", "invalid product ID")
	}
	if err := validate(&form); err != nil {
		return Product{}, err
	}
	updated, err := s.gateway.Update(ctx, id, form)
	if err != nil {
		s.logger.Warn("product update rejected", slog.Int64("product_id", id), slog.Any("error", err))
		return Product{}, err
	}
	s.dispatcher.Settle(ctx, cache.MutationProductUpdate)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, p Principal, id int64) error {
	if err := allow(p, shared.PermProductDelete); err != nil {
		return err
	}
	if id <= 0 {
		return shared.Invalid(shared.ErrInvalidInput, "id", "invalid product ID")
	}
	if err := s.gateway.Delete(ctx, id); err != nil {
		s.logger.Warn("product delete rejected", slog.Int64("product_id", id), slog.Any("error", err))
		return err
	}
	s.dispatcher.Settle(ctx, cache.MutationProductDelete)
	return nil
}

func allow(p Principal, permission string) error {
	if p == nil || !p.Can(permission) {
		return fmt.Errorf("catalog: requires %s: %w", permission, shared.ErrForbidden)
	}
	return nil
}

func validate(form *ProductForm) error {
	form.Code = strings.TrimSpace(form.Code)
	form.Name = strings.TrimSpace(form.Name)
	if err := shared.Validate(*form); err != nil {
		return err
	}
	if form.Price.IsNegative() {
		return shared.Invalid(shared.ErrInvalidLineItem, "price", "price must not be negative")
	}
	if form.Cost.IsNegative() {
		return shared.Invalid(shared.ErrInvalidLineItem, "cost", "cost must not be negative")
	}
	return nil
}
