package accounts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-console/internal/amounts"
	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// Gateway describes the remote operations used by Service.
type Gateway interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	AddCash(ctx context.Context, input AddCashInput) error
	AddBankBalance(ctx context.Context, input AddBankBalanceInput) error
	FundTransfer(ctx context.Context, input FundTransferInput) error
}

// Cache is the read-through cache used for the chart of accounts.
type Cache interface {
	FetchJSON(ctx context.Context, tag cache.Tag, parts []string, dest any, loader func(context.Context) (any, error)) error
}

// Service exposes account reads and the balance mutations.
type Service struct {
	gateway    Gateway
	cache      Cache
	dispatcher *cache.Dispatcher
	logger     *slog.Logger
}

// NewService constructs the accounts service.
func NewService(gateway Gateway, c Cache, dispatcher *cache.Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, cache: c, dispatcher: dispatcher, logger: logger}
}

// List returns the chart of accounts, cached under the Accounts tag.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	var out []Account
	err := s.cache.FetchJSON(ctx, cache.TagAccounts, []string{"list"}, &out, func(ctx context.Context) (any, error) {
		return s.gateway.ListAccounts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Find returns a single account by code.
func (s *Service) Find(ctx context.Context, code string) (Account, error) {
	list, err := s.List(ctx)
	if err != nil {
		return Account{}, err
	}
	acc, ok := FindByCode(list, code)
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrUnknownAccount, code)
	}
	return acc, nil
}

// AddCash credits a cash account.
func (s *Service) AddCash(ctx context.Context, input AddCashInput) error {
	if err := s.validateTopUp(ctx, input, input.AccountCode, input.Amount, func(a Account) bool { return a.IsCash }); err != nil {
		return err
	}
	return s.submit(ctx, cache.MutationAccountAddCash, func(ctx context.Context) error {
		return s.gateway.AddCash(ctx, input)
	})
}

// AddBankBalance credits a bank account.
func (s *Service) AddBankBalance(ctx context.Context, input AddBankBalanceInput) error {
	if err := s.validateTopUp(ctx, input, input.AccountCode, input.Amount, func(a Account) bool { return a.IsBank }); err != nil {
		return err
	}
	return s.submit(ctx, cache.MutationAccountAddBank, func(ctx context.Context) error {
		return s.gateway.AddBankBalance(ctx, input)
	})
}

// FundTransfer moves money between two cash or bank accounts. Sufficient balance is checked
// by the server; the local balance may be stale.
func (s *Service) FundTransfer(ctx context.Context, input FundTransferInput) error {
	if err := shared.Validate(input); err != nil {
		return err
	}
	if !input.Amount.IsPositive() {
		return shared.Invalid(shared.ErrAmountNotPositive, "amount", "")
	}
	list, err := s.List(ctx)
	if err != nil {
		return err
	}
	ends := []struct{ field, code string }{
		{"from_account_code", input.FromAccountCode},
		{"to_account_code", input.ToAccountCode},
	}
	for _, end := range ends {
		acc, ok := FindByCode(list, end.code)
		if !ok {
			return shared.Invalid(shared.ErrAccountNotEligible, end.field, fmt.Sprintf("account %s does not exist", end.code))
		}
		if !acc.IsCash && !acc.IsBank {
			return shared.Invalid(shared.ErrAccountNotEligible, end.field, fmt.Sprintf("account %s is neither cash nor bank", end.code))
		}
	}
	return s.submit(ctx, cache.MutationAccountFundTransfer, func(ctx context.Context) error {
		return s.gateway.FundTransfer(ctx, input)
	})
}

func (s *Service) validateTopUp(ctx context.Context, input any, code string, amount amounts.Money, eligible func(Account) bool) error {
	if err := shared.Validate(input); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return shared.Invalid(shared.ErrAmountNotPositive, "amount", "")
	}
	list, err := s.List(ctx)
	if err != nil {
		return err
	}
	acc, ok := FindByCode(list, code)
	if !ok {
		return shared.Invalid(shared.ErrAccountNotEligible, "account_code", fmt.Sprintf("account %s does not exist", code))
	}
	if !eligible(acc) {
		return shared.Invalid(shared.ErrAccountNotEligible, "account_code", "")
	}
	return nil
}

func (s *Service) submit(ctx context.Context, mutation cache.Mutation, call func(context.Context) error) error {
	logger := s.logger.With(slog.String("mutation", string(mutation)))
	if err := call(ctx); err != nil {
		logger.Warn("mutation rejected", slog.Any("error", err))
		return err
	}
	s.dispatcher.Settle(ctx, mutation)
	logger.Info("mutation settled")
	return nil
}
