package payments

import (
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-console/internal/accounts"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// Method is how money moves.
type Method string

const (
	MethodCash   Method = "cash"
	MethodBank   Method = "bank"
	MethodWallet Method = "mobile_wallet"
)

// Methods lists the supported methods in display order.
func Methods() []Method {
	return []Method{MethodCash, MethodBank, MethodWallet}
}

// ParseMethod normalises a method name. An empty name yields ErrMethodRequired.
func ParseMethod(raw string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(raw))); m {
	case MethodCash, MethodBank, MethodWallet:
		return m, nil
	case "":
		return "", shared.Invalid(shared.ErrMethodRequired, "method", "")
	default:
		return "", shared.Invalid(shared.ErrInvalidInput, "method", fmt.Sprintf("unknown payment method %q", raw))
	}
}

// Allocation is a method bound to the account it posts to. Values are only built by
// NewAllocation, which checks the account against the method.
type Allocation interface {
	Method() Method
	AccountCode() string
	allocation()
}

// Cash posts to an account flagged isCash.
type Cash struct{ Account string }

// Bank posts to an account flagged isBank.
type Bank struct{ Account string }

// Wallet posts to any explicitly chosen account.
type Wallet struct{ Account string }

func (Cash) Method() Method   { return MethodCash }
func (Bank) Method() Method   { return MethodBank }
func (Wallet) Method() Method { return MethodWallet }

func (c Cash) AccountCode() string   { return c.Account }
func (b Bank) AccountCode() string   { return b.Account }
func (w Wallet) AccountCode() string { return w.Account }

func (Cash) allocation()   {}
func (Bank) allocation()   {}
func (Wallet) allocation() {}

// AccountSelectorEnabled reports whether the account picker should be shown. It stays
// disabled until a method is chosen.
func AccountSelectorEnabled(method Method) bool {
	return method != ""
}

// EligibleAccounts filters the chart of accounts for method. Wallet payments have no
// predicate; without a method nothing is eligible.
func EligibleAccounts(method Method, all []accounts.Account) []accounts.Account {
	var keep func(accounts.Account) bool
	switch method {
	case MethodCash:
		keep = func(a accounts.Account) bool { return a.IsCash }
	case MethodBank:
		keep = func(a accounts.Account) bool { return a.IsBank }
	case MethodWallet:
		keep = func(accounts.Account) bool { return true }
	default:
		return nil
	}
	out := make([]accounts.Account, 0, len(all))
	for _, acc := range all {
		if keep(acc) {
			out = append(out, acc)
		}
	}
	return out
}

// NewAllocation validates accountCode against method and the chart of accounts.
func NewAllocation(method Method, accountCode string, chart []accounts.Account) (Allocation, error) {
	if method == "" {
		return nil, shared.Invalid(shared.ErrMethodRequired, "method", "")
	}
	accountCode = strings.TrimSpace(accountCode)
	if accountCode == "" {
		return nil, shared.Invalid(shared.ErrAccountRequired, "payment_account_code", "")
	}
	if _, ok := accounts.FindByCode(EligibleAccounts(method, chart), accountCode); !ok {
		return nil, shared.Invalid(shared.ErrAccountNotEligible, "payment_account_code",
			fmt.Sprintf("account %s cannot receive %s payments", accountCode, method))
	}
	switch method {
	case MethodCash:
		return Cash{Account: accountCode}, nil
	case MethodBank:
		return Bank{Account: accountCode}, nil
	default:
		return Wallet{Account: accountCode}, nil
	}
}
