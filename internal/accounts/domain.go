package accounts

import (
	"github.com/odyssey-erp/odyssey-console/internal/amounts"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// AccountType is the ledger classification.
type AccountType string

const (
	TypeAsset     AccountType = "asset"
	TypeLiability AccountType = "liability"
	TypeEquity    AccountType = "equity"
	TypeIncome    AccountType = "income"
	TypeExpense   AccountType = "expense"
)

// Account is a ledger account as reported by the API. Balance is a server projection and is
// never recomputed here.
type Account struct {
	ID      int64         `json:"id"`
	Code    string        `json:"code"`
	Name    string        `json:"name"`
	Type    AccountType   `json:"type"`
	IsCash  bool          `json:"isCash"`
	IsBank  bool          `json:"isBank"`
	Debit   amounts.Money `json:"debit"`
	Credit  amounts.Money `json:"credit"`
	Balance amounts.Money `json:"balance"`
}

// AddCashInput tops up a cash account.
type AddCashInput struct {
	AccountCode string        `json:"account_code" validate:"required"`
	Amount      amounts.Money `json:"amount"`
	Note        string        `json:"note,omitempty" validate:"max=255"`
}

// AddBankBalanceInput tops up a bank account.
type AddBankBalanceInput struct {
	AccountCode string        `json:"account_code" validate:"required"`
	Amount      amounts.Money `json:"amount"`
	Reference   string        `json:"reference,omitempty" validate:"max=100"`
	Note        string        `json:"note,omitempty" validate:"max=255"`
}

// FundTransferInput moves money between two cash or bank accounts.
type FundTransferInput struct {
	FromAccountCode string        `json:"from_account_code" validate:"required"`
	ToAccountCode   string        `json:"to_account_code" validate:"required,nefield=FromAccountCode"`
	Amount          amounts.Money `json:"amount"`
	Note            string        `json:"note,omitempty" validate:"max=255"`
}

// ErrUnknownAccount is returned when a code is not in the chart of accounts.
var ErrUnknownAccount = shared.NotFound("accounts: unknown account")

// FindByCode returns the account with code from list.
func FindByCode(list []Account, code string) (Account, bool) {
	for _, acc := range list {
		if acc.Code == code {
			return acc, true
		}
	}
	return Account{}, false
}
