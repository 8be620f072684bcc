package accounts

import (
	"context"

	"github.com/odyssey-erp/odyssey-console/internal/remote"
)

// RemoteGateway implements Gateway over the business API.
type RemoteGateway struct {
	client *remote.Client
}

// NewRemoteGateway constructs the gateway.
func NewRemoteGateway(client *remote.Client) *RemoteGateway {
	return &RemoteGateway{client: client}
}

// ListAccounts fetches the chart of accounts.
func (g *RemoteGateway) ListAccounts(ctx context.Context) ([]Account, error) {
	var out []Account
	if _, err := g.client.Get(ctx, "/accounts", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddCash posts a cash top-up.
func (g *RemoteGateway) AddCash(ctx context.Context, input AddCashInput) error {
	_, err := g.client.Post(ctx, "/accounts/add-cash", input, nil)
	return err
}

// AddBankBalance posts a bank top-up.
func (g *RemoteGateway) AddBankBalance(ctx context.Context, input AddBankBalanceInput) error {
	_, err := g.client.Post(ctx, "/accounts/add-bank-balance", input, nil)
	return err
}

// FundTransfer posts a transfer between accounts.
func (g *RemoteGateway) FundTransfer(ctx context.Context, input FundTransferInput) error {
	_, err := g.client.Post(ctx, "/accounts/fund-transfer", input, nil)
	return err
}
