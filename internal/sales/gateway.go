package sales

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-console/internal/remote"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// Gateway describes the remote sales endpoints.
type Gateway interface {
	ListSales(ctx context.Context, filter shared.ListFilter) (shared.Page[Sale], error)
	GetSale(ctx context.Context, id int64) (Sale, error)
	CreateSale(ctx context.Context, req CheckoutRequest) (Sale, error)
}

// RemoteGateway implements Gateway over the business API.
type RemoteGateway struct {
	client *remote.Client
}

// NewRemoteGateway constructs the gateway.
func NewRemoteGateway(client *remote.Client) *RemoteGateway {
	return &RemoteGateway{client: client}
}

func (g *RemoteGateway) ListSales(ctx context.Context, filter shared.ListFilter) (shared.Page[Sale], error) {
	return remote.List[Sale](ctx, g.client, "/sales", filter)
}

func (g *RemoteGateway) GetSale(ctx context.Context, id int64) (Sale, error) {
	var out Sale
	_, err := g.client.Get(ctx, fmt.Sprintf("/sales/%d", id), &out)
	return out, err
}

func (g *RemoteGateway) CreateSale(ctx context.Context, req CheckoutRequest) (Sale, error) {
	var out Sale
	_, err := g.client.Post(ctx, "/sales", req, &out)
	return out, err
}
