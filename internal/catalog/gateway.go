package catalog

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-console/internal/remote"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// Gateway describes the remote product endpoints.
type Gateway interface {
	List(ctx context.Context, filter shared.ListFilter) (shared.Page[Product], error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, form ProductForm) (Product, error)
	Update(ctx context.Context, id int64, form ProductForm) (Product, error)
	Delete(ctx context.Context, id int64) error
}

// RemoteGateway implements Gateway over the business API.
type RemoteGateway struct {
	client *remote.Client
}

// NewRemoteGateway constructs the gateway.
func NewRemoteGateway(client *remote.Client) *RemoteGateway {
	return &RemoteGateway{client: client}
}

func (g *RemoteGateway) List(ctx context.Context, filter shared.ListFilter) (shared.Page[Product], error) {
	return remote.List[Product](ctx, g.client, "/products", filter)
}

func (g *RemoteGateway) Get(ctx context.Context, id int64) (Product, error) {
	var out Product
	_, err := g.client.Get(ctx, fmt.Sprintf("/products/%d", id), &out)
	return out, err
}

func (g *RemoteGateway) Create(ctx context.Context, form ProductForm) (Product, error) {
	var out Product
	_, err := g.client.Post(ctx, "/products", form, &out)
	return out, err
}

func (g *RemoteGateway) Update(ctx context.Context, id int64, form ProductForm) (Product, error) {
	var out Product
	_, err := g.client.Patch(ctx, fmt.Sprintf("/products/%d", id), form, &out)
	return out, err
}

func (g *RemoteGateway) Delete(ctx context.Context, id int64) error {
	_, err := g.client.Delete(ctx, fmt.Sprintf("/products/%d", id), nil)
	return err
}
