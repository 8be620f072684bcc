package procurement

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-console/internal/remote"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// Gateway describes the remote procurement endpoints used by Service.
type Gateway interface {
	ListPurchases(ctx context.Context, filter shared.ListFilter) (shared.Page[Purchase], error)
	GetPurchase(ctx context.Context, id int64) (Purchase, error)
	CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (Purchase, error)
	UpdatePurchase(ctx context.Context, id int64, req UpdatePurchaseRequest) (Purchase, error)
	ReceivePurchase(ctx context.Context, id int64, input ReceiveInput) (Purchase, error)
	CancelPurchase(ctx context.Context, id int64, input CancelInput) (Purchase, error)

	ListReturns(ctx context.Context, filter shared.ListFilter) (shared.Page[PurchaseReturn], error)
	GetReturn(ctx context.Context, id int64) (PurchaseReturn, error)
	CreateReturn(ctx context.Context, req CreateReturnRequest) (PurchaseReturn, error)
	ApproveReturn(ctx context.Context, id int64, input ApproveInput) (PurchaseReturn, error)
	ProcessReturn(ctx context.Context, id int64, input ProcessInput) (PurchaseReturn, error)
	CancelReturn(ctx context.Context, id int64, input CancelInput) (PurchaseReturn, error)
	RefundReturn(ctx context.Context, id int64, input RefundInput) (Refund, error)
	ListRefunds(ctx context.Context, id int64) ([]Refund, error)
}

// RemoteGateway implements Gateway over the business API.
type RemoteGateway struct {
	client *remote.Client
}

// NewRemoteGateway constructs the gateway.
func NewRemoteGateway(client *remote.Client) *RemoteGateway {
	return &RemoteGateway{client: client}
}

func (g *RemoteGateway) ListPurchases(ctx context.Context, filter shared.ListFilter) (shared.Page[Purchase], error) {
	return remote.List[Purchase](ctx, g.client, "/purchases", filter)
}

func (g *RemoteGateway) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	var out Purchase
	_, err := g.client.Get(ctx, fmt.Sprintf("/purchases/%d", id), &out)
	return out, err
}

func (g *RemoteGateway) CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (Purchase, error) {
	var out Purchase
	_, err := g.client.Post(ctx, "/purchases", req, &out)
	return out, err
}

func (g *RemoteGateway) UpdatePurchase(ctx context.Context, id int64, req UpdatePurchaseRequest) (Purchase, error) {
	var out Purchase
	_, err := g.client.Patch(ctx, fmt.Sprintf("/purchases/%d", id), req, &out)
	return out, err
}

func (g *RemoteGateway) ReceivePurchase(ctx context.Context, id int64, input ReceiveInput) (Purchase, error) {
	var out Purchase
	_, err := g.client.Post(ctx, fmt.Sprintf("/purchases/%d/receive", id), input, &out)
	return out, err
}

func (g *RemoteGateway) CancelPurchase(ctx context.Context, id int64, input CancelInput) (Purchase, error) {
	var out Purchase
	_, err := g.client.Patch(ctx, fmt.Sprintf("/purchases/%d/cancel", id), input, &out)
	return out, err
}

func (g *RemoteGateway) ListReturns(ctx context.Context, filter shared.ListFilter) (shared.Page[PurchaseReturn], error) {
	return remote.List[PurchaseReturn](ctx, g.client, "/purchase-returns", filter)
}

func (g *RemoteGateway) GetReturn(ctx context.Context, id int64) (PurchaseReturn, error) {
	var out PurchaseReturn
	_, err := g.client.Get(ctx, fmt.Sprintf("/purchase-returns/%d", id), &out)
	return out, err
}

func (g *RemoteGateway) CreateReturn(ctx context.Context, req CreateReturnRequest) (PurchaseReturn, error) {
	var out PurchaseReturn
	_, err := g.client.Post(ctx, "/purchase-returns", req, &out)
	return out, err
}

func (g *RemoteGateway) ApproveReturn(ctx context.Context, id int64, input ApproveInput) (PurchaseReturn, error) {
	var out PurchaseReturn
	_, err := g.client.Patch(ctx, fmt.Sprintf("/purchase-returns/%d/approve", id), input, &out)
	return out, err
}

func (g *RemoteGateway) ProcessReturn(ctx context.Context, id int64, input ProcessInput) (PurchaseReturn, error) {
	var out PurchaseReturn
	_, err := g.client.Patch(ctx, fmt.Sprintf("/purchase-returns/%d/process", id), input, &out)
	return out, err
}

func (g *RemoteGateway) CancelReturn(ctx context.Context, id int64, input CancelInput) (PurchaseReturn, error) {
	var out PurchaseReturn
	_, err := g.client.Patch(ctx, fmt.Sprintf("/purchase-returns/%d/cancel", id), input, &out)
	return out, err
}

func (g *RemoteGateway) RefundReturn(ctx context.Context, id int64, input RefundInput) (Refund, error) {
	var out Refund
	_, err := g.client.Post(ctx, fmt.Sprintf("/purchase-returns/%d/refund", id), input, &out)
	return out, err
}

func (g *RemoteGateway) ListRefunds(ctx context.Context, id int64) ([]Refund, error) {
	var out []Refund
	_, err := g.client.Get(ctx, fmt.Sprintf("/purchase-returns/%d/refunds", id), &out)
	return out, err
}
