package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-console/internal/accounts"
	"github.com/odyssey-erp/odyssey-console/internal/amounts"
	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/internal/payments"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
	"github.com/odyssey-erp/odyssey-console/internal/workflow"
)

// Cache is the read-through cache used for purchase and return reads.
type Cache interface {
	FetchJSON(ctx context.Context, tag cache.Tag, parts []string, dest any, loader func(context.Context) (any, error)) error
}

// PaymentPort submits an allocated payment once.
type PaymentPort interface {
	Submit(ctx context.Context, sub payments.Submission) (payments.Payment, error)
}

// ChartPort lists the chart of accounts used to check payment accounts.
type ChartPort interface {
	List(ctx context.Context) ([]accounts.Account, error)
}

// Service orchestrates purchase and purchase return flows against the business API.
type Service struct {
	gateway    Gateway
	cache      Cache
	orch       *workflow.Orchestrator
	dispatcher *cache.Dispatcher
	payments   PaymentPort
	chart      ChartPort
	logger     *slog.Logger
}

// NewService constructs procurement service.
func NewService(gateway Gateway, c Cache, orch *workflow.Orchestrator, dispatcher *cache.Dispatcher, pay PaymentPort, chart ChartPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, cache: c, orch: orch, dispatcher: dispatcher, payments: pay, chart: chart, logger: logger}
}

func idPart(id int64) string { return strconv.FormatInt(id, 10) }

// ListPurchases returns a page of purchases.
func (s *Service) ListPurchases(ctx context.Context, filter shared.ListFilter) (shared.Page[Purchase], error) {
	var out shared.Page[Purchase]
	err := s.cache.FetchJSON(ctx, cache.TagPurchases, filter.CacheParts(), &out, func(ctx context.Context) (any, error) {
		return s.gateway.ListPurchases(ctx, filter)
	})
	return out, err
}

// GetPurchase returns one purchase.
func (s *Service) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	var out Purchase
	err := s.cache.FetchJSON(ctx, cache.TagPurchases, []string{idPart(id)}, &out, func(ctx context.Context) (any, error) {
		return s.gateway.GetPurchase(ctx, id)
	})
	if err != nil {
		return Purchase{}, err
	}
	if !out.Consistent() {
		s.logger.Warn("purchase amounts inconsistent",
			slog.Int64("purchase_id", out.ID),
			slog.String("total", out.Total.String()),
			slog.String("paid", out.PaidAmount.String()),
			slog.String("due", out.DueAmount.String()))
	}
	return out, nil
}

// PurchaseActions lists the action buttons for a purchase.
func (s *Service) PurchaseActions(ctx context.Context, p workflow.Principal, id int64) (Purchase, []workflow.ActionView, error) {
	purchase, err := s.GetPurchase(ctx, id)
	if err != nil {
		return Purchase{}, nil, err
	}
	return purchase, workflow.Actions(s.orch, PurchaseMachine, p, purchase), nil
}

func purchaseTotal(items []PurchaseItemInput) (decimal.Decimal, error) {
	lines := make([]amounts.LineItem, 0, len(items))
	for i, item := range items {
		if !item.Quantity.IsPositive() {
			return decimal.Zero, shared.Invalid(shared.ErrInvalidLineItem, fmt.Sprintf("items[%d].quantity", i), "quantity must be greater than zero")
		}
		lines = append(lines, amounts.LineItem{Quantity: item.Quantity.Decimal, UnitPrice: item.UnitPrice.Decimal})
	}
	breakdown, err := amounts.Derive(amounts.Input{Items: lines})
	if err != nil {
		return decimal.Zero, err
	}
	return breakdown.Total, nil
}

// CreatePurchase submits a new purchase order.
func (s *Service) CreatePurchase(ctx context.Context, p workflow.Principal, input CreatePurchaseInput) (Purchase, error) {
	if p == nil || !p.Can(shared.PermPurchaseCreate) {
		return Purchase{}, fmt.Errorf("%w: create requires %s", workflow.ErrForbidden, shared.PermPurchaseCreate)
	}
	if err := shared.Validate(input); err != nil {
		return Purchase{}, err
	}
	total, err := purchaseTotal(input.Items)
	if err != nil {
		return Purchase{}, err
	}
	created, err := s.gateway.CreatePurchase(ctx, CreatePurchaseRequest{CreatePurchaseInput: input, Total: amounts.NewMoney(total)})
	if err != nil {
		s.logger.Warn("purchase create rejected", slog.Any("error", err))
		return Purchase{}, err
	}
	s.dispatcher.Settle(ctx, cache.MutationPurchaseCreate)
	s.logger.Info("purchase created", slog.Int64("purchase_id", created.ID), slog.String("po_no", created.PoNo))
	return created, nil
}

// UpdatePurchase replaces the lines of an ordered purchase.
func (s *Service) UpdatePurchase(ctx context.Context, p workflow.Principal, id int64, input UpdatePurchaseInput) (workflow.Outcome, error) {
	if err := shared.Validate(input); err != nil {
		return workflow.Outcome{}, err
	}
	total, err := purchaseTotal(input.Items)
	if err != nil {
		return workflow.Outcome{}, err
	}
	purchase, err := s.GetPurchase(ctx, id)
	if err != nil {
		return workflow.Outcome{}, err
	}
	return workflow.Execute(ctx, s.orch, PurchaseMachine, p, purchase, ActionUpdate, func(ctx context.Context) error {
		_, err := s.gateway.UpdatePurchase(ctx, id, UpdatePurchaseRequest{UpdatePurchaseInput: input, Total: amounts.NewMoney(total)})
		return err
	})
}

// ReceivePurchase records received quantities. Each received quantity must lie between zero
// and the ordered quantity of its line.
func (s *Service) ReceivePurchase(ctx context.Context, p workflow.Principal, id int64, input ReceiveInput) (workflow.Outcome, error) {
	if err := shared.Validate(input); err != nil {
		return workflow.Outcome{}, err
	}
	purchase, err := s.GetPurchase(ctx, id)
	if err != nil {
		return workflow.Outcome{}, err
	}
	for i, item := range input.Items {
		line, ok := purchase.Item(item.PurchaseItemID)
		field := fmt.Sprintf("items[%d].received_quantity", i)
		if !ok {
			return workflow.Outcome{}, shared.Invalid(shared.ErrInvalidLineItem, field, fmt.Sprintf("purchase %d has no line %d", id, item.PurchaseItemID))
		}
		if item.ReceivedQuantity.IsNegative() || item.ReceivedQuantity.GreaterThan(line.Quantity.Decimal) {
			return workflow.Outcome{}, shared.Invalid(shared.ErrInvalidLineItem, field, "received quantity must be between zero and the ordered quantity")
		}
	}
	return workflow.Execute(ctx, s.orch, PurchaseMachine, p, purchase, ActionReceive, func(ctx context.Context) error {
		_, err := s.gateway.ReceivePurchase(ctx, id, input)
		return err
	})
}

// CancelPurchase cancels an ordered purchase.
func (s *Service) CancelPurchase(ctx context.Context, p workflow.Principal, id int64, input CancelInput) (workflow.Outcome, error) {
	if err := shared.Validate(input); err != nil {
		return workflow.Outcome{}, err
	}
	purchase, err := s.GetPurchase(ctx, id)
	if err != nil {
		return workflow.Outcome{}, err
	}
	return workflow.Execute(ctx, s.orch, PurchaseMachine, p, purchase, ActionCancel, func(ctx context.Context) error {
		_, err := s.gateway.CancelPurchase(ctx, id, input)
		return err
	})
}

// PayPurchase allocates and submits a supplier payment against the purchase's due amount.
func (s *Service) PayPurchase(ctx context.Context, p workflow.Principal, id int64, proposal payments.Proposal) (payments.Payment, error) {
	purchase, err := s.GetPurchase(ctx, id)
	if err != nil {
		return payments.Payment{}, err
	}
	var paid payments.Payment
	_, err = workflow.Execute(ctx, s.orch, PurchaseMachine, p, purchase, ActionPay, func(ctx context.Context) error {
		chart, err := s.chart.List(ctx)
		if err != nil {
			return err
		}
		target := payments.Target{Party: payments.PartySupplier, EntityID: purchase.ID, Due: purchase.DueAmount.Decimal}
		res, err := payments.Allocate(target, proposal, chart)
		if err != nil {
			return err
		}
		paid, err = s.payments.Submit(ctx, res.Submission)
		return err
	})
	return paid, err
}

// ListReturns returns a page of purchase returns.
func (s *Service) ListReturns(ctx context.Context, filter shared.ListFilter) (shared.Page[PurchaseReturn], error) {
	var out shared.Page[PurchaseReturn]
	err := s.cache.FetchJSON(ctx, cache.TagPurchaseReturns, filter.CacheParts(), &out, func(ctx context.Context) (any, error) {
		return s.gateway.ListReturns(ctx, filter)
	})
	return out, err
}

// GetReturn returns one purchase return.
func (s *Service) GetReturn(ctx context.Context, id int64) (PurchaseReturn, error) {
	var out PurchaseReturn
	err := s.cache.FetchJSON(ctx, cache.TagPurchaseReturns, []string{idPart(id)}, &out, func(ctx context.Context) (any, error) {
		return s.gateway.GetReturn(ctx, id)
	})
	return out, err
}

// ReturnActions lists the action buttons for a purchase return.
func (s *Service) ReturnActions(ctx context.Context, p workflow.Principal, id int64) (PurchaseReturn, []workflow.ActionView, error) {
	ret, err := s.GetReturn(ctx, id)
	if err != nil {
		return PurchaseReturn{}, nil, err
	}
	return ret, workflow.Actions(s.orch, ReturnMachine, p, ret), nil
}

// RefundHistory lists the refunds recorded against a return, oldest first.
func (s *Service) RefundHistory(ctx context.Context, id int64) ([]Refund, error) {
	var out []Refund
	err := s.cache.FetchJSON(ctx, cache.TagPurchaseReturns, []string{idPart(id), "refunds"}, &out, func(ctx context.Context) (any, error) {
		return s.gateway.ListRefunds(ctx, id)
	})
	return out, err
}

// CreateReturn raises a draft return against a received purchase. Prices come from the
// purchase lines; each returned quantity must be positive, and the quantities returned against
// one purchase line must sum to at most its ordered quantity.
func (s *Service) CreateReturn(ctx context.Context, p workflow.Principal, input CreateReturnInput) (PurchaseReturn, error) {
	if p == nil || !p.Can(shared.PermPurchaseReturnCreate) {
		return PurchaseReturn{}, fmt.Errorf("%w: create requires %s", workflow.ErrForbidden, shared.PermPurchaseReturnCreate)
	}
	if strings.TrimSpace(input.Reason) == "" {
		return PurchaseReturn{}, shared.Invalid(shared.ErrReasonRequired, "reason", "")
	}
	if err := shared.Validate(input); err != nil {
		return PurchaseReturn{}, err
	}
	purchase, err := s.GetPurchase(ctx, input.PurchaseID)
	if err != nil {
		return PurchaseReturn{}, err
	}
	if purchase.Status != PurchaseReceived {
		return PurchaseReturn{}, fmt.Errorf("%w: purchase %s is %s, only received goods can be returned", workflow.ErrInvalidTransition, purchase.PoNo, purchase.Status)
	}

	items := make([]ReturnItem, 0, len(input.Items))
	returned := make(map[int64]decimal.Decimal, len(input.Items))
	for i, in := range input.Items {
		field := fmt.Sprintf("items[%d].returned_quantity", i)
		line, ok := purchase.Item(in.PurchaseItemID)
		if !ok {
			return PurchaseReturn{}, shared.Invalid(shared.ErrInvalidReturnQuantity, field, fmt.Sprintf("purchase %s has no line %d", purchase.PoNo, in.PurchaseItemID))
		}
		if !in.ReturnedQuantity.IsPositive() {
			return PurchaseReturn{}, shared.Invalid(shared.ErrInvalidReturnQuantity, field, "")
		}
		sum := returned[line.ID].Add(in.ReturnedQuantity.Decimal)
		if sum.GreaterThan(line.Quantity.Decimal) {
			return PurchaseReturn{}, shared.Invalid(shared.ErrInvalidReturnQuantity, field,
				fmt.Sprintf("returned quantity %s exceeds ordered %s on line %d", sum, line.Quantity.Decimal, line.ID))
		}
		returned[line.ID] = sum
		items = append(items, ReturnItem{
			PurchaseItemID:   line.ID,
			ProductID:        line.ProductID,
			ReturnedQuantity: in.ReturnedQuantity,
			Price:            line.UnitPrice,
		})
	}

	created, err := s.gateway.CreateReturn(ctx, CreateReturnRequest{
		PurchaseID:  purchase.ID,
		SupplierID:  purchase.SupplierID,
		WarehouseID: purchase.WarehouseID,
		Reason:      strings.TrimSpace(input.Reason),
		Items:       items,
		Total:       amounts.NewMoney(ReturnTotal(items)),
	})
	if err != nil {
		s.logger.Warn("purchase return create rejected", slog.Int64("purchase_id", purchase.ID), slog.Any("error", err))
		return PurchaseReturn{}, err
	}
	s.dispatcher.Settle(ctx, cache.MutationReturnCreate)
	s.logger.Info("purchase return created", slog.Int64("return_id", created.ID), slog.String("return_no", created.ReturnNo))
	return created, nil
}

// ApproveReturn approves a draft return.
func (s *Service) ApproveReturn(ctx context.Context, p workflow.Principal, id int64, input ApproveInput) (workflow.Outcome, error) {
	if err := shared.Validate(input); err != nil {
		return workflow.Outcome{}, err
	}
	return s.transitionReturn(ctx, p, id, ActionApprove, func(ctx context.Context) error {
		_, err := s.gateway.ApproveReturn(ctx, id, input)
		return err
	})
}

// ProcessReturn posts the ledger entries and stock movements of an approved return. There is no
// way back to draft or approved afterwards.
func (s *Service) ProcessReturn(ctx context.Context, p workflow.Principal, id int64, input ProcessInput) (workflow.Outcome, error) {
	if err := shared.Validate(input); err != nil {
		return workflow.Outcome{}, err
	}
	return s.transitionReturn(ctx, p, id, ActionProcess, func(ctx context.Context) error {
		_, err := s.gateway.ProcessReturn(ctx, id, input)
		return err
	})
}

// CancelReturn cancels a draft or approved return.
func (s *Service) CancelReturn(ctx context.Context, p workflow.Principal, id int64, input CancelInput) (workflow.Outcome, error) {
	if err := shared.Validate(input); err != nil {
		return workflow.Outcome{}, err
	}
	return s.transitionReturn(ctx, p, id, ActionCancel, func(ctx context.Context) error {
		_, err := s.gateway.CancelReturn(ctx, id, input)
		return err
	})
}

// RefundReturn records a refund against a processed return. The debit account receives the
// money and must suit the method; refunds are not capped locally.
func (s *Service) RefundReturn(ctx context.Context, p workflow.Principal, id int64, input RefundInput) (Refund, error) {
	if !input.Amount.IsPositive() {
		return Refund{}, shared.Invalid(shared.ErrAmountNotPositive, "amount", "")
	}
	if err := shared.Validate(input); err != nil {
		return Refund{}, err
	}
	var refund Refund
	_, err := s.transitionReturn(ctx, p, id, ActionRefund, func(ctx context.Context) error {
		chart, err := s.chart.List(ctx)
		if err != nil {
			return err
		}
		alloc, err := payments.NewAllocation(input.Method, input.DebitAccountCode, chart)
		if err != nil {
			return err
		}
		if _, ok := accounts.FindByCode(chart, input.CreditAccountCode); !ok {
			return shared.Invalid(shared.ErrAccountNotEligible, "credit_account_code", fmt.Sprintf("account %s does not exist", input.CreditAccountCode))
		}
		input.Method = alloc.Method()
		input.DebitAccountCode = alloc.AccountCode()
		refund, err = s.gateway.RefundReturn(ctx, id, input)
		return err
	})
	return refund, err
}

func (s *Service) transitionReturn(ctx context.Context, p workflow.Principal, id int64, action workflow.Action, submit func(context.Context) error) (workflow.Outcome, error) {
	ret, err := s.GetReturn(ctx, id)
	if err != nil {
		return workflow.Outcome{}, err
	}
	return workflow.Execute(ctx, s.orch, ReturnMachine, p, ret, action, submit)
}
