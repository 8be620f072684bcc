// Package sales runs checkout and customer payments against the business API.
package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-console/internal/accounts"
	"github.com/odyssey-erp/odyssey-console/internal/amounts"
	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/internal/payments"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
	"github.com/odyssey-erp/odyssey-console/internal/workflow"
)

// Cache is the read-through cache used for sale reads.
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

// Service handles sales business logic.
type Service struct {
	gateway    Gateway
	cache      Cache
	orch       *workflow.Orchestrator
	dispatcher *cache.Dispatcher
	payments   PaymentPort
	chart      ChartPort
	currency   string
	logger     *slog.Logger
}

// NewService creates a new sales service.
func NewService(gateway Gateway, c Cache, orch *workflow.Orchestrator, dispatcher *cache.Dispatcher, pay PaymentPort, chart ChartPort, currency string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gateway:    gateway,
		cache:      c,
		orch:       orch,
		dispatcher: dispatcher,
		payments:   pay,
		chart:      chart,
		currency:   currency,
		logger:     logger,
	}
}

// ListSales returns a page of sales.
func (s *Service) ListSales(ctx context.Context, filter shared.ListFilter) (shared.Page[Sale], error) {
	var out shared.Page[Sale]
	err := s.cache.FetchJSON(ctx, cache.TagSales, filter.CacheParts(), &out, func(ctx context.Context) (any, error) {
		return s.gateway.ListSales(ctx, filter)
	})
	return out, err
}

// GetSale returns one sale. A total that disagrees with the locally derived one is logged and
// otherwise left alone; the server's figures and status win.
func (s *Service) GetSale(ctx context.Context, id int64) (Sale, error) {
	var out Sale
	err := s.cache.FetchJSON(ctx, cache.TagSales, []string{strconv.FormatInt(id, 10)}, &out, func(ctx context.Context) (any, error) {
		return s.gateway.GetSale(ctx, id)
	})
	if err != nil {
		return Sale{}, err
	}
	if derived, err := amounts.Derive(out.derivedInput()); err == nil && !derived.Total.Equal(out.Total.Decimal) {
		s.logger.Warn("sale total differs from derived total",
			slog.Int64("sale_id", out.ID),
			slog.String("total", out.Total.String()),
			slog.String("derived", derived.Total.String()))
	}
	return out, nil
}

// SaleActions lists the action buttons for a sale.
func (s *Service) SaleActions(ctx context.Context, p workflow.Principal, id int64) (Sale, []workflow.ActionView, error) {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return Sale{}, nil, err
	}
	return sale, workflow.Actions(s.orch, SaleMachine, p, sale), nil
}

// Quote previews the derived amounts of a checkout without submitting anything.
func (s *Service) Quote(input CheckoutInput) (Quote, error) {
	in := input.Input()
	breakdown, err := amounts.Derive(in)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Paid:            amounts.NewMoney(in.Paid),
		Overpaid:        breakdown.Overpaid,
		Subtotal:        amounts.NewMoney(breakdown.Subtotal),
		Discount:        amounts.NewMoney(breakdown.Discount),
		Tax:             amounts.NewMoney(breakdown.Tax),
		Total:           amounts.NewMoney(breakdown.Total),
		Due:             amounts.NewMoney(breakdown.Due),
		DiscountClamped: breakdown.DiscountClamped,
		Display:         amounts.Format(breakdown.Total, s.currency),
	}, nil
}

// Checkout creates a sale. The items and the optional first payment are validated together
// and sent in one request.
func (s *Service) Checkout(ctx context.Context, p workflow.Principal, input CheckoutInput) (Sale, error) {
	if p == nil || !p.Can(shared.PermSaleCreate) {
		return Sale{}, fmt.Errorf("%w: checkout requires %s", workflow.ErrForbidden, shared.PermSaleCreate)
	}
	if err := shared.Validate(input); err != nil {
		return Sale{}, err
	}
	for i, item := range input.Items {
		if !item.Quantity.IsPositive() {
			return Sale{}, shared.Invalid(shared.ErrInvalidLineItem, fmt.Sprintf("items[%d].quantity", i), "quantity must be greater than zero")
		}
	}
	breakdown, err := amounts.Derive(input.Input())
	if err != nil {
		return Sale{}, err
	}

	req := CheckoutRequest{
		CustomerID:    input.CustomerID,
		Items:         input.Items,
		DiscountType:  input.Discount.Type,
		DiscountValue: input.Discount.Value,
		TaxPercent:    input.TaxPercent,
		Subtotal:      amounts.NewMoney(breakdown.Subtotal),
		Discount:      amounts.NewMoney(breakdown.Discount),
		TaxAmount:     amounts.NewMoney(breakdown.Tax),
		Total:         amounts.NewMoney(breakdown.Total),
		PaidAmount:    amounts.NewMoney(decimal.Zero),
		Payments:      []PaymentLine{},
		Note:          input.Note,
	}
	if input.Payment != nil {
		line, err := s.firstPayment(ctx, *input.Payment, breakdown.Total)
		if err != nil {
			return Sale{}, err
		}
		req.Payments = append(req.Payments, line)
		req.PaidAmount = line.Amount
	}

	created, err := s.gateway.CreateSale(ctx, req)
	if err != nil {
		s.logger.Warn("checkout rejected", slog.Int64("customer_id", input.CustomerID), slog.Any("error", err))
		return Sale{}, err
	}
	s.dispatcher.Settle(ctx, cache.MutationSaleCreate)
	s.logger.Info("sale created",
		slog.Int64("sale_id", created.ID),
		slog.String("invoice_no", created.InvoiceNo),
		slog.String("total", req.Total.String()))
	return created, nil
}

func (s *Service) firstPayment(ctx context.Context, in payments.ProposalInput, total decimal.Decimal) (PaymentLine, error) {
	proposal, err := in.Proposal()
	if err != nil {
		return PaymentLine{}, err
	}
	chart, err := s.chart.List(ctx)
	if err != nil {
		return PaymentLine{}, err
	}
	res, err := payments.Allocate(payments.Target{Party: payments.PartyCustomer, Due: total}, proposal, chart)
	if err != nil {
		return PaymentLine{}, err
	}
	return PaymentLine{
		Method:             res.Submission.Method,
		Amount:             res.Submission.Amount,
		PaymentAccountCode: res.Submission.PaymentAccountCode,
		Note:               res.Submission.Note,
	}, nil
}

// AddPayment appends a customer payment to a sale with something due.
func (s *Service) AddPayment(ctx context.Context, p workflow.Principal, id int64, proposal payments.Proposal) (payments.Payment, error) {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return payments.Payment{}, err
	}
	var paid payments.Payment
	_, err = workflow.Execute(ctx, s.orch, SaleMachine, p, sale, ActionAddPayment, func(ctx context.Context) error {
		chart, err := s.chart.List(ctx)
		if err != nil {
			return err
		}
		target := payments.Target{Party: payments.PartyCustomer, EntityID: sale.ID, Due: sale.Due()}
		res, err := payments.Allocate(target, proposal, chart)
		if err != nil {
			return err
		}
		paid, err = s.payments.Submit(ctx, res.Submission)
		return err
	})
	return paid, err
}
