package sales

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-console/internal/amounts"
	"github.com/odyssey-erp/odyssey-console/internal/payments"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
	"github.com/odyssey-erp/odyssey-console/internal/workflow"
)

// Statuses the business API is known to report. The list is informational; the server owns
// the status and may report others.
const (
	SaleCompleted workflow.Status = "completed"
	SalePending   workflow.Status = "pending"
)

// ActionAddPayment appends a payment to a sale.
const ActionAddPayment workflow.Action = "add_payment"

// ErrNothingDue blocks a payment against a fully paid sale.
var ErrNothingDue = shared.Conflict("sales: sale has nothing due")

// SaleItem is one sold line.
type SaleItem struct {
	ID          int64         `json:"id,omitempty"`
	ProductID   int64         `json:"product_id"`
	ProductName string        `json:"product_name,omitempty"`
	WarehouseID int64         `json:"warehouse_id"`
	Quantity    amounts.Money `json:"quantity"`
	UnitPrice   amounts.Money `json:"unit_price"`
}

// Sale is an invoice as reported by the API. Payments are appended, never edited.
type Sale struct {
	ID            int64                `json:"id"`
	InvoiceNo     string               `json:"invoice_no"`
	CustomerID    int64                `json:"customer_id"`
	CustomerName  string               `json:"customer_name,omitempty"`
	Items         []SaleItem           `json:"items"`
	DiscountType  amounts.DiscountType `json:"discount_type,omitempty"`
	DiscountValue amounts.Money        `json:"discount_value"`
	TaxPercent    amounts.Money        `json:"tax"`
	Subtotal      amounts.Money        `json:"subtotal"`
	Discount      amounts.Money        `json:"discount"`
	TaxAmount     amounts.Money        `json:"tax_amount"`
	Total         amounts.Money        `json:"total"`
	PaidAmount    amounts.Money        `json:"paid_amount"`
	Status        workflow.Status      `json:"status"`
	Payments      []payments.Payment   `json:"payments"`
	Note          string               `json:"note,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Key implements workflow.Subject.
func (s Sale) Key() string { return fmt.Sprintf("sale:%d", s.ID) }

// CurrentStatus implements workflow.Subject.
func (s Sale) CurrentStatus() workflow.Status { return s.Status }

// Due is total minus paid.
func (s Sale) Due() decimal.Decimal {
	return s.Total.Sub(s.PaidAmount.Decimal)
}

func (s Sale) derivedInput() amounts.Input {
	lines := make([]amounts.LineItem, 0, len(s.Items))
	for _, item := range s.Items {
		lines = append(lines, amounts.LineItem{Quantity: item.Quantity.Decimal, UnitPrice: item.UnitPrice.Decimal})
	}
	return amounts.Input{
		Items:      lines,
		Discount:   amounts.Discount{Type: s.DiscountType, Value: s.DiscountValue.Decimal},
		TaxPercent: s.TaxPercent.Decimal,
		Paid:       s.PaidAmount.Decimal,
	}
}

// SaleItemInput is a line at checkout.
type SaleItemInput struct {
	ProductID   int64         `json:"product_id" validate:"gt=0"`
	WarehouseID int64         `json:"warehouse_id" validate:"gt=0"`
	Quantity    amounts.Money `json:"quantity"`
	UnitPrice   amounts.Money `json:"unit_price"`
}

// DiscountInput is the order-level discount entered at checkout.
type DiscountInput struct {
	Type  amounts.DiscountType `json:"type,omitempty" validate:"omitempty,oneof=fixed percentage"`
	Value amounts.Money        `json:"value"`
}

// CheckoutInput describes a new sale with an optional first payment.
type CheckoutInput struct {
	CustomerID int64                   `json:"customer_id" validate:"gt=0"`
	Items      []SaleItemInput         `json:"items" validate:"min=1,dive"`
	Discount   DiscountInput           `json:"discount"`
	TaxPercent amounts.Money           `json:"tax"`
	Payment    *payments.ProposalInput `json:"payment,omitempty"`
	Note       string                  `json:"note,omitempty" validate:"max=500"`
}

// Input converts the checkout into calculator input. The first payment, if any, counts as paid.
func (in CheckoutInput) Input() amounts.Input {
	lines := make([]amounts.LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		lines = append(lines, amounts.LineItem{Quantity: item.Quantity.Decimal, UnitPrice: item.UnitPrice.Decimal})
	}
	out := amounts.Input{
		Items:      lines,
		Discount:   amounts.Discount{Type: in.Discount.Type, Value: in.Discount.Value.Decimal},
		TaxPercent: in.TaxPercent.Decimal,
	}
	if in.Payment != nil {
		out.Paid = in.Payment.Amount.Decimal
	}
	return out
}

// PaymentLine is a payment carried inside the checkout request.
type PaymentLine struct {
	Method             payments.Method `json:"method"`
	Amount             amounts.Money   `json:"amount"`
	PaymentAccountCode string          `json:"payment_account_code"`
	Note               string          `json:"note"`
}

// CheckoutRequest is the payload for POST /sales.
type CheckoutRequest struct {
	CustomerID    int64                `json:"customer_id"`
	Items         []SaleItemInput      `json:"items"`
	DiscountType  amounts.DiscountType `json:"discount_type,omitempty"`
	DiscountValue amounts.Money        `json:"discount_value"`
	TaxPercent    amounts.Money        `json:"tax"`
	Subtotal      amounts.Money        `json:"subtotal"`
	Discount      amounts.Money        `json:"discount"`
	TaxAmount     amounts.Money        `json:"tax_amount"`
	Total         amounts.Money        `json:"total"`
	PaidAmount    amounts.Money        `json:"paid_amount"`
	Payments      []PaymentLine        `json:"payments"`
	Note          string               `json:"note,omitempty"`
}

// Quote is the derived-amount preview of a checkout.
type Quote struct {
	Subtotal        amounts.Money `json:"subtotal"`
	Discount        amounts.Money `json:"discount"`
	Tax             amounts.Money `json:"tax"`
	Total           amounts.Money `json:"total"`
	Paid            amounts.Money `json:"paid"`
	Due             amounts.Money `json:"due"`
	DiscountClamped bool          `json:"discount_clamped,omitempty"`
	// Overpaid warns that the first payment exceeds the total; checkout will reject it.
	Overpaid        bool          `json:"overpaid,omitempty"`
	Display         string        `json:"display"`
}
