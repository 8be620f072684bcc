package procurement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-console/internal/amounts"
	"github.com/odyssey-erp/odyssey-console/internal/payments"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
	"github.com/odyssey-erp/odyssey-console/internal/workflow"
)

// Purchase lifecycle statuses.
const (
	PurchaseOrdered   workflow.Status = "ordered"
	PurchaseReceived  workflow.Status = "received"
	PurchaseCancelled workflow.Status = "cancelled"
)

// Purchase return lifecycle statuses.
const (
	ReturnDraft     workflow.Status = "draft"
	ReturnApproved  workflow.Status = "approved"
	ReturnProcessed workflow.Status = "processed"
	ReturnCancelled workflow.Status = "cancelled"
)

// Workflow actions.
const (
	ActionReceive workflow.Action = "receive"
	ActionUpdate  workflow.Action = "update"
	ActionPay     workflow.Action = "pay"
	ActionCancel  workflow.Action = "cancel"
	ActionApprove workflow.Action = "approve"
	ActionProcess workflow.Action = "process"
	ActionRefund  workflow.Action = "refund"
)

// ErrNothingDue blocks a payment against a settled purchase.
var ErrNothingDue = shared.Conflict("procurement: purchase has nothing due")

// PurchaseItem is an ordered line.
type PurchaseItem struct {
	ID               int64         `json:"id"`
	ProductID        int64         `json:"product_id"`
	ProductName      string        `json:"product_name,omitempty"`
	Quantity         amounts.Money `json:"quantity"`
	ReceivedQuantity amounts.Money `json:"received_quantity"`
	UnitPrice        amounts.Money `json:"unit_price"`
}

// Purchase is a purchase order as reported by the API.
type Purchase struct {
	ID          int64           `json:"id"`
	PoNo        string          `json:"po_no"`
	SupplierID  int64           `json:"supplier_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Status      workflow.Status `json:"status"`
	Items       []PurchaseItem  `json:"items"`
	Total       amounts.Money   `json:"total"`
	PaidAmount  amounts.Money   `json:"paid_amount"`
	DueAmount   amounts.Money   `json:"due_amount"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Key implements workflow.Subject.
func (p Purchase) Key() string { return fmt.Sprintf("purchase:%d", p.ID) }

// CurrentStatus implements workflow.Subject.
func (p Purchase) CurrentStatus() workflow.Status { return p.Status }

// Consistent reports whether the reported amounts satisfy due = total - paid and due >= 0.
func (p Purchase) Consistent() bool {
	return !p.DueAmount.IsNegative() && p.DueAmount.Equal(p.Total.Sub(p.PaidAmount.Decimal))
}

// Item returns the line with id.
func (p Purchase) Item(id int64) (PurchaseItem, bool) {
	for _, item := range p.Items {
		if item.ID == id {
			return item, true
		}
	}
	return PurchaseItem{}, false
}

// ReturnItem is a returned quantity of an original purchase line.
type ReturnItem struct {
	ID               int64         `json:"id,omitempty"`
	PurchaseItemID   int64         `json:"purchase_item_id"`
	ProductID        int64         `json:"product_id"`
	ReturnedQuantity amounts.Money `json:"returned_quantity"`
	Price            amounts.Money `json:"price"`
}

// PurchaseReturn is a return of received goods to the supplier.
type PurchaseReturn struct {
	ID                  int64           `json:"id"`
	ReturnNo            string          `json:"return_no"`
	PurchaseID          int64           `json:"purchase_id"`
	SupplierID          int64           `json:"supplier_id"`
	WarehouseID         int64           `json:"warehouse_id"`
	Reason              string          `json:"reason"`
	Items               []ReturnItem    `json:"items"`
	Total               amounts.Money   `json:"total"`
	Status              workflow.Status `json:"status"`
	ApprovedBy          int64           `json:"approved_by,omitempty"`
	ApprovalNotes       string          `json:"approval_notes,omitempty"`
	ProcessingNotes     string          `json:"processing_notes,omitempty"`
	RefundToSupplier    bool            `json:"refund_to_supplier"`
	RefundAmount        amounts.Money   `json:"refund_amount"`
	RefundPaymentMethod payments.Method `json:"refund_payment_method,omitempty"`
	RefundReference     string          `json:"refund_reference,omitempty"`
	RefundedAt          *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Key implements workflow.Subject.
func (r PurchaseReturn) Key() string { return fmt.Sprintf("purchase_return:%d", r.ID) }

// CurrentStatus implements workflow.Subject.
func (r PurchaseReturn) CurrentStatus() workflow.Status { return r.Status }

// Refund is one entry of a processed return's refund history.
type Refund struct {
	ID                int64           `json:"id"`
	ReturnID          int64           `json:"purchase_return_id"`
	Amount            amounts.Money   `json:"amount"`
	Method            payments.Method `json:"method"`
	DebitAccountCode  string          `json:"debit_account_code"`
	CreditAccountCode string          `json:"credit_account_code"`
	Reference         string          `json:"reference,omitempty"`
	Note              string          `json:"note,omitempty"`
	RefundedAt        time.Time       `json:"refunded_at"`
}

// ReturnTotal sums returned quantity × price.
func ReturnTotal(items []ReturnItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.ReturnedQuantity.Mul(item.Price.Decimal))
	}
	return total
}

// PurchaseItemInput is a line of a new purchase.
type PurchaseItemInput struct {
	ProductID int64         `json:"product_id" validate:"gt=0"`
	Quantity  amounts.Money `json:"quantity"`
	UnitPrice amounts.Money `json:"unit_price"`
}

// CreatePurchaseInput describes a new purchase order.
type CreatePurchaseInput struct {
	SupplierID  int64               `json:"supplier_id" validate:"gt=0"`
	WarehouseID int64               `json:"warehouse_id" validate:"gt=0"`
	Items       []PurchaseItemInput `json:"items" validate:"min=1,dive"`
	Note        string              `json:"note,omitempty" validate:"max=500"`
}

// CreatePurchaseRequest is the payload for POST /purchases.
type CreatePurchaseRequest struct {
	CreatePurchaseInput
	Total amounts.Money `json:"total"`
}

// UpdatePurchaseInput replaces the lines of an ordered purchase.
type UpdatePurchaseInput struct {
	Items []PurchaseItemInput `json:"items" validate:"min=1,dive"`
	Note  string              `json:"note,omitempty" validate:"max=500"`
}

// UpdatePurchaseRequest is the payload for PATCH /purchases/:id.
type UpdatePurchaseRequest struct {
	UpdatePurchaseInput
	Total amounts.Money `json:"total"`
}

// ReceivedItem sets the received quantity of a line.
type ReceivedItem struct {
	PurchaseItemID   int64         `json:"purchase_item_id" validate:"gt=0"`
	ReceivedQuantity amounts.Money `json:"received_quantity"`
}

// ReceiveInput records goods received. Without items every line is received in full.
type ReceiveInput struct {
	Items []ReceivedItem `json:"items,omitempty" validate:"dive"`
	Note  string         `json:"note,omitempty" validate:"max=500"`
}

// CancelInput cancels a purchase or a return.
type CancelInput struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// ReturnItemInput is a line of a new return.
type ReturnItemInput struct {
	PurchaseItemID   int64         `json:"purchase_item_id" validate:"gt=0"`
	ReturnedQuantity amounts.Money `json:"returned_quantity"`
}

// CreateReturnInput describes a new purchase return.
type CreateReturnInput struct {
	PurchaseID int64             `json:"purchase_id" validate:"gt=0"`
	Reason     string            `json:"reason"`
	Items      []ReturnItemInput `json:"items" validate:"min=1,dive"`
}

// CreateReturnRequest is the payload for POST /purchase-returns.
type CreateReturnRequest struct {
	PurchaseID  int64         `json:"purchase_id"`
	SupplierID  int64         `json:"supplier_id"`
	WarehouseID int64         `json:"warehouse_id"`
	Reason      string        `json:"reason"`
	Items       []ReturnItem  `json:"items"`
	Total       amounts.Money `json:"total"`
}

// ApproveInput carries optional approval notes.
type ApproveInput struct {
	ApprovalNotes string `json:"approval_notes,omitempty" validate:"max=500"`
}

// ProcessInput carries optional processing notes.
type ProcessInput struct {
	ProcessingNotes string `json:"processing_notes,omitempty" validate:"max=500"`
}

// RefundInput records money coming back from the supplier for a processed return.
type RefundInput struct {
	Amount            amounts.Money   `json:"amount"`
	Method            payments.Method `json:"method"`
	DebitAccountCode  string          `json:"debit_account_code"`
	CreditAccountCode string          `json:"credit_account_code" validate:"required"`
	Reference         string          `json:"reference,omitempty" validate:"max=100"`
	Note              string          `json:"note,omitempty" validate:"max=255"`
}
