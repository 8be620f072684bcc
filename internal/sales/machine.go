package sales

import (
	"github.com/odyssey-erp/odyssey-console/internal/shared"
	"github.com/odyssey-erp/odyssey-console/internal/workflow"
)

func saleHasDue(s Sale) error {
	if !s.Due().IsPositive() {
		return ErrNothingDue
	}
	return nil
}

// SaleMachine has no status table. The server classifies a sale as completed or pending; the
// console only appends payments while something is due and never infers the status itself.
var SaleMachine = workflow.NewMachine("sale",
	[]workflow.Status{SaleCompleted, SalePending},
	workflow.Transition[Sale]{
		From: workflow.AnyStatus, Action: ActionAddPayment, To: workflow.AnyStatus,
		Label: "Add payment", Permission: shared.PermCustomerPaymentCreate, Modal: workflow.ModalPayment,
		Fields: []workflow.Field{
			{Name: "amount", Required: true},
			{Name: "method", Required: true},
			{Name: "payment_account_code", Required: true},
			{Name: "note"},
		},
		Guard: saleHasDue,
	},
)
