package procurement

import (
	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
	"github.com/odyssey-erp/odyssey-console/internal/workflow"
)

func purchaseHasDue(p Purchase) error {
	if !p.DueAmount.IsPositive() {
		return ErrNothingDue
	}
	return nil
}

var paymentFields = []workflow.Field{
	{Name: "amount", Required: true},
	{Name: "method", Required: true},
	{Name: "payment_account_code", Required: true},
	{Name: "note"},
}

// PurchaseMachine: ordered -> received | cancelled. Payment is orthogonal to status and only
// needs something due; the payment service settles its own invalidation.
var PurchaseMachine = workflow.NewMachine("purchase",
	[]workflow.Status{PurchaseOrdered, PurchaseReceived, PurchaseCancelled},
	workflow.Transition[Purchase]{
		From: PurchaseOrdered, Action: ActionReceive, To: PurchaseReceived,
		Label: "Receive", Permission: shared.PermPurchaseReceive, Modal: workflow.ModalForm,
		Fields:   []workflow.Field{{Name: "items"}, {Name: "note"}},
		Mutation: cache.MutationPurchaseReceive,
	},
	workflow.Transition[Purchase]{
		From: PurchaseOrdered, Action: ActionUpdate, To: PurchaseOrdered,
		Label: "Edit", Permission: shared.PermPurchaseEdit, Modal: workflow.ModalForm,
		Fields:   []workflow.Field{{Name: "items", Required: true}, {Name: "note"}},
		Mutation: cache.MutationPurchaseUpdate,
	},
	workflow.Transition[Purchase]{
		From: PurchaseOrdered, Action: ActionPay, To: PurchaseOrdered,
		Label: "Add payment", Permission: shared.PermSupplierPaymentCreate, Modal: workflow.ModalPayment,
		Fields: paymentFields, Guard: purchaseHasDue,
	},
	workflow.Transition[Purchase]{
		From: PurchaseOrdered, Action: ActionCancel, To: PurchaseCancelled,
		Label: "Cancel", Permission: shared.PermPurchaseCancel, Modal: workflow.ModalConfirm,
		Fields:   []workflow.Field{{Name: "reason"}},
		Mutation: cache.MutationPurchaseCancel,
	},
	workflow.Transition[Purchase]{
		From: PurchaseReceived, Action: ActionPay, To: PurchaseReceived,
		Label: "Add payment", Permission: shared.PermSupplierPaymentCreate, Modal: workflow.ModalPayment,
		Fields: paymentFields, Guard: purchaseHasDue,
	},
)

// ReturnMachine: draft -> approved -> processed, with cancel from draft or approved. Processing
// is irreversible. A processed return accepts any number of refunds.
var ReturnMachine = workflow.NewMachine("purchase_return",
	[]workflow.Status{ReturnDraft, ReturnApproved, ReturnProcessed, ReturnCancelled},
	workflow.Transition[PurchaseReturn]{
		From: ReturnDraft, Action: ActionApprove, To: ReturnApproved,
		Label: "Approve", Permission: shared.PermPurchaseReturnApprove, Modal: workflow.ModalForm,
		Fields:   []workflow.Field{{Name: "approval_notes"}},
		Mutation: cache.MutationReturnApprove,
	},
	workflow.Transition[PurchaseReturn]{
		From: ReturnDraft, Action: ActionCancel, To: ReturnCancelled,
		Label: "Cancel", Permission: shared.PermPurchaseReturnCancel, Modal: workflow.ModalConfirm,
		Mutation: cache.MutationReturnCancel,
	},
	workflow.Transition[PurchaseReturn]{
		From: ReturnApproved, Action: ActionProcess, To: ReturnProcessed,
		Label: "Process", Permission: shared.PermPurchaseReturnProcess, Modal: workflow.ModalConfirm,
		Fields:   []workflow.Field{{Name: "processing_notes"}},
		Mutation: cache.MutationReturnProcess,
	},
	workflow.Transition[PurchaseReturn]{
		From: ReturnApproved, Action: ActionCancel, To: ReturnCancelled,
		Label: "Cancel", Permission: shared.PermPurchaseReturnCancel, Modal: workflow.ModalConfirm,
		Mutation: cache.MutationReturnCancel,
	},
	workflow.Transition[PurchaseReturn]{
		From: ReturnProcessed, Action: ActionRefund, To: ReturnProcessed,
		Label: "Record refund", Permission: shared.PermPurchaseReturnRefund, Modal: workflow.ModalPayment,
		Fields: []workflow.Field{
			{Name: "amount", Required: true},
			{Name: "method", Required: true},
			{Name: "debit_account_code", Required: true},
			{Name: "credit_account_code", Required: true},
			{Name: "reference"},
			{Name: "note"},
		},
		Mutation: cache.MutationReturnRefund,
	},
)
