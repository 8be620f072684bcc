package shared

// Console workflow permissions. The catalogue itself is owned by the auth service; these are
// the keys the console checks before offering an action.
const (
	// Purchase permissions
	PermPurchaseView    = "purchases.view"
	PermPurchaseCreate  = "purchases.create"
	PermPurchaseEdit    = "purchases.edit"
	PermPurchaseReceive = "purchases.receive"
	PermPurchaseCancel  = "purchases.cancel"

	// Purchase return permissions
	PermPurchaseReturnView    = "purchase_returns.view"
	PermPurchaseReturnCreate  = "purchase_returns.create"
	PermPurchaseReturnApprove = "purchase_returns.approve"
	PermPurchaseReturnProcess = "purchase_returns.process"
	PermPurchaseReturnCancel  = "purchase_returns.cancel"
	PermPurchaseReturnRefund  = "purchase_returns.refund"

	// Sales permissions
	PermSaleView   = "sales.view"
	PermSaleCreate = "sales.create"

	// Payment permissions
	PermSupplierPaymentCreate = "payments.supplier.create"
	PermCustomerPaymentCreate = "payments.customer.create"

	// Account permissions
	PermAccountView     = "accounts.view"
	PermAccountAddCash  = "accounts.add_cash"
	PermAccountAddBank  = "accounts.add_bank_balance"
	PermAccountTransfer = "accounts.fund_transfer"

	// Product permissions
	PermProductCreate = "products.create"
	PermProductEdit   = "products.edit"
	PermProductDelete = "products.delete"
)

// ConsoleScopes lists every permission the console consults.
func ConsoleScopes() []string {
	return []string{
		PermPurchaseView,
		PermPurchaseCreate,
		PermPurchaseEdit,
		PermPurchaseReceive,
		PermPurchaseCancel,
		PermPurchaseReturnView,
		PermPurchaseReturnCreate,
		PermPurchaseReturnApprove,
		PermPurchaseReturnProcess,
		PermPurchaseReturnCancel,
		PermPurchaseReturnRefund,
		PermSaleView,
		PermSaleCreate,
		PermSupplierPaymentCreate,
		PermCustomerPaymentCreate,
		PermAccountView,
		PermAccountAddCash,
		PermAccountAddBank,
		PermAccountTransfer,
		PermProductCreate,
		PermProductEdit,
		PermProductDelete,
	}
}
