// Package cache keeps refetchable copies of remote resources and the table that decides which
// resource collections each mutation makes stale.
package cache

import (
	"errors"
	"fmt"
	"sort"
)

// Tag names a cached resource collection.
type Tag string

const (
	TagPurchases       Tag = "Purchases"
	TagPurchaseReturns Tag = "PurchaseReturns"
	TagSales           Tag = "Sales"
	TagPayments        Tag = "Payments"
	TagSuppliers       Tag = "Suppliers"
	TagCustomers       Tag = "Customers"
	TagProducts        Tag = "Products"
	TagInventory       Tag = "Inventory"
	TagAccounts        Tag = "Accounts"
	TagJournal         Tag = "Journal"
)

// AllTags lists every known tag in a stable order.
func AllTags() []Tag {
	return []Tag{
		TagPurchases, TagPurchaseReturns, TagSales, TagPayments, TagSuppliers,
		TagCustomers, TagProducts, TagInventory, TagAccounts, TagJournal,
	}
}

// Mutation identifies a write submitted to the business API.
type Mutation string

const (
	MutationPurchaseCreate  Mutation = "purchase.create"
	MutationPurchaseUpdate  Mutation = "purchase.update"
	MutationPurchaseReceive Mutation = "purchase.receive"
	MutationPurchaseCancel  Mutation = "purchase.cancel"

	MutationReturnCreate  Mutation = "purchase_return.create"
	MutationReturnApprove Mutation = "purchase_return.approve"
	MutationReturnProcess Mutation = "purchase_return.process"
	MutationReturnCancel  Mutation = "purchase_return.cancel"
	MutationReturnRefund  Mutation = "purchase_return.refund"

	MutationSaleCreate Mutation = "sale.create"

	MutationPaymentCreate Mutation = "payment.create"

	MutationAccountAddCash      Mutation = "account.add_cash"
	MutationAccountAddBank      Mutation = "account.add_bank_balance"
	MutationAccountFundTransfer Mutation = "account.fund_transfer"

	MutationProductCreate Mutation = "product.create"
	MutationProductUpdate Mutation = "product.update"
	MutationProductDelete Mutation = "product.delete"
)

// ErrUnknownMutation is returned for a mutation missing from the graph.
var ErrUnknownMutation = errors.New("cache: mutation has no invalidation entry")

// invalidationGraph maps each mutation to the tags it makes stale. Money and stock writes list
// every collection a mounted view might read a balance, due amount or quantity from; extra tags
// only cost a refetch, a missing one shows a stale figure.
var invalidationGraph = map[Mutation][]Tag{
	MutationPurchaseCreate:  {TagPurchases, TagSuppliers},
	MutationPurchaseUpdate:  {TagPurchases, TagSuppliers},
	MutationPurchaseReceive: {TagPurchases, TagProducts, TagInventory},
	MutationPurchaseCancel:  {TagPurchases, TagSuppliers},

	MutationReturnCreate:  {TagPurchaseReturns, TagPurchases, TagInventory},
	MutationReturnApprove: {TagPurchaseReturns, TagPurchases, TagInventory},
	MutationReturnProcess: {TagPurchaseReturns, TagPurchases, TagInventory, TagAccounts, TagJournal, TagProducts},
	MutationReturnCancel:  {TagPurchaseReturns, TagPurchases, TagInventory},
	MutationReturnRefund:  {TagPurchaseReturns, TagPurchases, TagSuppliers, TagAccounts, TagJournal},

	MutationSaleCreate: {TagSales, TagCustomers, TagInventory, TagProducts, TagAccounts, TagJournal},

	MutationPaymentCreate: {TagPurchases, TagSales, TagSuppliers, TagCustomers, TagPayments, TagAccounts, TagJournal},

	MutationAccountAddCash:      {TagAccounts, TagJournal},
	MutationAccountAddBank:      {TagAccounts, TagJournal},
	MutationAccountFundTransfer: {TagAccounts, TagJournal},

	MutationProductCreate: {TagProducts, TagSuppliers},
	MutationProductUpdate: {TagProducts, TagSuppliers},
	MutationProductDelete: {TagProducts, TagSuppliers, TagInventory},
}

// TagsFor returns the tags invalidated by m, sorted.
func TagsFor(m Mutation) ([]Tag, error) {
	tags, ok := invalidationGraph[m]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMutation, m)
	}
	out := append([]Tag(nil), tags...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// GraphEntry is one row of the invalidation table.
type GraphEntry struct {
	Mutation Mutation `json:"mutation"`
	Tags     []Tag    `json:"tags"`
}

// Graph returns the whole table sorted by mutation, for audit output.
func Graph() []GraphEntry {
	entries := make([]GraphEntry, 0, len(invalidationGraph))
	for m := range invalidationGraph {
		tags, _ := TagsFor(m)
		entries = append(entries, GraphEntry{Mutation: m, Tags: tags})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Mutation < entries[j].Mutation })
	return entries
}
