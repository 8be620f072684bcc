// Package amounts derives the monetary fields of purchases, returns and sales.
package amounts

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// DiscountType selects how Discount.Value is interpreted.
type DiscountType string

const (
	DiscountFixed      DiscountType = "fixed"
	DiscountPercentage DiscountType = "percentage"
)

var hundred = decimal.NewFromInt(100)

// LineItem is the priced part of an order line.
type LineItem struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Discount describes an order-level discount.
type Discount struct {
	Type  DiscountType
	Value decimal.Decimal
}

// Input collects everything the derived amounts depend on.
type Input struct {
	Items      []LineItem
	Discount   Discount
	TaxPercent decimal.Decimal
	Paid       decimal.Decimal
}

// Breakdown holds the derived amounts.
type Breakdown struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Due      decimal.Decimal
	// DiscountClamped is set when the requested discount exceeded the subtotal.
	DiscountClamped bool
	// Overpaid is a warning: Paid exceeds Total and Due is negative.
	Overpaid bool
}

// Derive computes subtotal, discount, tax, total and due. Tax is charged on the discounted
// subtotal. The function is pure; identical inputs always yield identical breakdowns.
func Derive(in Input) (Breakdown, error) {
	subtotal, err := Subtotal(in.Items)
	if err != nil {
		return Breakdown{}, err
	}
	if in.TaxPercent.IsNegative() {
		return Breakdown{}, shared.Invalid(shared.ErrInvalidTax, "tax", "")
	}
	if in.Paid.IsNegative() {
		return Breakdown{}, shared.Invalid(shared.ErrAmountNotPositive, "paid_amount", "paid amount must not be negative")
	}

	discount, clamped, err := discountAmount(subtotal, in.Discount)
	if err != nil {
		return Breakdown{}, err
	}
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(in.TaxPercent).Div(hundred).Round(2)
	total := taxable.Add(tax)
	due := total.Sub(in.Paid)

	return Breakdown{
		Subtotal:        subtotal,
		Discount:        discount,
		Tax:             tax,
		Total:           total,
		Due:             due,
		DiscountClamped: clamped,
		Overpaid:        due.IsNegative(),
	}, nil
}

// Subtotal sums quantity × unit price over items.
func Subtotal(items []LineItem) (decimal.Decimal, error) {
	subtotal := decimal.Zero
	for i, item := range items {
		if item.Quantity.IsNegative() || item.UnitPrice.IsNegative() {
			return decimal.Zero, shared.Invalid(shared.ErrInvalidLineItem, fmt.Sprintf("items[%d]", i), "")
		}
		subtotal = subtotal.Add(item.Quantity.Mul(item.UnitPrice))
	}
	return subtotal, nil
}

func discountAmount(subtotal decimal.Decimal, d Discount) (decimal.Decimal, bool, error) {
	if d.Value.IsNegative() {
		return decimal.Zero, false, shared.Invalid(shared.ErrInvalidDiscount, "discount", "")
	}
	var amount decimal.Decimal
	switch d.Type {
	case DiscountFixed, "":
		amount = d.Value
	case DiscountPercentage:
		amount = subtotal.Mul(d.Value).Div(hundred).Round(2)
	default:
		return decimal.Zero, false, shared.Invalid(shared.ErrInvalidDiscount, "discount.type", fmt.Sprintf("unknown discount type %q", d.Type))
	}
	if amount.GreaterThan(subtotal) {
		return subtotal, true, nil
	}
	return amount, false, nil
}
