package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-console/internal/amounts"
)

// QuoteOptions are the inputs of the quote command.
type QuoteOptions struct {
	Items        []string
	DiscountType string
	Discount     string
	Tax          string
	Paid         string
	Currency     string
	JSONOutput   bool
}

func newQuoteCommand() *cobra.Command {
	var opts QuoteOptions
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Preview the derived amounts of an order",
		Long: `quote runs the derived amount calculator offline. Items are given as QTY@PRICE.
Tax is charged on the discounted subtotal; a discount above the subtotal is clamped.`,
		Example: `  console quote --item 2@50 --item 1@100 --discount-type percentage --discount 10 --tax 18`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunQuote(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringArrayVar(&opts.Items, "item", nil, "line item as QTY@PRICE (repeatable)")
	cmd.Flags().StringVar(&opts.DiscountType, "discount-type", "", "fixed or percentage")
	cmd.Flags().StringVar(&opts.Discount, "discount", "0", "discount value")
	cmd.Flags().StringVar(&opts.Tax, "tax", "0", "tax percent")
	cmd.Flags().StringVar(&opts.Paid, "paid", "0", "amount already paid")
	cmd.Flags().StringVar(&opts.Currency, "currency", "IDR", "currency code shown with amounts")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "print JSON")
	return cmd
}

type quoteOutput struct {
	Subtotal        amounts.Money `json:"subtotal"`
	Discount        amounts.Money `json:"discount"`
	Tax             amounts.Money `json:"tax"`
	Total           amounts.Money `json:"total"`
	Due             amounts.Money `json:"due"`
	DiscountClamped bool          `json:"discount_clamped"`
	Overpaid        bool          `json:"overpaid"`
}

// RunQuote derives and prints the amounts described by opts.
func RunQuote(out io.Writer, opts QuoteOptions) error {
	input, err := opts.input()
	if err != nil {
		return err
	}
	b, err := amounts.Derive(input)
	if err != nil {
		return err
	}
	if opts.JSONOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(quoteOutput{
			Subtotal:        amounts.NewMoney(b.Subtotal),
			Discount:        amounts.NewMoney(b.Discount),
			Tax:             amounts.NewMoney(b.Tax),
			Total:           amounts.NewMoney(b.Total),
			Due:             amounts.NewMoney(b.Due),
			DiscountClamped: b.DiscountClamped,
			Overpaid:        b.Overpaid,
		})
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	rows := []struct {
		label string
		value decimal.Decimal
	}{
		{"Subtotal", b.Subtotal},
		{"Discount", b.Discount},
		{"Tax", b.Tax},
		{"Total", b.Total},
		{"Due", b.Due},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t\n", row.label, amounts.Format(row.value, opts.Currency))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if b.DiscountClamped {
		fmt.Fprintln(out, "note: discount clamped to subtotal")
	}
	if b.Overpaid {
		fmt.Fprintln(out, "note: paid amount exceeds total")
	}
	return nil
}

func (o QuoteOptions) input() (amounts.Input, error) {
	var in amounts.Input
	for _, raw := range o.Items {
		qty, price, ok := strings.Cut(raw, "@")
		if !ok {
			return in, fmt.Errorf("quote: item %q must be QTY@PRICE", raw)
		}
		q, err := amounts.ParseMoney(qty)
		if err != nil {
			return in, err
		}
		p, err := amounts.ParseMoney(price)
		if err != nil {
			return in, err
		}
		in.Items = append(in.Items, amounts.LineItem{Quantity: q.Decimal, UnitPrice: p.Decimal})
	}
	fields := []struct {
		raw  string
		dest *decimal.Decimal
	}{
		{o.Discount, &in.Discount.Value},
		{o.Tax, &in.TaxPercent},
		{o.Paid, &in.Paid},
	}
	for _, f := range fields {
		m, err := amounts.ParseMoney(f.raw)
		if err != nil {
			return in, err
		}
		*f.dest = m.Decimal
	}
	in.Discount.Type = amounts.DiscountType(strings.ToLower(strings.TrimSpace(o.DiscountType)))
	return in, nil
}
