package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
	"github.com/odyssey-erp/odyssey-console/internal/workflow"
	_ "github.com/odyssey-erp/odyssey-console/testing"
)

func TestQuoteCommandTable(t *testing.T) {
	out := new(bytes.Buffer)
	root := NewRootCommand(out)
	root.SetArgs([]string{"quote", "--item", "2@50", "--item", "1@100", "--discount-type", "percentage", "--discount", "10", "--tax", "18"})
	require.NoError(t, root.Execute())

	text := out.String()
	require.Contains(t, text, "IDR 200.00")
	require.Contains(t, text, "IDR 20.00")
	require.Contains(t, text, "IDR 32.40")
	require.Contains(t, text, "IDR 212.40")
	require.NotContains(t, text, "clamped")
}

func TestQuoteJSONClampsDiscount(t *testing.T) {
	out := new(bytes.Buffer)
	require.NoError(t, RunQuote(out, QuoteOptions{
		Items:        []string{"1@40"},
		DiscountType: "fixed",
		Discount:     "50",
		Tax:          "0",
		Paid:         "0",
		JSONOutput:   true,
	}))
	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, true, got["discount_clamped"])
	require.Equal(t, float64(0), got["total"])
}

func TestQuoteRejectsBadInput(t *testing.T) {
	err := RunQuote(new(bytes.Buffer), QuoteOptions{Items: []string{"2x50"}, Discount: "0", Tax: "0", Paid: "0"})
	require.ErrorContains(t, err, "QTY@PRICE")

	err = RunQuote(new(bytes.Buffer), QuoteOptions{Items: []string{"1@10"}, Discount: "0", Tax: "-1", Paid: "0"})
	require.ErrorIs(t, err, shared.ErrInvalidTax)
}

func TestGraphCommandJSON(t *testing.T) {
	out := new(bytes.Buffer)
	root := NewRootCommand(out)
	root.SetArgs([]string{"graph", "--json"})
	require.NoError(t, root.Execute())

	var graph struct {
		Machines     []workflow.Table   `json:"machines"`
		Invalidation []cache.GraphEntry `json:"invalidation"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &graph))
	require.Len(t, graph.Machines, 3)
	require.Len(t, graph.Invalidation, len(cache.Graph()))
}

func TestGraphCommandTable(t *testing.T) {
	out := new(bytes.Buffer)
	require.NoError(t, PrintGraph(out, false))
	text := out.String()
	require.Contains(t, text, "purchase_return")
	require.Contains(t, text, "purchase_return.process")
	require.True(t, strings.Contains(text, "MUTATION") && strings.Contains(text, "INVALIDATES"))
}

func TestParseTags(t *testing.T) {
	tags, err := parseTags([]string{"Purchases", "Sales"})
	require.NoError(t, err)
	require.Equal(t, []cache.Tag{cache.TagPurchases, cache.TagSales}, tags)

	_, err = parseTags([]string{"Widgets"})
	require.ErrorContains(t, err, "unknown tag")
}

func TestActionsRejectsBadID(t *testing.T) {
	root := NewRootCommand(new(bytes.Buffer))
	root.SetArgs([]string{"actions", "purchase", "abc"})
	require.ErrorContains(t, root.Execute(), "invalid id")
}

func TestServeSkipsInTestMode(t *testing.T) {
	root := NewRootCommand(new(bytes.Buffer))
	root.SetArgs([]string{"serve"})
	require.NoError(t, root.Execute())
}
