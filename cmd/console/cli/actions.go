package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-console/internal/app"
	"github.com/odyssey-erp/odyssey-console/internal/remote"
	"github.com/odyssey-erp/odyssey-console/internal/workflow"
)

func newActionsCommand() *cobra.Command {
	var (
		token      string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "actions ENTITY ID",
		Short: "List the actions a user may take on an entity",
		Long: `actions reads an entity from the business API and prints the actions its current
status allows, as the console would render them for the user behind --token.
ENTITY is one of purchase, purchase-return or sale.`,
		Example: `  console actions purchase-return 8 --token $TOKEN`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("actions: invalid id %q", args[1])
			}
			console, err := loadConsole(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = console.Close() }()
			if token == "" {
				token = console.Config.APIToken
			}
			views, status, err := ListActions(cmd.Context(), console, token, args[0], id)
			if err != nil {
				return err
			}
			return printActions(cmd.OutOrStdout(), status, views, jsonOutput)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token of the user (defaults to API_TOKEN)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	return cmd
}

// ListActions resolves the principal behind token and returns the entity's action list.
func ListActions(ctx context.Context, c *app.Console, token, entity string, id int64) ([]workflow.ActionView, workflow.Status, error) {
	ctx = remote.ContextWithToken(ctx, token)
	principal, err := c.RBAC.Resolve(ctx)
	if err != nil {
		return nil, "", err
	}
	switch entity {
	case "purchase":
		p, views, err := c.Procurement.PurchaseActions(ctx, principal, id)
		return views, p.Status, err
	case "purchase-return", "return":
		r, views, err := c.Procurement.ReturnActions(ctx, principal, id)
		return views, r.Status, err
	case "sale":
		s, views, err := c.Sales.SaleActions(ctx, principal, id)
		return views, s.Status, err
	default:
		return nil, "", fmt.Errorf("actions: unknown entity %q", entity)
	}
}

func printActions(out io.Writer, status workflow.Status, views []workflow.ActionView, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"status": status, "actions": views})
	}
	fmt.Fprintf(out, "status: %s\n", status)
	if len(views) == 0 {
		fmt.Fprintln(out, "no actions available")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tLABEL\tENABLED\tREASON\t")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t\n", v.Action, v.Label, v.Enabled, v.Reason)
	}
	return tw.Flush()
}
