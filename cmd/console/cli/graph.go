package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-console/internal/app"
)

func newGraphCommand() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the transition tables and the invalidation graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return PrintGraph(cmd.OutOrStdout(), jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	return cmd
}

// PrintGraph writes the workflow graph as tables or JSON.
func PrintGraph(out io.Writer, jsonOutput bool) error {
	graph := app.Graph()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(graph)
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, m := range graph.Machines {
		fmt.Fprintf(tw, "%s\n", m.Entity)
		fmt.Fprintln(tw, "FROM\tACTION\tTO\tPERMISSION\tMUTATION\t")
		for _, e := range m.Edges {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", e.From, e.Action, e.To, e.Permission, e.Mutation)
		}
		fmt.Fprintln(tw)
	}
	fmt.Fprintln(tw, "MUTATION\tINVALIDATES\t")
	for _, entry := range graph.Invalidation {
		fmt.Fprintf(tw, "%s\t%v\t\n", entry.Mutation, entry.Tags)
	}
	return tw.Flush()
}
