// Package cli holds the cobra commands of the console binary.
package cli

import (
	"io"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// NewRootCommand assembles the console command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "console",
		Short: "Odyssey retail console",
		Long: `console serves the retail console API in front of the Odyssey business API and
offers offline helpers for previews and audits.

Configuration is read from the environment and an optional .env file. API_BASE_URL is
required by every command that talks to the business API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the environment is read")
	root.AddCommand(
		newServeCommand(),
		newQuoteCommand(),
		newGraphCommand(),
		newActionsCommand(),
		newJobsCommand(),
	)
	return root
}
