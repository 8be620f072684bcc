package main

import (
	"context"
	"fmt"
	"os"

	"github.com/odyssey-erp/odyssey-console/cmd/console/cli"
)

func main() {
	root := cli.NewRootCommand(os.Stdout)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "console: %v\n", err)
		os.Exit(1)
	}
}
