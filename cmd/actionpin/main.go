// cmd/actionpin/main.go
//
// Entry point for the actionpin CLI. It pins every GitHub Actions reference
// in the workflow files of the repositories under a root directory to the
// commit at the tip of the action's default branch.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
