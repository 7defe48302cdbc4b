package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrei-cloud/go_draconis/internal/commands/cli"

	// Statically linked plugins register themselves from init.
	_ "github.com/andrei-cloud/go_draconis/internal/builtin/markdown"
	_ "github.com/andrei-cloud/go_draconis/internal/builtin/session"
	_ "github.com/andrei-cloud/go_draconis/internal/builtin/yamlformat"
)

// main builds the command tree and runs it until completion or SIGINT/SIGTERM.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := cli.NewRootCommand()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
