// Command pipeline fetches, merges and derives the rankings files served by
// the civicrank site.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/civicrank/cmd/pipeline/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(commands.ExecuteContext(ctx))
}
