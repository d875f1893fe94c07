// Command dirsync keeps a replica folder identical to a source folder.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bolasblack/dirsync/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.ExecuteContext(ctx)
}
