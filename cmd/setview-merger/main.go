// Command setview-merger merges the log files written during a
// compaction into one sorted file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/goydb/setview/internal/adapter/helper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := helper.RunMerger(ctx, os.Stdin, os.Stdout)
	stop()
	os.Exit(status)
}
