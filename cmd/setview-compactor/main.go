// Command setview-compactor rewrites a group file into a new file, it is
// started by setviewd for every compaction.
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
	status := helper.RunCompactor(ctx, os.Stdin, os.Stdout)
	stop()
	os.Exit(status)
}
