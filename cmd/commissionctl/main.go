// Command commissionctl is the operator tool of the commission engine. It
// talks to the configured database directly for maintenance work (migrations,
// sweeps, manual ledger entries, admin grants, development tokens) and to a
// running server through the client SDK.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
