// Command server runs the commissions gRPC service on the storage backends
// selected by configuration.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/commissions/internal/server"
	"github.com/dmitrijs2005/commissions/internal/server/config"
)

func main() {
	ctx := context.Background()

	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "commissions server: %v\n", err)
		os.Exit(1)
	}

	app.Run(ctx)
}
