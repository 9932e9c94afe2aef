// Package main runs shellnode, a local devnet hosting the delegating-shell
// protocol behind an HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/R3E-Network/shell_layer/internal/app"
)

func main() {
	configPath := flag.String("config", "config/shellnode.yaml", "Path to config file")
	flag.Parse()

	// Optional .env for local development; env vars override the file.
	_ = godotenv.Load()

	application, err := app.NewApplication(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shellnode: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shellnode: %v\n", err)
		os.Exit(1)
	}

	if err := application.Shutdown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "shellnode: %v\n", err)
		os.Exit(1)
	}
}
