package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rich-edit/app"
	"rich-edit/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := app.NewServer(ctx, config.Load())
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer server.Close()

	if err := server.Run(ctx); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
