// Package main starts the reconciler process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	reconcilercmd "github.com/reliefnet/reliefnet/internal/cmd/reconciler"
)

func main() {
	cfg, err := reconcilercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[RECONCILER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := reconcilercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to reconcile: %v", err)
	}
}
