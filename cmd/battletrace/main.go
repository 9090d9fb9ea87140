package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	battletracecmd "github.com/tabletopvod/battletrace/internal/cmd/battletrace"
	"github.com/tabletopvod/battletrace/internal/platform/config"
)

func main() {
	cfg, err := battletracecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[BATTLETRACE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := battletracecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
