package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	botcmd "github.com/lpoto/discord-utility-bot/internal/cmd/bot"
	"github.com/lpoto/discord-utility-bot/internal/platform/config"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

// gateway is the platform connection. A transport adapter linked into the
// binary assigns it from an init function; the core never imports a platform
// SDK directly.
var gateway transport.Gateway

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}
	cfg, err := botcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[BOT] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := botcmd.Run(ctx, cfg, gateway); err != nil {
		config.Exitf("failed to serve: %v", err)
	}
}
