package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterkuimelis/clash/internal/app"
	"github.com/peterkuimelis/clash/internal/web"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML or YAML config file")
	addr := flag.String("addr", "", "HTTP address to listen on (default: server.web_addr)")
	flag.Parse()

	env, err := app.Load("clash-web", *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	listen := env.Config.Server.WebAddr
	if *addr != "" {
		listen = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(web.Options{Session: env.Session, Metrics: env.Metrics, Logger: env.Logger})
	env.Logger.Info().Str("addr", listen).Msg("clash web bridge listening")
	if err := srv.ListenAndServe(ctx, listen); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
