package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterkuimelis/clash/internal/app"
	clashnet "github.com/peterkuimelis/clash/internal/net"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	cmd := os.Args[1]
	switch cmd {
	case "play":
		err = runPlay(ctx, os.Args[2:])
	case "host":
		err = runHost(ctx, os.Args[2:])
	case "join":
		err = runJoin(ctx, os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  clash play [--config FILE] [--loadout NAME]")
	fmt.Println("  clash host [--config FILE] [--addr ADDR]")
	fmt.Println("  clash join [--addr ADDR] [--loadout NAME]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  play    Play a battle in this terminal")
	fmt.Println("  host    Serve battles over TCP")
	fmt.Println("  join    Connect to a battle server and play")
}

func runPlay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a TOML or YAML config file")
	loadout := fs.String("loadout", "", "loadout name (default: the configured one)")
	fs.Parse(args)

	env, err := app.Load("clash-cli", *configPath)
	if err != nil {
		return err
	}
	srv := &clashnet.Server{Session: env.Session, Logger: env.Logger}

	// The local player talks to an in-process session over a pipe.
	playerConn, serverConn := net.Pipe()
	defer playerConn.Close()
	go srv.ServeConn(ctx, serverConn)

	return clashnet.NewClient(playerConn, os.Stdin, os.Stdout).Play(ctx, *loadout)
}

func runHost(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("host", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a TOML or YAML config file")
	addr := fs.String("addr", "", "TCP address to listen on (default: server.tcp_addr)")
	fs.Parse(args)

	env, err := app.Load("clash-cli", *configPath)
	if err != nil {
		return err
	}
	listen := env.Config.Server.TCPAddr
	if *addr != "" {
		listen = *addr
	}
	srv := &clashnet.Server{Addr: listen, Session: env.Session, Logger: env.Logger}
	return srv.Run(ctx)
}

func runJoin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("join", flag.ExitOnError)
	addr := fs.String("addr", "localhost:7777", "server address to connect to")
	loadout := fs.String("loadout", "", "loadout name offered by the server")
	fs.Parse(args)

	return clashnet.Connect(ctx, *addr, *loadout)
}
