package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/peterkuimelis/clash/internal/app"
	clashmcp "github.com/peterkuimelis/clash/internal/mcp"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML or YAML config file")
	flag.Parse()

	env, err := app.Load("clash-mcp", *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	clashmcp.SetSessionConfig(env.Session)
	defer clashmcp.Shutdown()

	s := server.NewMCPServer("clash", "1.0.0")
	clashmcp.RegisterTools(s)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
