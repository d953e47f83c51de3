// Package mcp provides an MCP (Model Context Protocol) server for causaloop.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/causaloop/causaloop/internal/config"
	"github.com/causaloop/causaloop/internal/ratelimit"
	"github.com/causaloop/causaloop/internal/store"
)

// Server wraps the MCP SDK server and exposes causaloop's model tools.
type Server struct {
	server       *sdk.Server
	store        *store.RunStore
	cfg          *config.Config
	toolLimiters ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "causaloop")
	Version string // Server version
	App     *config.Config
}

// NewServer creates a new MCP server with causaloop tools.
func NewServer(cfg *Config) (*Server, error) {
	appCfg := cfg.App
	if appCfg == nil {
		appCfg = config.Default()
	}

	storeDir, err := appCfg.StoreDir()
	if err != nil {
		return nil, err
	}
	runStore, err := store.Open(storeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			// Client initialized, ready to serve
		},
	})

	s := &Server{
		server:       mcpServer,
		store:        runStore,
		cfg:          appCfg,
		toolLimiters: ratelimit.NewToolLimiters(),
	}
	s.registerTools()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.store.Close()

	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	return s.store.Close()
}
