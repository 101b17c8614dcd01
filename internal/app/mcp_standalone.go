package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"scribe/internal/config"
	"scribe/internal/event"
	"scribe/internal/gateway"
	mcpserver "scribe/internal/mcp"
	"scribe/internal/tree"
)

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no
// GUI. Stdout carries the protocol, so logs go to stderr only.
func ServeMCP() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Fatal().Err(err).Msg("create data dir")
	}

	store, err := gateway.Open(cfg.Store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open store")
	}
	defer store.Close()

	emitter := event.Noop{}

	mutator := tree.NewMutator(store, emitter, logger)
	if err := mutator.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("load topic tree")
	}
	defer mutator.Close(context.Background())

	srv := mcpserver.New(mcpserver.Deps{
		Emitter: emitter,
		Logger:  logger,
		Tree:    mutator,
		Store:   store,
	})
	if err := srv.ServeStdio(); err != nil {
		logger.Fatal().Err(err).Msg("mcp server")
	}
}
