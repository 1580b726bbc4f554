// Package app provides the study server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/abhyasam/cmd/abhyasam/app/options"
	"github.com/kart-io/abhyasam/pkg/app"
)

const (
	// Name is the name of the application.
	Name = "abhyasam"

	// commandDesc is the description of the command.
	commandDesc = `Abhyasam study service

A retrieval-augmented study assistant over a workspace-notes corpus.

This server provides:
  - Incremental sync of workspace pages into a Milvus vector index
  - Question answering grounded in the synced notes
  - Interactive quizzes with LLM grading
  - Batch multiple-choice question generation`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal forces immediate exit.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
