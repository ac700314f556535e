package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poiesic/answerit"
	"github.com/poiesic/answerit/mcptool"
	"github.com/poiesic/answerit/retrieval"
	"github.com/poiesic/answerit/server"
	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve the question answering HTTP API",
		Action: serveAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of questions answered concurrently",
			},
		},
	}
}

func serveAction(c *cli.Context) error {
	cfg := appConfig(c)
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}
	if c.IsSet("workers") {
		cfg.Server.Workers = c.Int("workers")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := answerit.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	srv, err := server.New(engine,
		server.WithAddr(cfg.Server.Addr),
		server.WithWorkers(cfg.Server.Workers),
	)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case err := <-serverErr:
		srv.Release()
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:   "mcp",
		Usage:  "Serve the ask_course tool over MCP on stdio",
		Action: mcpAction,
	}
}

func mcpAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := answerit.Open(ctx, appConfig(c))
	if err != nil {
		return err
	}
	defer engine.Close()

	s, err := mcptool.NewServer(engine, version, slog.Default())
	if err != nil {
		return err
	}
	slog.Info("MCP server starting on stdio")
	return mcptool.ServeStdio(ctx, s)
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a single question and print the JSON response",
		ArgsUsage: "QUESTION",
		Action:    askAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "Path to a screenshot whose text is added to the question",
			},
			&cli.IntFlag{
				Name:    "top-k",
				Aliases: []string{"k"},
				Usage:   "Results per corpus",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Print retrieval stages and hits to stderr",
			},
		},
	}
}

func askAction(c *cli.Context) error {
	if c.NArg() == 0 && !c.IsSet("image") {
		return errors.New("a question or --image is required")
	}

	cfg := appConfig(c)
	if c.IsSet("top-k") {
		cfg.Retrieval.TopK = c.Int("top-k")
	}

	q := answerit.Question{Text: c.Args().First()}
	if path := c.String("image"); path != "" {
		image, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		q.Image = image
	}

	engine, err := answerit.Open(c.Context, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	var monitor retrieval.Monitor
	if c.Bool("verbose") {
		monitor = retrieval.NewTraceMonitor(c.App.ErrWriter)
	}

	ans, err := engine.AskWithMonitor(c.Context, q, monitor)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(ans)
}
