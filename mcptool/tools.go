// Package mcptool exposes an answerit engine as a Model Context Protocol
// server with a single ask_course tool.
package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/poiesic/answerit"
	"github.com/poiesic/answerit/core"
)

// ErrAskerRequired is returned when no question answerer is supplied.
var ErrAskerRequired = errors.New("asker required")

// Asker answers questions. *answerit.Engine implements it.
type Asker interface {
	Ask(ctx context.Context, q answerit.Question) (*core.Answer, error)
}

// Handlers holds the tool handlers.
type Handlers struct {
	asker  Asker
	logger *slog.Logger
}

// NewHandlers creates tool handlers backed by asker.
func NewHandlers(asker Asker, logger *slog.Logger) (*Handlers, error) {
	if asker == nil {
		return nil, ErrAskerRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{asker: asker, logger: logger.With("component", "mcp")}, nil
}

func askCourseTool() mcp.Tool {
	return mcp.NewTool("ask_course",
		mcp.WithDescription("Answer a question about the course using course material and Discourse posts. Returns JSON with an answer and source links."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
		mcp.WithString("image",
			mcp.Description("Optional base64 encoded screenshot; its text is appended to the question"),
		),
	)
}

// AskCourse handles the ask_course tool.
func (h *Handlers) AskCourse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}

	q := answerit.Question{Text: question}
	if encoded := request.GetString("image", ""); encoded != "" {
		image, err := answerit.DecodeImage(encoded)
		if err != nil {
			h.logger.Warn("ignoring undecodable image", "err", err)
		} else {
			q.Image = image
		}
	}

	ans, err := h.asker.Ask(ctx, q)
	if err != nil {
		if errors.Is(err, core.ErrEmptyQuery) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		h.logger.Error("failed to answer question", "err", err)
		return mcp.NewToolResultError("failed to answer question"), nil
	}

	data, err := json.Marshal(ans)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answer: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// NewServer creates an MCP server with the ask_course tool registered.
func NewServer(asker Asker, version string, logger *slog.Logger) (*mcpserver.MCPServer, error) {
	handlers, err := NewHandlers(asker, logger)
	if err != nil {
		return nil, err
	}

	s := mcpserver.NewMCPServer(
		"answerit",
		version,
		mcpserver.WithToolCapabilities(true),
	)
	s.AddTool(askCourseTool(), handlers.AskCourse)
	return s, nil
}

// ServeStdio serves the MCP server on stdin/stdout until ctx is cancelled
// or the client disconnects.
func ServeStdio(ctx context.Context, s *mcpserver.MCPServer) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- mcpserver.ServeStdio(s)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
