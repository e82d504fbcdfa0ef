// Package mcp implements a Model Context Protocol server exposing alias
// import resolution and rewriting as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/relimport/pkg/config"
	"github.com/Sumatoshi-tech/relimport/pkg/observability"
	"github.com/Sumatoshi-tech/relimport/pkg/resolve"
	"github.com/Sumatoshi-tech/relimport/pkg/version"
)

const (
	serverName = "relimport"

	// toolCount is the expected number of registered tools.
	toolCount = 2

	mcpSpanPrefix  = "mcp."
	traceIDMetaKey = "trace_id"
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Config is the base configuration tool calls start from. Nil uses defaults.
	Config *config.Config

	// WorkDir anchors relative roots and file paths. Empty means the process
	// working directory.
	WorkDir string

	// Logger is an optional structured logger.
	Logger *slog.Logger

	// Metrics is an optional recorder for per-tool operations.
	Metrics *observability.RunMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans.
	Tracer trace.Tracer
}

// Server wraps the MCP SDK server with the relimport tool registrations.
type Server struct {
	inner    *mcpsdk.Server
	cfg      config.Config
	workDir  string
	resolver *resolve.Resolver
	logger   *slog.Logger
	metrics  *observability.RunMetrics
	tracer   trace.Tracer

	// fixMu serializes fix runs; two runs over one tree would race on writes.
	fixMu sync.Mutex

	mu    sync.RWMutex
	tools []string
}

// NewServer creates an MCP server with all tools registered.
func NewServer(deps ServerDeps) (*Server, error) {
	cfg := config.Default()
	if deps.Config != nil {
		cfg = *deps.Config
	}

	resolveOpts := resolve.OptionsFromConfig(&cfg)
	resolveOpts.WorkDir = deps.WorkDir

	resolver, err := resolve.New(resolveOpts)
	if err != nil {
		return nil, fmt.Errorf("mcp server: %w", err)
	}

	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		opts,
	)

	srv := &Server{
		inner:    inner,
		cfg:      cfg,
		workDir:  deps.WorkDir,
		resolver: resolver,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		tracer:   deps.Tracer,
		tools:    make([]string, 0, toolCount),
	}

	srv.registerTools()

	return srv, nil
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := slices.Clone(s.tools)
	slices.Sort(names)

	return names
}

// Run serves on stdio until the context is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on the given transport until the context is
// canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameResolve,
		Description: resolveToolDescription,
	}, withMetrics(s.metrics, ToolNameResolve, withTracing(s.tracer, ToolNameResolve, s.handleResolve)))

	s.trackTool(ToolNameResolve)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameFix,
		Description: fixToolDescription,
	}, withMetrics(s.metrics, ToolNameFix, withTracing(s.tracer, ToolNameFix, s.handleFix)))

	s.trackTool(ToolNameFix)
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// withTracing wraps a tool handler with one span per call and appends the
// trace_id to the response when the span is sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			result.Content = append(result.Content,
				&mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())})
		}

		return result, output, err
	}
}

// withMetrics wraps a tool handler to record its outcome and duration.
func withMetrics[Input any](
	metrics *observability.RunMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordOperation(ctx, mcpSpanPrefix+toolName, status, time.Since(start))

		return result, output, err
	}
}

const (
	resolveToolDescription = "Resolve one alias import (e.g. @/lib/auth) to the relative import path " +
		"seen from a given source file. Does not touch the file system."

	fixToolDescription = "Rewrite alias imports to relative imports in every .ts/.js/.tsx file " +
		"under a source root. Set dry_run to preview the changes without writing."
)
