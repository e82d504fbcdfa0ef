package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/relimport/pkg/fix"
)

// Tool name constants.
const (
	ToolNameResolve = "relimport_resolve"
	ToolNameFix     = "relimport_fix"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyFile indicates the file parameter is empty.
	ErrEmptyFile = errors.New("file parameter is required and must not be empty")
	// ErrEmptyAlias indicates the alias parameter is empty.
	ErrEmptyAlias = errors.New("alias parameter is required and must not be empty")
)

// ResolveInput is the input schema for the relimport_resolve tool.
type ResolveInput struct {
	File  string `json:"file"  jsonschema:"path of the file that contains the import, relative to the working directory or absolute"`
	Alias string `json:"alias" jsonschema:"alias import reference, e.g. @/lib/auth"`
}

// ResolveOutput is the result of the relimport_resolve tool.
type ResolveOutput struct {
	Alias  string `json:"alias"`
	Target string `json:"target"`
	Import string `json:"import"`
}

// FixInput is the input schema for the relimport_fix tool.
type FixInput struct {
	Root   string `json:"root,omitempty"    jsonschema:"source root to rewrite (default: the configured root, src)"`
	DryRun bool   `json:"dry_run,omitempty" jsonschema:"compute the rewrites without writing any file"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleResolve(
	_ context.Context, _ *mcpsdk.CallToolRequest, input ResolveInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.File == "" {
		return errorResult(ErrEmptyFile)
	}

	if input.Alias == "" {
		return errorResult(ErrEmptyAlias)
	}

	result := s.resolver.Resolve(input.File, input.Alias)
	if !result.OK() {
		return errorResult(fmt.Errorf("failed to resolve %s in %s: %w", input.Alias, input.File, result.Err))
	}

	return jsonResult(ResolveOutput{Alias: result.Alias, Target: result.Target, Import: result.Import})
}

func (s *Server) handleFix(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input FixInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	cfg := s.cfg
	if input.Root != "" {
		cfg.Root = input.Root
	}

	err := cfg.Validate()
	if err != nil {
		return errorResult(err)
	}

	svc, err := fix.NewService(&cfg, fix.Options{DryRun: input.DryRun, WorkDir: s.workDir}, fix.Deps{
		Logger:  s.logger,
		Tracer:  s.tracer,
		Metrics: s.metrics,
	})
	if err != nil {
		return errorResult(err)
	}

	s.fixMu.Lock()
	defer s.fixMu.Unlock()

	summary, err := svc.Run(ctx)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(summary)
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
