package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/duynguyendang/relpat/pkg/analysis"
	"github.com/duynguyendang/relpat/pkg/service"
)

const (
	formatJSON = "json"
	formatTSV  = "tsv"
)

// MCPServer exposes the analysis service as MCP tools.
type MCPServer struct {
	analysis *service.AnalysisService
}

// NewServer builds the MCP server with all resources and tools registered.
func NewServer(svc *service.AnalysisService) *server.MCPServer {
	s := server.NewMCPServer(
		"relpat",
		"0.1.0",
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
	)
	ms := &MCPServer{analysis: svc}

	s.AddResource(
		mcp.NewResource(
			"relpat://datasets",
			"Datasets",
			mcp.WithResourceDescription("Datasets available for analysis"),
			mcp.WithMIMEType("application/json"),
		),
		ms.handleDatasetsResource,
	)

	s.AddTool(
		mcp.NewTool(
			"list_datasets",
			mcp.WithDescription("List the knowledge graph datasets available for analysis."),
		),
		ms.handleListDatasets,
	)

	s.AddTool(
		mcp.NewTool(
			"classify_relations",
			mcp.WithDescription("Categorize the relations of a dataset by logical pattern (symmetry, anti-symmetry, inversion, composition)."),
			mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset ID")),
			mcp.WithNumber("min_support", mcp.Description("Minimum support (default 0)")),
			mcp.WithNumber("min_confidence", mcp.Description("Minimum confidence (default 0.95)")),
			mcp.WithBoolean("drop_confidence", mcp.Description("Drop support and confidence from the result (default true)")),
			mcp.WithBoolean("labels", mcp.Description("Add relation labels")),
			mcp.WithBoolean("force", mcp.Description("Ignore cached results")),
			mcp.WithString("parts", mcp.Description("Comma-separated dataset parts (default: all)")),
			mcp.WithString("format", mcp.Description("Result format: json or tsv (default json)")),
		),
		ms.handleClassifyRelations,
	)

	s.AddTool(
		mcp.NewTool(
			"relation_cardinality_types",
			mcp.WithDescription("Classify relations as one-to-one, one-to-many, many-to-one or many-to-many."),
			mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset ID")),
			mcp.WithString("parts", mcp.Description("Comma-separated dataset parts (default: all)")),
			mcp.WithString("format", mcp.Description("Result format: json or tsv (default json)")),
		),
		ms.handleCardinalityTypes,
	)

	s.AddTool(
		mcp.NewTool(
			"relation_functionality",
			mcp.WithDescription("Compute functionality and inverse functionality per relation."),
			mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset ID")),
			mcp.WithString("parts", mcp.Description("Comma-separated dataset parts (default: all)")),
			mcp.WithString("format", mcp.Description("Result format: json or tsv (default json)")),
		),
		ms.handleFunctionality,
	)

	s.AddTool(
		mcp.NewTool(
			"relation_counts",
			mcp.WithDescription("Count triples per relation in each dataset part."),
			mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset ID")),
			mcp.WithString("format", mcp.Description("Result format: json or tsv (default json)")),
		),
		ms.handleRelationCounts,
	)

	return s
}

// Run starts the MCP server on Stdio.
func Run(ctx context.Context, svc *service.AnalysisService) error {
	s := NewServer(svc)
	slog.Info("Starting MCP server on Stdio")
	return server.ServeStdio(s)
}

// --- Resource Handlers ---

func (ms *MCPServer) handleDatasetsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	infos, err := ms.analysis.ListDatasets()
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	jsonBytes, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal datasets: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

// --- Tool Handlers ---

func (ms *MCPServer) handleListDatasets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos, err := ms.analysis.ListDatasets()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(infos)
}

func (ms *MCPServer) handleClassifyRelations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, ok := args["dataset"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("dataset argument required"), nil
	}

	opts := analysis.DefaultClassifyOptions()
	if v, ok := args["min_support"].(float64); ok {
		opts.MinSupport = int(v)
	}
	if v, ok := args["min_confidence"].(float64); ok {
		opts.MinConfidence = v
	}
	if v, ok := args["drop_confidence"].(bool); ok {
		opts.DropConfidence = v
	}
	if v, ok := args["labels"].(bool); ok {
		opts.AddLabels = v
	}
	if v, ok := args["force"].(bool); ok {
		opts.Force = v
	}
	opts.Parts = splitParts(args)

	table, err := ms.analysis.ClassifyRelations(ctx, id, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("classification failed: %v", err)), nil
	}
	if format(args) == formatTSV {
		return tsvResult(table.WriteTSV)
	}
	return jsonResult(table)
}

func (ms *MCPServer) handleCardinalityTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, ok := args["dataset"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("dataset argument required"), nil
	}
	rows, err := ms.analysis.CardinalityTypes(ctx, id, splitParts(args), true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cardinality failed: %v", err)), nil
	}
	if format(args) == formatTSV {
		return tsvResult(func(w io.Writer) error { return analysis.WriteCardinalityTSV(w, rows) })
	}
	return jsonResult(rows)
}

func (ms *MCPServer) handleFunctionality(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, ok := args["dataset"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("dataset argument required"), nil
	}
	rows, err := ms.analysis.Functionality(ctx, id, splitParts(args), true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("functionality failed: %v", err)), nil
	}
	if format(args) == formatTSV {
		return tsvResult(func(w io.Writer) error { return analysis.WriteFunctionalityTSV(w, rows) })
	}
	return jsonResult(rows)
}

func (ms *MCPServer) handleRelationCounts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, ok := args["dataset"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("dataset argument required"), nil
	}
	rows, parts, err := ms.analysis.RelationCounts(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("counting failed: %v", err)), nil
	}
	if format(args) == formatTSV {
		return tsvResult(func(w io.Writer) error { return analysis.WriteRelationCountsTSV(w, parts, rows) })
	}
	return jsonResult(map[string]any{"parts": parts, "rows": rows})
}

func splitParts(args map[string]any) []string {
	s, _ := args["parts"].(string)
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func format(args map[string]any) string {
	if f, ok := args["format"].(string); ok && strings.EqualFold(f, formatTSV) {
		return formatTSV
	}
	return formatJSON
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func tsvResult(write func(io.Writer) error) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to write result: %v", err)), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}
