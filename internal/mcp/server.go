// Package mcp exposes the mapping engine over the Model Context Protocol so
// editor agents can resolve and navigate mapper pairings through stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Greenplumwine/mbnav/internal/debug"
	"github.com/Greenplumwine/mbnav/internal/engine"
	"github.com/Greenplumwine/mbnav/internal/version"
)

// Server wraps an engine behind MCP tools.
type Server struct {
	server *mcp.Server
	engine *engine.Engine
}

// NewServer creates the MCP server and registers the tool set.
func NewServer(eng *engine.Engine) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "mbnav-mcp-server",
			Version: version.Version,
		}, nil),
		engine: eng,
	}
	s.registerTools()
	return s
}

// Run serves requests over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	debug.LogMCP("serving on stdio\n")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	pathProp := func(desc string) *jsonschema.Schema {
		return &jsonschema.Schema{Type: "string", Description: desc}
	}

	s.server.AddTool(&mcp.Tool{
		Name:        "jump_to_statement",
		Description: "Resolve the statement XML file for a mapper interface and return the target path and position. Optionally land on the statement whose id matches a method name.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"interface_path": pathProp("Absolute path of the mapper interface .java file"),
				"method":         pathProp("Method name to position on (optional)"),
			},
			Required: []string{"interface_path"},
		},
	}, s.handleJumpToStatement)

	s.server.AddTool(&mcp.Tool{
		Name:        "jump_to_interface",
		Description: "Resolve the mapper interface for a statement XML file and return the target path and position. Optionally land on the method matching a statement id.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"statement_path": pathProp("Absolute path of the statement .xml file"),
				"statement_id":   pathProp("Statement id to position on (optional)"),
			},
			Required: []string{"statement_path"},
		},
	}, s.handleJumpToInterface)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_mappings",
		Description: "List all cached interface-to-statement pairings. Run refresh_mappings first for a cold cache.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleListMappings)

	s.server.AddTool(&mcp.Tool{
		Name:        "refresh_mappings",
		Description: "Rebuild the mapping cache from a full workspace scan and report how many pairings were found.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleRefreshMappings)

	s.server.AddTool(&mcp.Tool{
		Name:        "extract_parameters",
		Description: "List the parameters of a mapper method, with object parameters expanded into field names where the type's source is available.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"interface_path": pathProp("Absolute path of the mapper interface .java file"),
				"method":         pathProp("Method name to inspect"),
			},
			Required: []string{"interface_path", "method"},
		},
	}, s.handleExtractParameters)

	s.server.AddTool(&mcp.Tool{
		Name:        "statement_namespace",
		Description: "Read the mapper namespace and statement ids declared in a statement XML file.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"statement_path": pathProp("Absolute path of the statement .xml file"),
			},
			Required: []string{"statement_path"},
		},
	}, s.handleStatementNamespace)

	s.server.AddTool(&mcp.Tool{
		Name:        "info",
		Description: "Server version and tool overview.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleInfo)
}

type jumpToStatementParams struct {
	InterfacePath string `json:"interface_path"`
	Method        string `json:"method"`
}

func (s *Server) handleJumpToStatement(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params jumpToStatementParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse(fmt.Errorf("invalid arguments: %v", err))
	}
	if params.InterfacePath == "" {
		return createErrorResponse(fmt.Errorf("interface_path is required"))
	}

	res, err := s.engine.JumpToStatementFile(ctx, params.InterfacePath, params.Method)
	if err != nil {
		return createErrorResponse(err)
	}
	return createJSONResponse(res)
}

type jumpToInterfaceParams struct {
	StatementPath string `json:"statement_path"`
	StatementID   string `json:"statement_id"`
}

func (s *Server) handleJumpToInterface(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params jumpToInterfaceParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse(fmt.Errorf("invalid arguments: %v", err))
	}
	if params.StatementPath == "" {
		return createErrorResponse(fmt.Errorf("statement_path is required"))
	}

	res, err := s.engine.JumpToInterfaceFile(ctx, params.StatementPath, params.StatementID)
	if err != nil {
		return createErrorResponse(err)
	}
	return createJSONResponse(res)
}

type mappingsResponse struct {
	Count    int               `json:"count"`
	Mappings map[string]string `json:"mappings"`
}

func (s *Server) handleListMappings(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mappings := s.engine.Mappings()
	return createJSONResponse(mappingsResponse{Count: len(mappings), Mappings: mappings})
}

type refreshResponse struct {
	Count int `json:"count"`
}

func (s *Server) handleRefreshMappings(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.engine.RefreshAllMappings(ctx)
	if err != nil {
		return createErrorResponse(err)
	}
	return createJSONResponse(refreshResponse{Count: n})
}

type extractParametersParams struct {
	InterfacePath string `json:"interface_path"`
	Method        string `json:"method"`
}

func (s *Server) handleExtractParameters(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params extractParametersParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse(fmt.Errorf("invalid arguments: %v", err))
	}
	if params.InterfacePath == "" || params.Method == "" {
		return createErrorResponse(fmt.Errorf("interface_path and method are required"))
	}

	out, err := s.engine.ExtractParameters(ctx, params.InterfacePath, params.Method)
	if err != nil {
		return createErrorResponse(err)
	}
	return createJSONResponse(out)
}

type statementNamespaceParams struct {
	StatementPath string `json:"statement_path"`
}

type namespaceResponse struct {
	Namespace  string   `json:"namespace"`
	Statements []string `json:"statements"`
}

func (s *Server) handleStatementNamespace(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params statementNamespaceParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse(fmt.Errorf("invalid arguments: %v", err))
	}
	if params.StatementPath == "" {
		return createErrorResponse(fmt.Errorf("statement_path is required"))
	}

	ns, err := s.engine.ParseStatementNamespace(params.StatementPath)
	if err != nil {
		return createErrorResponse(err)
	}
	ids, err := s.engine.StatementIDs(params.StatementPath)
	if err != nil {
		return createErrorResponse(err)
	}
	return createJSONResponse(namespaceResponse{Namespace: ns, Statements: ids})
}

type infoResponse struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Tools   []string `json:"tools"`
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return createJSONResponse(infoResponse{
		Name:    "mbnav-mcp-server",
		Version: version.FullInfo(),
		Tools: []string{
			"jump_to_statement",
			"jump_to_interface",
			"list_mappings",
			"refresh_mappings",
			"extract_parameters",
			"statement_namespace",
			"info",
		},
	})
}
