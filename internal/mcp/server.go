// Package mcp provides an MCP (Model Context Protocol) server for apishape.
// This allows AI agents to analyze PHP declarations through MCP tools instead
// of CLI commands.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tliron/commonlog"

	"github.com/hargabyte/apishape/internal/analyzer"
	"github.com/hargabyte/apishape/internal/output"
	"github.com/hargabyte/apishape/internal/store"
)

// Server wraps the MCP server with apishape-specific functionality
type Server struct {
	mcpServer    *server.MCPServer
	analyzer     *analyzer.Analyzer
	index        *store.Store
	opts         output.Options
	log          commonlog.Logger
	tools        map[string]bool
	lastActivity time.Time
	timeout      time.Duration
	mu           sync.RWMutex
}

// Config holds server configuration
type Config struct {
	Tools      []string      // Which tools to expose (empty = defaults)
	Timeout    time.Duration // Inactivity timeout (0 = no timeout)
	PublicOnly bool          // Drop protected and private members from results
	Version    string
}

// DefaultTools is the default set of tools to expose
var DefaultTools = []string{"analyze", "parse_comment", "infer_type", "clear_cache"}

// AllTools lists all available tools
var AllTools = []string{"analyze", "parse_comment", "infer_type", "clear_cache", "find_member"}

// ErrNoIndex is returned by index-backed tools when no index is open.
var ErrNoIndex = errors.New("no declaration index: run 'apishape index' first")

// New creates a new MCP server backed by a. idx may be nil, in which case
// find_member reports ErrNoIndex.
func New(a *analyzer.Analyzer, idx *store.Store, cfg Config) (*Server, error) {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	mcpServer := server.NewMCPServer(
		"apishape",
		version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcpServer:    mcpServer,
		analyzer:     a,
		index:        idx,
		opts:         output.Options{PublicOnly: cfg.PublicOnly},
		log:          commonlog.GetLogger("apishape.mcp"),
		tools:        make(map[string]bool),
		lastActivity: time.Now(),
		timeout:      cfg.Timeout,
	}

	toolsToRegister := cfg.Tools
	if len(toolsToRegister) == 0 {
		toolsToRegister = DefaultTools
	}

	for _, toolName := range toolsToRegister {
		if err := s.registerTool(toolName); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", toolName, err)
		}
		s.tools[toolName] = true
	}

	return s, nil
}

// registerTool registers a single tool with the MCP server
func (s *Server) registerTool(name string) error {
	switch name {
	case "analyze":
		return s.registerAnalyzeTool()
	case "parse_comment":
		return s.registerParseCommentTool()
	case "infer_type":
		return s.registerInferTypeTool()
	case "clear_cache":
		return s.registerClearCacheTool()
	case "find_member":
		return s.registerFindMemberTool()
	default:
		return fmt.Errorf("unknown tool: %s", name)
	}
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	if s.timeout > 0 {
		go s.timeoutChecker()
	}

	s.log.Infof("serving %d tools on stdio", len(s.tools))
	return server.ServeStdio(s.mcpServer)
}

// timeoutChecker monitors for inactivity and exits if timeout exceeded
func (s *Server) timeoutChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		elapsed := time.Since(s.lastActivity)
		s.mu.RUnlock()

		if elapsed > s.timeout {
			s.log.Infof("timeout after %v of inactivity", s.timeout)
			os.Exit(0)
		}
	}
}

// updateActivity updates the last activity timestamp
func (s *Server) updateActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// ListTools returns the list of registered tools
func (s *Server) ListTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]string, 0, len(s.tools))
	for t := range s.tools {
		tools = append(tools, t)
	}
	return tools
}

// ToolSchema describes a tool's name, description, and parameters.
type ToolSchema struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Parameters  []ParameterSchema `json:"parameters" yaml:"parameters"`
}

// ParameterSchema describes a single tool parameter.
type ParameterSchema struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required" yaml:"required"`
}

// toolSchemaRegistry holds the schema definitions for all tools.
// These mirror the mcp.NewTool() definitions in the register*Tool() functions.
var toolSchemaRegistry = map[string]ToolSchema{
	"analyze": {
		Name:        "analyze",
		Description: "Analyze a PHP file path or a class name. Returns declarations with merged types.",
		Parameters: []ParameterSchema{
			{Name: "target", Type: "string", Description: "File path or fully qualified class name", Required: true},
		},
	},
	"parse_comment": {
		Name:        "parse_comment",
		Description: "Parse a PHP doc comment into summary, description and typed tags.",
		Parameters: []ParameterSchema{
			{Name: "text", Type: "string", Description: "Doc comment text including /** and */", Required: true},
		},
	},
	"infer_type": {
		Name:        "infer_type",
		Description: "Infer the static type of a PHP expression.",
		Parameters: []ParameterSchema{
			{Name: "expression", Type: "string", Description: "PHP expression, e.g. [1, 2] or strlen($s) > 3", Required: true},
		},
	},
	"clear_cache": {
		Name:        "clear_cache",
		Description: "Drop cached analysis results so edited files are re-read.",
	},
	"find_member": {
		Name:        "find_member",
		Description: "Search the declaration index for methods, properties and constants by name.",
		Parameters: []ParameterSchema{
			{Name: "pattern", Type: "string", Description: "Member name; * matches any characters", Required: true},
			{Name: "limit", Type: "number", Description: "Maximum results (default: 20)"},
		},
	},
}

// GetToolSchemas returns schemas for all registered tools.
func (s *Server) GetToolSchemas() []ToolSchema {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schemas := make([]ToolSchema, 0, len(s.tools))
	for name := range s.tools {
		if schema, ok := toolSchemaRegistry[name]; ok {
			schemas = append(schemas, schema)
		}
	}
	return schemas
}

// CallTool dispatches a tool call by name with the given arguments.
// Returns the JSON result string or an error.
func (s *Server) CallTool(name string, args map[string]interface{}) (string, error) {
	s.mu.RLock()
	registered := s.tools[name]
	s.mu.RUnlock()

	if !registered {
		return "", fmt.Errorf("unknown tool: %s", name)
	}

	switch name {
	case "analyze":
		target, _ := args["target"].(string)
		if target == "" {
			return "", fmt.Errorf("target parameter is required")
		}
		return s.executeAnalyze(target)

	case "parse_comment":
		text, _ := args["text"].(string)
		if text == "" {
			return "", fmt.Errorf("text parameter is required")
		}
		return s.executeParseComment(text)

	case "infer_type":
		expr, _ := args["expression"].(string)
		if expr == "" {
			return "", fmt.Errorf("expression parameter is required")
		}
		return s.executeInferType(expr)

	case "clear_cache":
		return s.executeClearCache()

	case "find_member":
		pattern, _ := args["pattern"].(string)
		if pattern == "" {
			return "", fmt.Errorf("pattern parameter is required")
		}
		limit := 20
		if l, ok := args["limit"].(float64); ok {
			limit = int(l)
		}
		return s.executeFindMember(pattern, limit)

	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// registerAnalyzeTool registers the analyze tool
func (s *Server) registerAnalyzeTool() error {
	tool := mcp.NewTool("analyze",
		mcp.WithDescription(toolSchemaRegistry["analyze"].Description),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("File path or fully qualified class name"),
		),
	)

	s.mcpServer.AddTool(tool, s.handle("analyze"))
	return nil
}

// registerParseCommentTool registers the parse_comment tool
func (s *Server) registerParseCommentTool() error {
	tool := mcp.NewTool("parse_comment",
		mcp.WithDescription(toolSchemaRegistry["parse_comment"].Description),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Doc comment text including /** and */"),
		),
	)

	s.mcpServer.AddTool(tool, s.handle("parse_comment"))
	return nil
}

// registerInferTypeTool registers the infer_type tool
func (s *Server) registerInferTypeTool() error {
	tool := mcp.NewTool("infer_type",
		mcp.WithDescription(toolSchemaRegistry["infer_type"].Description),
		mcp.WithString("expression",
			mcp.Required(),
			mcp.Description("PHP expression, e.g. [1, 2] or strlen($s) > 3"),
		),
	)

	s.mcpServer.AddTool(tool, s.handle("infer_type"))
	return nil
}

// registerClearCacheTool registers the clear_cache tool
func (s *Server) registerClearCacheTool() error {
	tool := mcp.NewTool("clear_cache",
		mcp.WithDescription(toolSchemaRegistry["clear_cache"].Description),
	)

	s.mcpServer.AddTool(tool, s.handle("clear_cache"))
	return nil
}

// registerFindMemberTool registers the find_member tool
func (s *Server) registerFindMemberTool() error {
	tool := mcp.NewTool("find_member",
		mcp.WithDescription(toolSchemaRegistry["find_member"].Description),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Member name; * matches any characters"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default: 20)"),
		),
	)

	s.mcpServer.AddTool(tool, s.handle("find_member"))
	return nil
}

// handle adapts CallTool to an MCP handler. Tool failures are reported as
// error results, not protocol errors.
func (s *Server) handle(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.updateActivity()

		result, err := s.CallTool(name, req.GetArguments())
		if err != nil {
			s.log.Warningf("%s: %s", name, err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result), nil
	}
}

func (s *Server) executeAnalyze(target string) (string, error) {
	result, err := s.analyzer.Analyze(target)
	if err != nil {
		return "", err
	}

	list := output.NewListOutput()
	if result.Class != nil {
		list.AddClass(result.Class, s.opts)
	} else {
		list.AddFile(result.File, s.opts)
	}
	return toJSON(list)
}

func (s *Server) executeParseComment(text string) (string, error) {
	return toJSON(s.analyzer.ParseComment(text))
}

func (s *Server) executeInferType(expr string) (string, error) {
	typ, errs, err := s.analyzer.InferExpression(expr)
	if err != nil {
		return "", err
	}

	out := map[string]interface{}{
		"expression": expr,
		"type":       typ.String(),
	}
	if len(errs) > 0 {
		messages := make([]string, len(errs))
		for i, e := range errs {
			messages[i] = e.Error()
		}
		out["errors"] = messages
	}
	return toJSON(out)
}

func (s *Server) executeClearCache() (string, error) {
	s.analyzer.ClearCache()
	return toJSON(map[string]interface{}{"cleared": true})
}

func (s *Server) executeFindMember(pattern string, limit int) (string, error) {
	if s.index == nil {
		return "", ErrNoIndex
	}

	members, err := s.index.FindMembers(pattern)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	total := len(members)
	if limit > 0 && len(members) > limit {
		members = members[:limit]
	}

	return toJSON(map[string]interface{}{
		"pattern": pattern,
		"count":   total,
		"results": members,
	})
}

// Helper functions

func toJSON(v interface{}) (string, error) {
	return output.NewJSONFormatter().Format(v)
}
