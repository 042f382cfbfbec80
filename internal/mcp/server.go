package mcp

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/mailsort/internal/brand"
	"github.com/hpungsan/mailsort/internal/config"
	"github.com/hpungsan/mailsort/internal/session"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"email_classify": {
		def:     classifyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClassify },
	},
	"email_current": {
		def:     currentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCurrent },
	},
	"email_clear": {
		def:     clearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClear },
	},
	"reply_language": {
		def:     languageToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLanguage },
	},
	"brand_show": {
		def:     brandShowToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBrandShow },
	},
	"brand_rename": {
		def:     brandRenameToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBrandRename },
	},
}

// AllToolNames returns a sorted list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with mailsort tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
// The server drives a single machine for its whole lifetime.
func NewServer(machine *session.Machine, brands *brand.Manager, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"mailsort",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(machine, brands)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(machine *session.Machine, brands *brand.Manager, cfg *config.Config, version string) error {
	s := NewServer(machine, brands, cfg, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
