package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/mailsort/internal/brand"
	"github.com/hpungsan/mailsort/internal/email"
	"github.com/hpungsan/mailsort/internal/errors"
	"github.com/hpungsan/mailsort/internal/session"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	machine *session.Machine
	brands  *brand.Manager
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(machine *session.Machine, brands *brand.Manager) *Handlers {
	return &Handlers{machine: machine, brands: brands}
}

// Request types for each tool

// ClassifyRequest represents the arguments for email_classify.
type ClassifyRequest struct {
	Text     string `json:"text,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Dropped  bool   `json:"dropped,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

// LanguageRequest represents the arguments for reply_language.
type LanguageRequest struct {
	Lang string `json:"lang"`
}

// RenameRequest represents the arguments for brand_rename.
type RenameRequest struct {
	Name string `json:"name"`
}

// BrandOutput is returned by the brand tools.
type BrandOutput struct {
	Name       string `json:"name"`
	Logo       string `json:"logo"`
	CustomLogo bool   `json:"custom_logo"`
	Title      string `json:"title"`
}

// Handler implementations

// HandleClassify handles the email_classify tool call.
func (h *Handlers) HandleClassify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClassifyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Text != "" && input.FilePath != "" {
		return errorResult(errors.NewInvalidRequest("provide text or file_path, not both")), nil
	}

	var emailReq email.Request
	if input.FilePath != "" {
		emailReq, err = email.ReadFileRequest(input.FilePath, input.Dropped)
		if err != nil {
			return errorResult(err), nil
		}
	} else {
		emailReq = email.NewTextRequest(input.Text, "")
	}

	if input.Lang != "" {
		if _, err := h.machine.SetLanguage(ctx, input.Lang); err != nil {
			return errorResult(err), nil
		}
	}

	snap, err := h.machine.Submit(ctx, emailReq)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(snap)
}

// HandleCurrent handles the email_current tool call.
func (h *Handlers) HandleCurrent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.machine.Snapshot())
}

// HandleClear handles the email_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.machine.Clear())
}

// HandleLanguage handles the reply_language tool call.
func (h *Handlers) HandleLanguage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LanguageRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	snap, err := h.machine.SetLanguage(ctx, input.Lang)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(snap)
}

// HandleBrandShow handles the brand_show tool call.
func (h *Handlers) HandleBrandShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(brandOutput(h.brands.Current()))
}

// HandleBrandRename handles the brand_rename tool call.
func (h *Handlers) HandleBrandRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RenameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	s, err := h.brands.Rename(ctx, input.Name)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(brandOutput(s))
}

// brandOutput hides uploaded logo bytes, which can be megabytes of base64.
func brandOutput(s brand.State) BrandOutput {
	out := BrandOutput{Name: s.Name, Logo: s.Logo, Title: s.Title()}
	if strings.HasPrefix(s.Logo, "data:") {
		out.CustomLogo = true
		if i := strings.Index(s.Logo, ","); i > 0 {
			out.Logo = s.Logo[:i+1] + "..."
		}
	}
	return out
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// INTERNAL errors expose neither message nor details.
func errorResult(err error) *mcp.CallToolResult {
	appErr := errors.As(err)

	errorObj := map[string]any{
		"code":    appErr.Code,
		"message": appErr.Message,
		"status":  appErr.Status,
	}
	if appErr.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if appErr.Details != nil {
		errorObj["details"] = appErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
