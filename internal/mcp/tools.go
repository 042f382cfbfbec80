package mcp

import "github.com/mark3labs/mcp-go/mcp"

var classifyToolDef = mcp.NewTool("email_classify",
	mcp.WithDescription("Classify an email as Productive or Unproductive and draft replies in Portuguese and English. "+
		"Provide either text (at least 10 characters) or file_path (.pdf or .txt). The result replaces the current one."),
	mcp.WithString("text", mcp.Description("Pasted email text")),
	mcp.WithString("file_path", mcp.Description("Path to an email file to attach")),
	mcp.WithBoolean("dropped", mcp.Description("Treat file_path as drag-and-drop input (only .pdf and .txt accepted)")),
	mcp.WithString("lang", mcp.Description("Preferred reply language for this session"), mcp.Enum("pt", "en")),
)

var currentToolDef = mcp.NewTool("email_current",
	mcp.WithDescription("Show the current classification state, result and visible reply."),
)

var clearToolDef = mcp.NewTool("email_clear",
	mcp.WithDescription("Clear the current result, error and session language choice. Cancels a submission in progress."),
)

var languageToolDef = mcp.NewTool("reply_language",
	mcp.WithDescription("Switch the visible reply draft to pt or en. If that draft is empty, a notice is returned and the display keeps a language that has text."),
	mcp.WithString("lang", mcp.Required(), mcp.Description("Reply language"), mcp.Enum("pt", "en")),
)

var brandShowToolDef = mcp.NewTool("brand_show",
	mcp.WithDescription("Show the company name, logo source and page title in effect."),
)

var brandRenameToolDef = mcp.NewTool("brand_rename",
	mcp.WithDescription("Set and save the company name shown by mailsort."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Company name")),
)
