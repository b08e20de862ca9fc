package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/awarebot/internal/analyze"
	"github.com/kalambet/awarebot/internal/errlog"
	"github.com/kalambet/awarebot/internal/knowledge"
	"github.com/kalambet/awarebot/internal/session"
)

// MCPResponder abstracts the chat orchestrator for the MCP layer.
type MCPResponder interface {
	Respond(ctx context.Context, input string) session.Turn
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Session   MCPResponder
	Log       *errlog.Log
	Knowledge *knowledge.Base
}

// NewMCPServer creates an MCP server with all awarebot tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"awarebot",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("awarebot — self-aware chatbot that logs its failures and learns corrected responses."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Send one message to the chatbot and get its reply. Failed replies are logged with a log index for feedback."),
			mcp.WithString("input", mcp.Description("The user message"), mcp.Required()),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("learn_response",
			mcp.WithDescription("Teach the chatbot a corrected response for an input. Subsequent matching inputs are answered from the knowledge base without calling the model."),
			mcp.WithString("input", mcp.Description("The user input to override"), mcp.Required()),
			mcp.WithString("response", mcp.Description("The corrected response to serve"), mcp.Required()),
		),
		mcpLearnResponse(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_failures",
			mcp.WithDescription("Analyze the failure log: per-category counts, recurring inputs, and a learning candidate if one qualifies."),
		),
		mcpAnalyzeFailures(deps),
	)

	s.AddTool(
		mcp.NewTool("attach_feedback",
			mcp.WithDescription("Attach free-form user feedback to a logged failure by its log index, or mark the prompt as skipped."),
			mcp.WithNumber("index", mcp.Description("Log index of the failure record"), mcp.Required()),
			mcp.WithString("text", mcp.Description("Feedback text; leave empty with skip=true to decline")),
			mcp.WithBoolean("skip", mcp.Description("Mark feedback as explicitly skipped")),
		),
		mcpAttachFeedback(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"awarebot://log/recent",
			"Recent Failures",
			mcp.WithResourceDescription("Last 10 logged failures (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecentFailures(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"awarebot://knowledge",
			"Knowledge Base",
			mcp.WithResourceDescription("All learned input/response overrides as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceKnowledge(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := req.RequireString("input")
		if err != nil {
			return mcpError("input is required"), nil
		}

		turn := deps.Session.Respond(ctx, input)

		result := map[string]any{
			"reply": turn.Text,
		}
		if turn.Failed() {
			result["error_type"] = string(turn.Category)
		}
		if turn.LogIndex != session.NoLogIndex {
			result["log_index"] = turn.LogIndex
		}

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpLearnResponse(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := req.RequireString("input")
		if err != nil {
			return mcpError("input is required"), nil
		}
		response, err := req.RequireString("response")
		if err != nil {
			return mcpError("response is required"), nil
		}

		if err := deps.Knowledge.Learn(input, response); err != nil {
			return mcpError(fmt.Sprintf("failed to learn response: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Learned response for %q", input)), nil
	}
}

func mcpAnalyzeFailures(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report := analyze.Run(deps.Log.Records())

		b, err := json.Marshal(report)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal report: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAttachFeedback(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		index, err := req.RequireInt("index")
		if err != nil {
			return mcpError("index is required"), nil
		}

		skip := req.GetBool("skip", false)
		text := req.GetString("text", "")
		if !skip && text == "" {
			return mcpError("text is required unless skip is true"), nil
		}

		if skip {
			err = deps.Log.Skip(index)
		} else {
			err = deps.Log.AttachFeedback(index, text)
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to attach feedback: %v", err)), nil
		}

		if skip {
			return mcpText(fmt.Sprintf("Marked record %d as skipped", index)), nil
		}
		return mcpText(fmt.Sprintf("Feedback recorded for record %d", index)), nil
	}
}

func mcpResourceRecentFailures(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		records := deps.Log.Records()

		const maxRecent = 10
		start := 0
		if len(records) > maxRecent {
			start = len(records) - maxRecent
		}

		type recordSummary struct {
			LogIndex  int    `json:"log_index"`
			Timestamp string `json:"timestamp"`
			UserInput string `json:"user_input"`
			ErrorType string `json:"error_type"`
			Feedback  string `json:"feedback,omitempty"`
		}

		summaries := make([]recordSummary, 0, len(records)-start)
		for i := start; i < len(records); i++ {
			r := records[i]
			summaries = append(summaries, recordSummary{
				LogIndex:  i,
				Timestamp: r.Timestamp.Format(time.RFC3339),
				UserInput: truncate(r.UserInput, 200),
				ErrorType: string(r.ErrorType),
				Feedback:  r.Feedback,
			})
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal failures: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceKnowledge(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Knowledge.Entries())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal knowledge: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
