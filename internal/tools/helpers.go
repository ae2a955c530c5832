// Package tools provides shared helpers for MCP tool handlers.
package tools

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jamesprial/supercap-mcp/internal/safety"
	"github.com/mark3labs/mcp-go/mcp"
)

// JSONResult marshals v to indented JSON and returns it as tool output.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrorResult(fmt.Sprintf("marshal result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// ErrorResult returns tool output flagged as an error.
func ErrorResult(msg string) *mcp.CallToolResult {
	result := mcp.NewToolResultText(fmt.Sprintf("error: %s", msg))
	result.IsError = true
	return result
}

// LogAudit records a tool invocation. A nil audit logger is ignored.
func LogAudit(audit *safety.AuditLogger, toolName string, params map[string]any, result string, start time.Time) {
	if audit == nil {
		return
	}
	_ = audit.Log(safety.AuditEntry{
		Timestamp: start,
		Tool:      toolName,
		Params:    params,
		Result:    result,
		Duration:  time.Since(start),
	})
}

// ConfirmPrompt issues a token for toolName acting on resource and returns
// the prompt telling the caller how to use it.
func ConfirmPrompt(confirm *safety.ConfirmationTracker, toolName, resource, description string) *mcp.CallToolResult {
	token := confirm.RequestConfirmation(toolName, resource, description)
	return mcp.NewToolResultText(fmt.Sprintf(
		"Confirmation required for %s on %q.\n\n%s\n\nTo proceed, call %s again with the same arguments and confirmation_token=%q.",
		toolName, resource, description, toolName, token,
	))
}

// RequireConfirmation consumes token for toolName and resource. When the
// token is not accepted it returns a fresh prompt and false; the handler must
// return the prompt without acting.
func RequireConfirmation(confirm *safety.ConfirmationTracker, token, toolName, resource, description string) (*mcp.CallToolResult, bool) {
	if confirm == nil || !confirm.NeedsConfirmation(toolName) {
		return nil, true
	}
	if confirm.Confirm(token, toolName, resource) {
		return nil, true
	}
	return ConfirmPrompt(confirm, toolName, resource, description), false
}
