// Package presenter renders invocation outcomes for the two client-facing
// surfaces: MCP tool content and JSON-RPC error objects.
package presenter

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/i2y/postcrawl-mcp/internal/domain"
	"github.com/i2y/postcrawl-mcp/pkg/shared/mcpjsonrpc"
)

// DefaultDocsURL is the base of the per-code documentation links.
const DefaultDocsURL = "https://docs.postcrawl.com/errors"

// PrettyJSON encodes v with two-space indentation.
func PrettyJSON(v interface{}) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ToolContent renders results as a single text content item holding pretty JSON.
type ToolContent struct{}

// Render implements usecase.ToolResultRenderer.
func (ToolContent) Render(result interface{}, err error) *mcp.CallToolResult {
	if err != nil {
		return renderError(err)
	}
	text, mErr := PrettyJSON(result)
	if mErr != nil {
		return renderError(domain.Internal(domain.NewRequestID(), fmt.Sprintf("failed to encode result: %v", mErr)))
	}
	return mcp.NewToolResultText(text)
}

func renderError(err error) *mcp.CallToolResult {
	apiErr, ok := domain.AsAPIError(err)
	if !ok {
		return mcp.NewToolResultError("Error: Unknown error occurred")
	}

	summary := map[string]interface{}{
		"type":       apiErr.Kind.ErrorType(),
		"code":       apiErr.Code,
		"request_id": apiErr.RequestID,
	}
	if apiErr.Details != nil {
		summary["details"] = apiErr.Details
	}
	details, mErr := PrettyJSON(summary)
	if mErr != nil {
		return mcp.NewToolResultError("Error: " + apiErr.UserMessage)
	}
	return mcp.NewToolResultError(fmt.Sprintf("Error: %s\n\nDetails: %s", apiErr.UserMessage, details))
}

// RPCErrors maps invocation failures to JSON-RPC error objects.
type RPCErrors struct {
	DocsURL string
}

// ErrorData is the "data" member attached to a JSON-RPC error built from a
// *domain.APIError.
type ErrorData struct {
	Type        string      `json:"type"`
	Code        string      `json:"code"`
	RequestID   string      `json:"request_id"`
	UserMessage string      `json:"user_message"`
	Details     interface{} `json:"details,omitempty"`
	DocURL      string      `json:"doc_url"`
}

// FromError builds the JSON-RPC error for err. A *domain.APIError keeps its
// kind's code and full data; anything else becomes a bare internal error.
func (p RPCErrors) FromError(err error) *mcpjsonrpc.Error {
	apiErr, ok := domain.AsAPIError(err)
	if !ok {
		return &mcpjsonrpc.Error{Code: mcpjsonrpc.CodeInternalError, Message: err.Error()}
	}
	return &mcpjsonrpc.Error{
		Code:    apiErr.Kind.JSONRPCCode(),
		Message: apiErr.Message,
		Data: ErrorData{
			Type:        apiErr.Kind.ErrorType(),
			Code:        apiErr.Code,
			RequestID:   apiErr.RequestID,
			UserMessage: apiErr.UserMessage,
			Details:     apiErr.Details,
			DocURL:      p.docURL(apiErr.Code),
		},
	}
}

func (p RPCErrors) docURL(code string) string {
	base := p.DocsURL
	if base == "" {
		base = DefaultDocsURL
	}
	return base + "#" + code
}
