package presenter_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/postcrawl-mcp/internal/adapter/presenter"
	"github.com/i2y/postcrawl-mcp/internal/domain"
	"github.com/i2y/postcrawl-mcp/pkg/shared/mcpjsonrpc"
)

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	assert.Equal(t, "text", text.Type)
	return text.Text
}

func TestToolContent_RenderSuccess(t *testing.T) {
	results := []json.RawMessage{json.RawMessage(`{"id":"a","score":1}`)}

	res := presenter.ToolContent{}.Render(results, nil)

	assert.False(t, res.IsError)
	assert.Equal(t, "[\n  {\n    \"id\": \"a\",\n    \"score\": 1\n  }\n]", textOf(t, res))
}

func TestToolContent_RenderAPIError(t *testing.T) {
	apiErr := domain.RateLimitExceeded("req_abc", domain.RateLimitDetails{Limit: 10, Remaining: 0, ResetAt: 1700000000000, RetryAfter: 30})

	res := presenter.ToolContent{}.Render(nil, apiErr)

	assert.True(t, res.IsError)
	text := textOf(t, res)
	prefix := "Error: " + apiErr.UserMessage + "\n\nDetails: "
	require.True(t, strings.HasPrefix(text, prefix), text)
	assert.JSONEq(t, `{
		"type": "rate_limit_error",
		"code": "rate_limit_exceeded",
		"request_id": "req_abc",
		"details": {"limit": 10, "remaining": 0, "reset_at": 1700000000000, "retry_after": 30}
	}`, strings.TrimPrefix(text, prefix))
}

func TestToolContent_RenderUnknownError(t *testing.T) {
	res := presenter.ToolContent{}.Render(nil, errors.New("boom"))

	assert.True(t, res.IsError)
	assert.Equal(t, "Error: Unknown error occurred", textOf(t, res))
}

func TestRPCErrors_FromError(t *testing.T) {
	p := presenter.RPCErrors{DocsURL: "https://docs.example.com/errors"}

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantData string
	}{
		{
			name:     "validation",
			err:      domain.ValidationFailed("req_v", []domain.FieldError{domain.MissingField("query")}),
			wantCode: -32602,
			wantData: `{
				"type": "validation_error",
				"code": "validation_failed",
				"request_id": "req_v",
				"user_message": "The request contains invalid parameters: query: Field is required",
				"details": {"field_errors": [{"field": "query", "code": "missing_required", "message": "Field is required"}]},
				"doc_url": "https://docs.example.com/errors#validation_failed"
			}`,
		},
		{
			name:     "forbidden has no details",
			err:      domain.PermissionDenied("req_f"),
			wantCode: -32000,
			wantData: `{
				"type": "forbidden_error",
				"code": "permission_denied",
				"request_id": "req_f",
				"user_message": "You do not have permission to access this resource.",
				"doc_url": "https://docs.example.com/errors#permission_denied"
			}`,
		},
		{
			name:     "internal",
			err:      domain.Internal("req_i", "API request failed: 502 Bad Gateway"),
			wantCode: -32603,
			wantData: `{
				"type": "internal_error",
				"code": "internal_error",
				"request_id": "req_i",
				"user_message": "An unexpected error occurred. Please try again later.",
				"doc_url": "https://docs.example.com/errors#internal_error"
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpcErr := p.FromError(tt.err)
			assert.Equal(t, tt.wantCode, rpcErr.Code)
			assert.Equal(t, tt.err.Error(), rpcErr.Message)

			data, err := json.Marshal(rpcErr.Data)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantData, string(data))
		})
	}
}

func TestRPCErrors_FromPlainError(t *testing.T) {
	rpcErr := presenter.RPCErrors{}.FromError(errors.New("Unknown tool: nope"))

	assert.Equal(t, mcpjsonrpc.CodeInternalError, rpcErr.Code)
	assert.Equal(t, "Unknown tool: nope", rpcErr.Message)
	assert.Nil(t, rpcErr.Data)
}

func TestRPCErrors_DefaultDocsURL(t *testing.T) {
	rpcErr := presenter.RPCErrors{}.FromError(domain.NotFound("req_n", "Resource not found"))

	data := rpcErr.Data.(presenter.ErrorData)
	assert.Equal(t, presenter.DefaultDocsURL+"#resource_not_found", data.DocURL)
}
