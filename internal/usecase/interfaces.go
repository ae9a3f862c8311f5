package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/i2y/postcrawl-mcp/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"
)

// Standard errors returned by use cases and adapters.
var (
	// ErrToolNotFound is returned for a tool name outside the catalog. It is a
	// plain error, not a *domain.APIError.
	ErrToolNotFound = errors.New("unknown tool")
)

// --- Remote API ---

// PostCrawlAPI is the remote content search and extraction API. Failures are
// returned as *domain.APIError.
type PostCrawlAPI interface {
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error)
	SearchAndExtract(ctx context.Context, req domain.SearchAndExtractRequest) ([]domain.ExtractedPost, error)
	Extract(ctx context.Context, req domain.ExtractRequest) ([]domain.ExtractedPost, error)
	CheckHealth(ctx context.Context) (json.RawMessage, error)
}

// ClientFactory builds a PostCrawlAPI bound to one caller's API key. It is
// called once per invocation so no credential is shared between callers.
type ClientFactory func(apiKey string) PostCrawlAPI

// --- Tool catalog ---

// ToolRepository stores the tool catalog.
type ToolRepository interface {
	// Save stores tools, preserving their order for List.
	Save(ctx context.Context, tools []domain.Tool) error

	// List retrieves all stored tools in the order they were saved.
	List(ctx context.Context) ([]domain.Tool, error)

	// FindToolByName retrieves a tool by its unique name, or ErrToolNotFound.
	FindToolByName(ctx context.Context, name string) (*domain.Tool, error)
}

// ArgumentValidator checks tool arguments against the tool's input schema.
// A failure is returned as a validation *domain.APIError.
type ArgumentValidator interface {
	Validate(tool domain.Tool, args map[string]interface{}) error
}

// ToolExecutor runs one tool invocation for one caller.
type ToolExecutor interface {
	Execute(ctx context.Context, apiKey, toolName string, args map[string]interface{}) (interface{}, error)
}

// --- MCP Server Abstraction ---

// MCPServerAdapter is the part of the mcp-go server used to register tools.
type MCPServerAdapter interface {
	AddTool(tool mcp.Tool, handlerFunc mcpGoServer.ToolHandlerFunc)
}

// ToolResultRenderer turns an invocation outcome into MCP tool content.
// It never fails: errors become content too.
type ToolResultRenderer interface {
	Render(result interface{}, err error) *mcp.CallToolResult
}
