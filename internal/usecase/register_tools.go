package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/i2y/postcrawl-mcp/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"
)

// RegisterToolsUseCase stores the tool catalog and registers every tool with
// the MCP server. Registered handlers render both results and failures as
// tool content; they never return a Go error to the MCP server.
type RegisterToolsUseCase struct {
	tools          []domain.Tool
	repository     ToolRepository
	server         MCPServerAdapter
	executor       ToolExecutor
	renderer       ToolResultRenderer
	fallbackAPIKey string
	logger         *slog.Logger
}

// NewRegisterToolsUseCase creates a new RegisterToolsUseCase. fallbackAPIKey is
// used when the request context carries no key (e.g. stdio transport).
func NewRegisterToolsUseCase(
	tools []domain.Tool,
	repository ToolRepository,
	server MCPServerAdapter,
	executor ToolExecutor,
	renderer ToolResultRenderer,
	fallbackAPIKey string,
	logger *slog.Logger,
) *RegisterToolsUseCase {
	return &RegisterToolsUseCase{
		tools:          tools,
		repository:     repository,
		server:         server,
		executor:       executor,
		renderer:       renderer,
		fallbackAPIKey: fallbackAPIKey,
		logger:         logger.With("usecase", "RegisterTools"),
	}
}

// Execute saves the catalog and registers each tool with the MCP server.
func (uc *RegisterToolsUseCase) Execute(ctx context.Context) error {
	uc.logger.Info("Registering tools", slog.Int("tool_count", len(uc.tools)))

	if err := uc.repository.Save(ctx, uc.tools); err != nil {
		uc.logger.Error("Failed to save tool catalog", slog.Any("error", err))
		return fmt.Errorf("failed to save tool catalog: %w", err)
	}

	for _, tool := range uc.tools {
		mcpTool, err := toMCPTool(tool)
		if err != nil {
			uc.logger.Error("Failed to convert tool", slog.String("tool_name", tool.Name), slog.Any("error", err))
			return fmt.Errorf("failed to convert tool %s: %w", tool.Name, err)
		}
		uc.server.AddTool(mcpTool, uc.handler(tool.Name))
		uc.logger.Debug("Registered tool", slog.String("tool_name", tool.Name))
	}

	uc.logger.Info("Successfully registered tools", slog.Int("tool_count", len(uc.tools)))
	return nil
}

func (uc *RegisterToolsUseCase) handler(toolName string) mcpGoServer.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		apiKey := APIKeyFromContext(ctx)
		if apiKey == "" {
			apiKey = uc.fallbackAPIKey
		}
		if apiKey == "" {
			return uc.renderer.Render(nil, domain.MissingAuthHeader(domain.NewRequestID())), nil
		}

		result, err := uc.executor.Execute(ctx, apiKey, toolName, request.GetArguments())
		return uc.renderer.Render(result, err), nil
	}
}

func toMCPTool(tool domain.Tool) (mcp.Tool, error) {
	schema, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return mcp.Tool{}, err
	}
	return mcp.NewToolWithRawSchema(tool.Name, tool.Description, schema), nil
}
