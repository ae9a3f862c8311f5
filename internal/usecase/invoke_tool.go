package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/i2y/postcrawl-mcp/internal/domain"
)

const meterName = "github.com/i2y/postcrawl-mcp/internal/usecase"

// InvokeToolUseCase handles receiving a tool invocation request and executing it
// against the remote API with a client bound to the caller's key.
type InvokeToolUseCase struct {
	repository  ToolRepository
	validator   ArgumentValidator
	newClient   ClientFactory
	invocations metric.Int64Counter
	logger      *slog.Logger
}

// NewInvokeToolUseCase creates a new InvokeToolUseCase.
func NewInvokeToolUseCase(repo ToolRepository, validator ArgumentValidator, newClient ClientFactory, logger *slog.Logger) *InvokeToolUseCase {
	logger = logger.With("usecase", "InvokeTool")

	counter, err := otel.Meter(meterName).Int64Counter(
		"postcrawl.tool.invocations",
		metric.WithDescription("Tool invocations by tool name and outcome."),
	)
	if err != nil {
		logger.Warn("Failed to create invocation counter, metrics disabled", slog.Any("error", err))
		counter, _ = noop.NewMeterProvider().Meter(meterName).Int64Counter("postcrawl.tool.invocations")
	}

	return &InvokeToolUseCase{
		repository:  repo,
		validator:   validator,
		newClient:   newClient,
		invocations: counter,
		logger:      logger,
	}
}

// Execute finds the tool, validates and decodes its arguments, and calls the
// matching remote API operation. Unknown tools yield ErrToolNotFound; every
// other failure is a *domain.APIError.
func (uc *InvokeToolUseCase) Execute(ctx context.Context, apiKey, toolName string, args map[string]interface{}) (interface{}, error) {
	log := uc.logger.With(slog.String("tool_name", toolName))
	log.Info("Executing tool invocation")

	result, err := uc.execute(ctx, apiKey, toolName, args)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if apiErr, ok := domain.AsAPIError(err); ok {
			outcome = apiErr.Kind.String()
			log.Warn("Tool invocation failed",
				slog.String("kind", apiErr.Kind.String()),
				slog.String("code", apiErr.Code),
				slog.String("request_id", apiErr.RequestID))
		} else {
			log.Warn("Tool invocation failed", slog.Any("error", err))
		}
	} else {
		log.Info("Tool invocation successful")
	}
	uc.invocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", toolName),
		attribute.String("outcome", outcome),
	))

	return result, err
}

func (uc *InvokeToolUseCase) execute(ctx context.Context, apiKey, toolName string, args map[string]interface{}) (interface{}, error) {
	tool, err := uc.repository.FindToolByName(ctx, toolName)
	if err != nil {
		if errors.Is(err, ErrToolNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrToolNotFound, toolName)
		}
		return nil, fmt.Errorf("failed to look up tool %s: %w", toolName, err)
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	if err := uc.validator.Validate(*tool, args); err != nil {
		return nil, err
	}

	client := uc.newClient(apiKey)

	switch tool.Name {
	case domain.ToolSearch:
		var req domain.SearchRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		results, err := client.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		return results, nil

	case domain.ToolSearchAndExtract:
		var req domain.SearchAndExtractRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		posts, err := client.SearchAndExtract(ctx, req)
		if err != nil {
			return nil, err
		}
		return posts, nil

	case domain.ToolExtract:
		var req domain.ExtractRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		posts, err := client.Extract(ctx, req)
		if err != nil {
			return nil, err
		}
		return posts, nil

	case domain.ToolCheckHealth:
		status, err := client.CheckHealth(ctx)
		if err != nil {
			return nil, err
		}
		return status, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, toolName)
	}
}

// decodeArgs converts already-validated arguments into a typed request. Values
// the schema accepts but the request type cannot hold (e.g. a fractional page)
// are reported as validation errors.
func decodeArgs(args map[string]interface{}, out interface{}) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return domain.ValidationFailed(domain.NewRequestID(), []domain.FieldError{
			domain.InvalidValue("arguments", err.Error()),
		})
	}
	if err := json.Unmarshal(raw, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return domain.ValidationFailed(domain.NewRequestID(), []domain.FieldError{
				domain.InvalidFormat(typeErr.Field, typeErr.Type.String()),
			})
		}
		return domain.ValidationFailed(domain.NewRequestID(), []domain.FieldError{
			domain.InvalidValue("arguments", err.Error()),
		})
	}
	return nil
}
