// Package schemavalidator checks tool arguments against the tool's JSON input schema.
package schemavalidator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/i2y/postcrawl-mcp/internal/domain"
)

// Validator validates tool arguments with gojsonschema. Compiled schemas are
// cached per tool name.
type Validator struct {
	schemas sync.Map // tool name -> *gojsonschema.Schema
	logger  *slog.Logger
}

// New creates a Validator.
func New(logger *slog.Logger) *Validator {
	return &Validator{logger: logger.With("component", "schema_validator")}
}

// Validate returns a validation *domain.APIError listing every schema
// violation in args, or nil when args conform.
func (v *Validator) Validate(tool domain.Tool, args map[string]interface{}) error {
	schema, err := v.schema(tool)
	if err != nil {
		v.logger.Error("Failed to compile input schema", slog.String("tool_name", tool.Name), slog.Any("error", err))
		return domain.Internal(domain.NewRequestID(), fmt.Sprintf("invalid input schema for tool %s: %v", tool.Name, err))
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return domain.ValidationFailed(domain.NewRequestID(), []domain.FieldError{
			domain.InvalidValue("arguments", err.Error()),
		})
	}
	if result.Valid() {
		return nil
	}

	problems := make([]domain.FieldError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		problems = append(problems, fieldError(re))
	}
	v.logger.Debug("Arguments rejected", slog.String("tool_name", tool.Name), slog.Int("problems", len(problems)))
	return domain.ValidationFailed(domain.NewRequestID(), problems)
}

func (v *Validator) schema(tool domain.Tool) (*gojsonschema.Schema, error) {
	if cached, ok := v.schemas.Load(tool.Name); ok {
		return cached.(*gojsonschema.Schema), nil
	}
	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, err
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, err
	}
	actual, _ := v.schemas.LoadOrStore(tool.Name, schema)
	return actual.(*gojsonschema.Schema), nil
}

func fieldError(re gojsonschema.ResultError) domain.FieldError {
	details := re.Details()
	switch re.Type() {
	case "required":
		return domain.MissingField(fmt.Sprint(details["property"]))
	case "invalid_type":
		return domain.InvalidFormat(fieldName(re.Field()), fmt.Sprint(details["expected"]))
	default:
		return domain.InvalidValue(fieldName(re.Field()), re.Description())
	}
}

// fieldName turns gojsonschema's "(root).a.0" style paths into "a.0".
func fieldName(field string) string {
	field = strings.TrimPrefix(field, "(root)")
	field = strings.TrimPrefix(field, ".")
	if field == "" {
		return "arguments"
	}
	return field
}
