package schemavalidator_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/postcrawl-mcp/internal/adapter/outbound/schemavalidator"
	"github.com/i2y/postcrawl-mcp/internal/domain"
)

func tool(t *testing.T, name string) domain.Tool {
	t.Helper()
	for _, tl := range domain.Catalog() {
		if tl.Name == name {
			return tl
		}
	}
	t.Fatalf("tool %s not in catalog", name)
	return domain.Tool{}
}

func TestValidator_Validate(t *testing.T) {
	v := schemavalidator.New(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	tests := []struct {
		name       string
		tool       string
		args       map[string]interface{}
		wantFields []domain.FieldError
	}{
		{
			name: "search minimal",
			tool: domain.ToolSearch,
			args: map[string]interface{}{"query": "golang"},
		},
		{
			name: "search full",
			tool: domain.ToolSearch,
			args: map[string]interface{}{
				"query":            "golang",
				"page":             float64(3),
				"results":          float64(25),
				"social_platforms": []interface{}{"reddit", "tiktok"},
			},
		},
		{
			name: "empty platform list passes the schema",
			tool: domain.ToolSearch,
			args: map[string]interface{}{"query": "golang", "social_platforms": []interface{}{}},
		},
		{
			name: "check_health nil args",
			tool: domain.ToolCheckHealth,
		},
		{
			name:       "missing query",
			tool:       domain.ToolSearch,
			args:       map[string]interface{}{},
			wantFields: []domain.FieldError{domain.MissingField("query")},
		},
		{
			name:       "missing urls",
			tool:       domain.ToolExtract,
			args:       map[string]interface{}{"include_comments": true},
			wantFields: []domain.FieldError{domain.MissingField("urls")},
		},
		{
			name:       "page of wrong type",
			tool:       domain.ToolSearch,
			args:       map[string]interface{}{"query": "golang", "page": "two"},
			wantFields: []domain.FieldError{domain.InvalidFormat("page", "number")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tool(t, tt.tool), tt.args)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}

			apiErr, ok := domain.AsAPIError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, domain.KindValidation, apiErr.Kind)
			assert.Equal(t, domain.CodeValidationFailed, apiErr.Code)
			details, ok := apiErr.Details.(domain.ValidationDetails)
			require.True(t, ok)
			assert.Equal(t, tt.wantFields, details.FieldErrors)
		})
	}
}

func TestValidator_EnumViolation(t *testing.T) {
	v := schemavalidator.New(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	err := v.Validate(tool(t, domain.ToolSearchAndExtract), map[string]interface{}{
		"query":         "golang",
		"response_mode": "html",
	})

	apiErr, ok := domain.AsAPIError(err)
	require.True(t, ok)
	details := apiErr.Details.(domain.ValidationDetails)
	require.Len(t, details.FieldErrors, 1)
	assert.Equal(t, "response_mode", details.FieldErrors[0].Field)
	assert.Equal(t, domain.FieldCodeInvalidValue, details.FieldErrors[0].Code)
}

func TestValidator_ReusesCompiledSchema(t *testing.T) {
	v := schemavalidator.New(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	search := tool(t, domain.ToolSearch)

	for i := 0; i < 3; i++ {
		assert.NoError(t, v.Validate(search, map[string]interface{}{"query": "q"}))
		assert.Error(t, v.Validate(search, map[string]interface{}{}))
	}
}
