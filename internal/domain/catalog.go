package domain

// Tool names.
const (
	ToolSearch           = "search"
	ToolSearchAndExtract = "search_and_extract"
	ToolExtract          = "extract"
	ToolCheckHealth      = "check_health"
)

// Catalog returns the fixed set of tools served by the gateway, in advertised order.
// The input schemas here are the single definition of each tool's argument contract:
// they are listed to clients, registered with the MCP server and used to validate
// incoming arguments.
func Catalog() []Tool {
	return []Tool{
		{
			Name:        ToolSearch,
			Description: "Search for posts across social media platforms",
			InputSchema: JSONSchemaProps{
				Type: "object",
				Properties: map[string]JSONSchemaProps{
					"query":            {Type: "string", Description: "Search query"},
					"page":             {Type: "number", Default: DefaultPage},
					"results":          {Type: "number", Default: DefaultResults},
					"social_platforms": platformsSchema(),
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        ToolSearchAndExtract,
			Description: "Search and extract content in a single operation",
			InputSchema: JSONSchemaProps{
				Type: "object",
				Properties: map[string]JSONSchemaProps{
					"query":            {Type: "string", Description: "Search query"},
					"page":             {Type: "number", Default: DefaultPage},
					"results":          {Type: "number", Default: DefaultResults},
					"social_platforms": platformsSchema(),
					"response_mode":    responseModeSchema(),
					"include_comments": {Type: "boolean", Default: false},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        ToolExtract,
			Description: "Extract content from specific URLs",
			InputSchema: JSONSchemaProps{
				Type: "object",
				Properties: map[string]JSONSchemaProps{
					"urls":             {Type: "array", Items: &JSONSchemaProps{Type: "string"}},
					"response_mode":    responseModeSchema(),
					"include_comments": {Type: "boolean", Default: false},
				},
				Required: []string{"urls"},
			},
		},
		{
			Name:        ToolCheckHealth,
			Description: "Check PostCrawl API health",
			InputSchema: JSONSchemaProps{Type: "object"},
		},
	}
}

func platformsSchema() JSONSchemaProps {
	enum := make([]interface{}, 0, len(SocialPlatforms()))
	for _, p := range SocialPlatforms() {
		enum = append(enum, string(p))
	}
	return JSONSchemaProps{
		Type:  "array",
		Items: &JSONSchemaProps{Type: "string", Enum: enum},
	}
}

func responseModeSchema() JSONSchemaProps {
	enum := make([]interface{}, 0, len(ResponseModes()))
	for _, m := range ResponseModes() {
		enum = append(enum, string(m))
	}
	return JSONSchemaProps{Type: "string", Enum: enum, Default: string(DefaultResponseMode)}
}
