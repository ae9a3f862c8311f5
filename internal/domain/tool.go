package domain

import "encoding/json"

// Tool represents a callable operation exposed over the Model Context Protocol (MCP).
type Tool struct {
	// Name is unique within the server, e.g. "search_and_extract".
	Name string `json:"name"`

	// Description explains what the tool does, for the model choosing between tools.
	Description string `json:"description"`

	// InputSchema defines the arguments the tool accepts, in JSON Schema form.
	InputSchema JSONSchemaProps `json:"inputSchema"`
}

// JSONSchemaProps is the subset of JSON Schema used by tool input schemas.
type JSONSchemaProps struct {
	Type        string                     `json:"type"`
	Description string                     `json:"description,omitempty"`
	Properties  map[string]JSONSchemaProps `json:"properties,omitempty"`
	Required    []string                   `json:"required,omitempty"`
	Items       *JSONSchemaProps           `json:"items,omitempty"`
	Enum        []interface{}              `json:"enum,omitempty"`
	Default     interface{}                `json:"default,omitempty"`
}

// MarshalJSON always emits "properties" for object schemas, so a tool without
// arguments is still described as {"type":"object","properties":{}}.
func (p JSONSchemaProps) MarshalJSON() ([]byte, error) {
	type alias JSONSchemaProps
	if p.Type != "object" {
		return json.Marshal(alias(p))
	}
	props := p.Properties
	if props == nil {
		props = map[string]JSONSchemaProps{}
	}
	return json.Marshal(struct {
		alias
		Properties map[string]JSONSchemaProps `json:"properties"`
	}{alias: alias(p), Properties: props})
}
