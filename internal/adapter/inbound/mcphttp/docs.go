package mcphttp

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/i2y/postcrawl-mcp/internal/adapter/presenter"
	"github.com/i2y/postcrawl-mcp/internal/domain"
)

//go:embed docs.html.tmpl
var docsTemplateText string

var docsTemplate = template.Must(template.New("docs").Parse(docsTemplateText))

type docsTool struct {
	Name        string
	Description string
	Schema      string
	Required    []string
}

type docsError struct {
	Type       string
	RPCCode    int
	HTTPStatus int
}

type docsPage struct {
	Title      string
	Endpoint   string
	Protocol   string
	Tools      []docsTool
	Errors     []docsError
	DocsURL    string
	ExampleReq string
}

func renderDocs(r *http.Request, tools []domain.Tool, rpcErrors presenter.RPCErrors) ([]byte, error) {
	scheme := "https"
	if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
		scheme = "http"
	}

	page := docsPage{
		Title:    "MCP Reference | " + ServerName,
		Endpoint: scheme + "://" + r.Host + "/mcp",
		Protocol: ProtocolVersion,
		DocsURL:  rpcErrors.DocsURL,
	}
	if page.DocsURL == "" {
		page.DocsURL = presenter.DefaultDocsURL
	}

	for _, tool := range tools {
		schema, err := presenter.PrettyJSON(tool.InputSchema)
		if err != nil {
			return nil, err
		}
		page.Tools = append(page.Tools, docsTool{
			Name:        tool.Name,
			Description: tool.Description,
			Schema:      schema,
			Required:    tool.InputSchema.Required,
		})
	}
	for _, kind := range domain.AllKinds() {
		page.Errors = append(page.Errors, docsError{
			Type:       kind.ErrorType(),
			RPCCode:    kind.JSONRPCCode(),
			HTTPStatus: kind.HTTPStatus(),
		})
	}

	example, err := presenter.PrettyJSON(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  MethodToolsCall,
		"params": map[string]interface{}{
			"name":      domain.ToolSearch,
			"arguments": map[string]interface{}{"query": "best golang books", "social_platforms": []string{"reddit"}},
		},
	})
	if err != nil {
		return nil, err
	}
	page.ExampleReq = example

	var buf bytes.Buffer
	if err := docsTemplate.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
