package mcphttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elnormous/contenttype"

	"github.com/i2y/postcrawl-mcp/internal/adapter/presenter"
	"github.com/i2y/postcrawl-mcp/internal/domain"
	"github.com/i2y/postcrawl-mcp/internal/usecase"
	"github.com/i2y/postcrawl-mcp/pkg/shared/mcpjsonrpc"
)

// Protocol constants returned from initialize.
const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "PostCrawl"
	ServerVersion   = "1.0.0"
)

// Supported JSON-RPC methods.
const (
	MethodInitialize = "initialize"
	MethodToolsList  = "tools/list"
	MethodToolsCall  = "tools/call"
)

// maxBodyBytes bounds a single JSON-RPC request body.
const maxBodyBytes = 4 << 20

var (
	jsonMediaType    = contenttype.NewMediaType("application/json")
	htmlMediaType    = contenttype.NewMediaType("text/html")
	docsMediaTypes   = []contenttype.MediaType{htmlMediaType, jsonMediaType}
	errMalformedBody = errors.New("malformed JSON-RPC request")
)

// ToolLister lists the advertised tools.
type ToolLister interface {
	Execute(ctx context.Context) ([]domain.Tool, error)
}

// Handlers struct holds dependencies for the HTTP handlers.
type Handlers struct {
	invoker   usecase.ToolExecutor
	lister    ToolLister
	rpcErrors presenter.RPCErrors
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(
	invoker usecase.ToolExecutor,
	lister ToolLister,
	rpcErrors presenter.RPCErrors,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		invoker:   invoker,
		lister:    lister,
		rpcErrors: rpcErrors,
		logger:    logger.With("component", "mcphttp_handler"),
	}
}

// RegisterRoutes sets up the JSON-RPC, documentation and liveness routes.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /mcp", h.handleMCPPost)
	mux.HandleFunc("GET /mcp", h.handleDocs)
	mux.HandleFunc("GET /health", h.handleHealth)
}

// BearerToken extracts the token from an Authorization header value. ok is
// false when the header is absent; an empty token with ok true means the
// header was present but carried no key.
func BearerToken(header string) (token string, ok bool) {
	if header == "" {
		return "", false
	}
	v := strings.TrimSpace(header)
	if v == "Bearer" {
		return "", true
	}
	return strings.TrimSpace(strings.TrimPrefix(v, "Bearer ")), true
}

// handleMCPPost implements POST /mcp.
func (h *Handlers) handleMCPPost(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("Panic while handling MCP request", slog.Any("panic", rec))
			h.writeFailure(w)
		}
	}()

	token, present := BearerToken(r.Header.Get("Authorization"))
	if !present {
		h.writeAuthError(w, domain.MissingAuthHeader(domain.NewRequestID()))
		return
	}
	if token == "" {
		h.writeAuthError(w, domain.InvalidAPIKey(domain.NewRequestID()))
		return
	}

	var req mcpjsonrpc.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode MCP request body", slog.Any("error", err))
		h.writeFailure(w)
		return
	}

	log := h.logger.With(slog.String("method", req.Method))
	log.Debug("Handling MCP request")

	resp, err := h.dispatch(r.Context(), token, req)
	if err != nil {
		log.Warn("Failed to process MCP request", slog.Any("error", err))
		h.writeFailure(w)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) dispatch(ctx context.Context, token string, req mcpjsonrpc.Request) (mcpjsonrpc.Response, error) {
	switch req.Method {
	case MethodInitialize:
		return mcpjsonrpc.NewResult(req.ID, map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    ServerName,
				"version": ServerVersion,
			},
		}), nil

	case MethodToolsList:
		tools, err := h.lister.Execute(ctx)
		if err != nil {
			return mcpjsonrpc.Response{}, err
		}
		return mcpjsonrpc.NewResult(req.ID, map[string]interface{}{"tools": tools}), nil

	case MethodToolsCall:
		return h.callTool(ctx, token, req)

	default:
		method := req.Method
		if method == "" {
			method = "unknown"
		}
		apiErr := domain.NotFound(domain.NewRequestID(), "Method not found: "+method)
		return mcpjsonrpc.NewError(req.ID, &mcpjsonrpc.Error{
			Code:    mcpjsonrpc.CodeMethodNotFound,
			Message: apiErr.Message,
			Data:    briefData(apiErr, false),
		}), nil
	}
}

func (h *Handlers) callTool(ctx context.Context, token string, req mcpjsonrpc.Request) (mcpjsonrpc.Response, error) {
	var params mcpjsonrpc.CallToolParams
	if len(req.Params) == 0 || json.Unmarshal(req.Params, &params) != nil {
		return mcpjsonrpc.Response{}, fmt.Errorf("%w: tools/call params must be an object", errMalformedBody)
	}
	if params.Arguments == nil {
		params.Arguments = map[string]interface{}{}
	}

	result, err := h.invoker.Execute(ctx, token, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, usecase.ErrToolNotFound) {
			return mcpjsonrpc.NewError(req.ID, &mcpjsonrpc.Error{
				Code:    mcpjsonrpc.CodeInternalError,
				Message: "Unknown tool: " + params.Name,
			}), nil
		}
		return mcpjsonrpc.NewError(req.ID, h.rpcErrors.FromError(err)), nil
	}

	text, err := presenter.PrettyJSON(result)
	if err != nil {
		return mcpjsonrpc.NewError(req.ID, h.rpcErrors.FromError(
			domain.Internal(domain.NewRequestID(), fmt.Sprintf("failed to encode result: %v", err)),
		)), nil
	}
	return mcpjsonrpc.NewResult(req.ID, map[string]interface{}{
		"content": []map[string]string{{"type": "text", "text": text}},
	}), nil
}

// writeAuthError renders an auth gate failure with the kind's HTTP status and a null id.
func (h *Handlers) writeAuthError(w http.ResponseWriter, apiErr *domain.APIError) {
	h.logger.Info("Rejected unauthenticated MCP request", slog.String("code", apiErr.Code), slog.String("request_id", apiErr.RequestID))
	h.writeJSON(w, apiErr.Kind.HTTPStatus(), mcpjsonrpc.NewError(nil, &mcpjsonrpc.Error{
		Code:    apiErr.Kind.JSONRPCCode(),
		Message: apiErr.Message,
		Data:    briefData(apiErr, true),
	}))
}

// writeFailure renders the outermost failure: an internal error with a null id.
func (h *Handlers) writeFailure(w http.ResponseWriter) {
	apiErr := domain.Internal(domain.NewRequestID(), "Failed to process MCP request")
	h.writeJSON(w, apiErr.Kind.HTTPStatus(), mcpjsonrpc.NewError(nil, &mcpjsonrpc.Error{
		Code:    apiErr.Kind.JSONRPCCode(),
		Message: apiErr.Message,
		Data:    briefData(apiErr, false),
	}))
}

func briefData(apiErr *domain.APIError, withUserMessage bool) map[string]string {
	data := map[string]string{
		"type":       apiErr.Kind.ErrorType(),
		"code":       apiErr.Code,
		"request_id": apiErr.RequestID,
	}
	if withUserMessage {
		data["user_message"] = apiErr.UserMessage
	}
	return data
}

// handleHealth implements GET /health, the gateway's own liveness probe.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDocs implements GET /mcp: an HTML reference page, or the tool
// catalog as JSON when the client prefers it.
func (h *Handlers) handleDocs(w http.ResponseWriter, r *http.Request) {
	tools, err := h.lister.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to list tools for docs", slog.Any("error", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	accepted, _, err := contenttype.GetAcceptableMediaType(r, docsMediaTypes)
	if err == nil && accepted.Matches(jsonMediaType) {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"tools": tools})
		return
	}

	page, err := renderDocs(r, tools, h.rpcErrors)
	if err != nil {
		h.logger.Error("Failed to render docs page", slog.Any("error", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to write JSON response", slog.Int("status", status), slog.Any("error", err))
	}
}
