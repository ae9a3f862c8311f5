package mcpjsonrpc

import "encoding/json"

// Based on JSON-RPC 2.0 Specification: https://www.jsonrpc.org/specification

// Version is the only protocol version accepted and emitted.
const Version = "2.0"

// Request represents a JSON-RPC request object. ID is kept raw so it can be
// echoed back unchanged, whatever its JSON type.
type Request struct {
	Version string          `json:"jsonrpc"`          // MUST be "2.0"
	Method  string          `json:"method"`           // Method to be invoked
	Params  json.RawMessage `json:"params,omitempty"` // Parameters (structured value or array)
	ID      json.RawMessage `json:"id,omitempty"`     // Request identifier (string, number, or null)
}

// Response represents a JSON-RPC response object.
type Response struct {
	Version string          `json:"jsonrpc"`          // MUST be "2.0"
	Result  interface{}     `json:"result,omitempty"` // Required on success
	Error   *Error          `json:"error,omitempty"`  // Required on error
	ID      json.RawMessage `json:"id"`               // Must match request ID (or null if could not be determined)
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`           // Error code
	Message string      `json:"message"`        // Error message
	Data    interface{} `json:"data,omitempty"` // Additional data about the error
}

func (e *Error) Error() string { return e.Message }

// Error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	// -32000 to -32099: Server error (implementation-defined)
	CodeServerError = -32000
)

// NullID is the id used when the request id could not be determined.
var NullID = json.RawMessage("null")

// NewResult builds a success response for id.
func NewResult(id json.RawMessage, result interface{}) Response {
	return Response{Version: Version, Result: result, ID: normalizeID(id)}
}

// NewError builds an error response for id.
func NewError(id json.RawMessage, err *Error) Response {
	return Response{Version: Version, Error: err, ID: normalizeID(id)}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return NullID
	}
	return id
}

// CallToolParams defines the structure for the "params" field
// when the method is "tools/call".
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}
