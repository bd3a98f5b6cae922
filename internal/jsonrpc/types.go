package jsonrpc

import "encoding/json"

// Version is the fixed JSON-RPC protocol version.
const Version = "2.0"

// Request is a JSON-RPC 2.0 request object.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id and therefore
// expects no response.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// Response is a JSON-RPC 2.0 response object.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Standard JSON-RPC error codes.
const (
	ErrParse          = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603
)

// Server-defined error codes (-32000 to -32099).
const (
	// ErrAuthFailed: Salesforce credential acquisition failed.
	ErrAuthFailed = -32001
	// ErrUpstreamFailed: every API target failed and no degraded result applies.
	ErrUpstreamFailed = -32002
	// ErrRateLimited: the client exceeded the request rate limit.
	ErrRateLimited = -32003
)

// NewResponse builds a success response for the given request id.
func NewResponse(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

// NewError builds an error response for the given request id.
func NewError(id json.RawMessage, code int, message string, data any) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: &Error{Code: code, Message: message, Data: data}}
}
