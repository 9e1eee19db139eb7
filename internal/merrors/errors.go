// Package merrors defines the error taxonomy shared by every layer of the
// retrieval engine: a single Kind-tagged type that knows how to map itself
// to both an HTTP status and an MCP tool-response shape.
package merrors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind is a semantic error category, not an identity.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindParse           Kind = "parse"
	KindNotFound        Kind = "not-found"
	KindRelationship    Kind = "relationship"
	KindTemporal        Kind = "temporal"
	KindCausalTraversal Kind = "causal-traversal"
	KindEmbeddingAuth   Kind = "embedding-auth"
	KindEmbeddingRate   Kind = "embedding-rate-limit"
	KindEmbeddingModel  Kind = "embedding-model"
	KindEmbeddingInput  Kind = "embedding-input"
	KindEmbeddingServer Kind = "embedding-server"
	KindEmbeddingPerm   Kind = "embedding-permission"
	KindEmbeddingConfig Kind = "embedding-config"
	KindEmbeddingUnknown Kind = "embedding-unknown"
	KindTimeout         Kind = "timeout"
	KindBackend         Kind = "backend"
	KindMerge           Kind = "merge"
	KindLinearization   Kind = "linearization"
)

// Error is the single error type raised by every package in this module.
type Error struct {
	Kind    Kind
	Op      string // the operation in progress, e.g. "entity.getEntity"
	Message string
	Err     error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with no wrapped cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap creates an Error that preserves err for %w-style unwrapping.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: err.Error(), Err: err}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrors.As(err, &e)
	return e, ok
}

// HTTPStatus maps e's Kind to an HTTP status code. Nothing else in this
// module calls it; the /health endpoint sets its own status codes.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindParse, KindBackend:
		return http.StatusInternalServerError
	case KindRelationship, KindTemporal, KindCausalTraversal, KindMerge, KindLinearization:
		return http.StatusInternalServerError
	case KindEmbeddingAuth:
		return http.StatusUnauthorized
	case KindEmbeddingPerm:
		return http.StatusForbidden
	case KindEmbeddingRate:
		return http.StatusTooManyRequests
	case KindEmbeddingModel, KindEmbeddingInput, KindEmbeddingConfig:
		return http.StatusBadRequest
	case KindEmbeddingServer, KindEmbeddingUnknown:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ToolMessage renders a user-facing message for e's Kind. The MCP tool
// handlers do not call it: they report a failure as "<tool>: <error text>"
// (errResult in internal/mcp).
func (e *Error) ToolMessage() string {
	switch e.Kind {
	case KindValidation:
		return e.Message
	case KindParse:
		return "Failed to parse graph data"
	case KindNotFound:
		return e.Message
	case KindRelationship:
		return "Failed to create/remove relationship"
	case KindTemporal:
		return "Temporal query failed"
	case KindCausalTraversal:
		return fmt.Sprintf("Causal traversal failed: %s", e.Message)
	case KindMerge:
		return fmt.Sprintf("Subgraph merge failed: %s", e.Message)
	case KindLinearization:
		return fmt.Sprintf("Context linearization failed: %s", e.Message)
	case KindTimeout:
		return "Request timed out"
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
}
