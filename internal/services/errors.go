package services

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies a pipeline failure. The set is closed; transports map each
// kind to exactly one status code.
type Kind int

const (
	KindInvalidRequest Kind = iota + 1
	KindPayloadTooLarge
	KindDurationOutOfRange
	KindInvalidMedia
	KindInvalidRange
	KindNotFound
	KindInvalidToken
	KindTranscodeFailed
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindDurationOutOfRange:
		return "duration_out_of_range"
	case KindInvalidMedia:
		return "invalid_media"
	case KindInvalidRange:
		return "invalid_range"
	case KindNotFound:
		return "not_found"
	case KindInvalidToken:
		return "invalid_token"
	case KindTranscodeFailed:
		return "transcode_failed"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error is the concrete failure type returned by pipeline components.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if op := strings.TrimSpace(e.Op); op != "" {
		parts = append(parts, op)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return e.Kind.String()
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified failure without an underlying cause.
func New(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap tags err with kind and operation context. An err that already carries a
// kind keeps it; the new Op and Message are layered on top.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return New(kind, op, message)
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the outermost kind attached to err. Unclassified errors
// report KindStore so they surface as opaque server failures.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) && se.Kind != 0 {
		return se.Kind
	}
	return KindStore
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindTranscodeFailed, KindStore:
		return http.StatusInternalServerError
	case KindInvalidRequest, KindPayloadTooLarge, KindDurationOutOfRange,
		KindInvalidMedia, KindInvalidRange, KindInvalidToken:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text safe to show a client. Server-side kinds
// never leak their cause.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *Error
	if !errors.As(err, &se) {
		return "internal error"
	}
	switch se.Kind {
	case KindTranscodeFailed:
		return "video processing failed"
	case KindStore:
		return "internal error"
	}
	if msg := strings.TrimSpace(se.Message); msg != "" {
		return msg
	}
	return strings.ReplaceAll(se.Kind.String(), "_", " ")
}
