// Package apierr implements the error taxonomy of §7: typed error values
// that carry an HTTP status and render into the envelope
// {error, message, details?} at the outermost request boundary.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind tags an error with its §7 category.
type Kind string

const (
	KindMissingKey    Kind = "missing_key"
	KindInvalidKey    Kind = "invalid_key"
	KindWrongOwner    Kind = "wrong_owner"
	KindMissingParam  Kind = "missing_param"
	KindInvalidFormat Kind = "invalid_format"
	KindEmptyBody     Kind = "empty_body"
	KindInvalidEnum   Kind = "invalid_enum"
	KindSlugTaken     Kind = "slug_taken"
	KindNotFound      Kind = "resource_missing"
	KindStoreNotFound Kind = "store_not_found"
	KindDecodeError   Kind = "decode_error"
	KindValidation    Kind = "validation_error"
	KindEncryption    Kind = "encryption_failed"
	KindDecryption    Kind = "decryption_failed"
	KindInternal      Kind = "internal"
)

// Label is the short "error" field of the response envelope.
type Label string

const (
	LabelUnauthorized Label = "Unauthorized"
	LabelForbidden    Label = "Forbidden"
	LabelBadRequest   Label = "Bad request"
	LabelNotFound     Label = "Not found"
	LabelConflict     Label = "Conflict"
	LabelInternal     Label = "Internal server error"
)

// Error is the typed error value that flows out to the HTTP boundary.
type Error struct {
	Kind    Kind
	Label   Label
	Status  int
	Message string
	Details any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func new(kind Kind, label Label, status int, message string) *Error {
	return &Error{Kind: kind, Label: label, Status: status, Message: message}
}

// MissingAuth is returned when no Authorization header is present.
func MissingAuth() *Error {
	return new(KindMissingKey, LabelUnauthorized, 401, "Authentication required")
}

// InvalidAuth is returned when the bearer key does not match any api_keys row.
func InvalidAuth() *Error {
	return new(KindInvalidKey, LabelUnauthorized, 401, "Authentication required")
}

// WrongOwner is returned when an authenticated caller does not own the resource.
func WrongOwner(message string) *Error {
	return new(KindWrongOwner, LabelForbidden, 403, message)
}

// MissingParam is returned for a required-but-absent query/body parameter.
func MissingParam(name string) *Error {
	return new(KindMissingParam, LabelBadRequest, 400, "Missing required parameter: "+name)
}

// InvalidFormat is returned when a parameter fails format validation.
func InvalidFormat(message string) *Error {
	return new(KindInvalidFormat, LabelBadRequest, 400, message)
}

// InvalidEnum is returned when a value is outside its allowed enum.
func InvalidEnum(message string) *Error {
	return new(KindInvalidEnum, LabelBadRequest, 400, message)
}

// SlugTaken is returned on a unique-slug conflict.
func SlugTaken(slug string) *Error {
	return new(KindSlugTaken, LabelConflict, 409, "Slug already in use: "+slug)
}

// NotFound is returned when a user-visible resource does not exist.
func NotFound(resource string) *Error {
	return new(KindNotFound, LabelNotFound, 404, "Resource not found: "+resource)
}

// Internal wraps an unexpected/internal failure. The message stays generic;
// the cause is retained on the struct for logging, not for the response body.
func Internal(cause error) *Error {
	e := new(KindInternal, LabelInternal, 500, "An internal error occurred")
	e.Cause = cause
	return e
}

// FromStoreNotFound renders a Store's not_found as 404 (user-visible get_latest)
// or 500 (internal invariant), per §7.
func FromStoreNotFound(resource string, userVisible bool) *Error {
	if userVisible {
		return NotFound(resource)
	}
	e := new(KindStoreNotFound, LabelInternal, 500, "An internal error occurred")
	return e
}

// As reports whether err is (or wraps) an *Error and returns it.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// envelope is the §7 response body shape: {error, message, details?}.
type envelope struct {
	Error   Label  `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Write renders err as the §7 JSON envelope with its matching status
// code. Any error that isn't an *Error is treated as internal.
func Write(w http.ResponseWriter, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = Internal(err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(envelope{Error: e.Label, Message: e.Message, Details: e.Details})
}
