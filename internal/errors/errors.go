package errors

import "fmt"

// Category classifies where in the runtime an error originated.
type Category string

const (
	CategoryState     Category = "state"
	CategoryView      Category = "view"
	CategoryRender    Category = "render"
	CategoryComponent Category = "component"
	CategoryAsync     Category = "async"
	CategoryServer    Category = "server"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
)

// Error codes for conditions application code may want to branch on.
const (
	CodeInvalidPath     = "R001"
	CodeCircularUpdate  = "R002"
	CodeMiddlewarePanic = "R003"
	CodeSubscriberPanic = "R004"
	CodeParseFailed     = "R101"
	CodeComponentFailed = "R201"
	CodeAsyncRejected   = "R301"
	CodeDepthExceeded   = "R302"
	CodeConfigInvalid   = "R401"
)

// Error is a structured runtime error with a stable code, a category, and
// an optional fix suggestion.
type Error struct {
	// Code is a unique error identifier (e.g., "R001").
	Code string

	// Category is the runtime area the error belongs to.
	Category Category

	// Message is a short description of the error.
	Message string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// New creates a structured error.
func New(code string, category Category, message string) *Error {
	return &Error{Code: code, Category: category, Message: message}
}

// Newf creates a structured error with a formatted message.
func Newf(code string, category Category, format string, args ...any) *Error {
	return &Error{Code: code, Category: category, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an underlying error with a code and category.
func Wrap(err error, code string, category Category, message string) *Error {
	return &Error{Code: code, Category: category, Message: message, Wrapped: err}
}

// CodeOf extracts the structured code from an error chain, or "".
func CodeOf(err error) string {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
