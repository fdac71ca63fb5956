package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags the category of a core error. Handlers switch on the kind to
// decide the HTTP status and which payload fields are meaningful.
type Kind string

const (
	KindDatabase     Kind = "database"
	KindValidation   Kind = "validation"
	KindUserNotFound Kind = "user_not_found"
	KindEmailSending Kind = "email_sending"
	KindPipeline     Kind = "pipeline"
)

// Error is the single structured error type used by the user store, the
// credential service and the preprocessing pipeline. Instead of an exception
// hierarchy the payload fields are populated per kind: Field/Value for
// validation failures, Email for user-lookup and mail failures, Path for
// pipeline I/O. Value stays empty for password fields so plaintext is never
// echoed back to the presentation layer.
type Error struct {
	Kind       Kind
	Message    string
	Field      string
	Value      string
	Email      string
	Path       string
	Suggestion string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindDatabase:
		b.WriteString("DatabaseError: " + e.Message)
	case KindValidation:
		b.WriteString("ValidationError: " + e.Message)
		b.WriteString("\n - Field: " + e.Field)
		b.WriteString("\n - Value: " + e.Value)
	case KindUserNotFound:
		b.WriteString("UserNotFoundError: " + e.Message)
	case KindEmailSending:
		b.WriteString("EmailSendingError: " + e.Message)
	case KindPipeline:
		b.WriteString("PipelineError: " + e.Message)
		if e.Path != "" {
			b.WriteString("\n - Path: " + e.Path)
		}
	default:
		b.WriteString(e.Message)
	}
	if e.Suggestion != "" {
		b.WriteString("\n - Suggested action: " + e.Suggestion)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NewDatabaseError reports an unreadable or structurally corrupt user store.
// An empty msg falls back to the generic message.
func NewDatabaseError(msg string, err error) *Error {
	if msg == "" {
		msg = "An error occurred with the database."
	}
	return &Error{
		Kind:       KindDatabase,
		Message:    msg,
		Suggestion: "Check database connectivity and logs.",
		Err:        err,
	}
}

// NewValidationError reports a user-correctable input failure on a named
// field. Callers validating passwords must pass an empty value.
func NewValidationError(field, value string) *Error {
	return &Error{
		Kind:       KindValidation,
		Message:    "Validation failed.",
		Field:      field,
		Value:      value,
		Suggestion: "Check the field value and format.",
	}
}

// NewValidationErrorMsg is like NewValidationError with a specific message,
// used when the generic one would hide which rule failed.
func NewValidationErrorMsg(field, value, msg string) *Error {
	e := NewValidationError(field, value)
	e.Message = msg
	return e
}

// NewUserNotFoundError reports a recovery-flow lookup miss. This is a
// recoverable, caller-handled condition and intentionally names the email.
func NewUserNotFoundError(email string) *Error {
	return &Error{
		Kind:       KindUserNotFound,
		Message:    fmt.Sprintf("No user found with email: %s", email),
		Email:      email,
		Suggestion: "Verify the email address or register a new account.",
	}
}

// NewUsernameNotFoundError is the username-keyed variant used by password
// updates; login never exposes it.
func NewUsernameNotFoundError(username string) *Error {
	return &Error{
		Kind:       KindUserNotFound,
		Message:    fmt.Sprintf("No user found with username: %s", username),
		Field:      "username",
		Value:      username,
		Suggestion: "Verify the username or register a new account.",
	}
}

// NewEmailSendingError reports a failed hand-off to the email collaborator.
func NewEmailSendingError(email string, err error) *Error {
	return &Error{
		Kind:       KindEmailSending,
		Message:    fmt.Sprintf("Failed to send the email to: %s", email),
		Email:      email,
		Suggestion: "Check the email service configuration and try again.",
		Err:        err,
	}
}

// NewPipelineError aborts a preprocessing run with a single descriptive error.
func NewPipelineError(path, msg string, err error) *Error {
	return &Error{
		Kind:       KindPipeline,
		Message:    msg,
		Path:       path,
		Suggestion: "Check the dataset file and rerun the pipeline.",
		Err:        err,
	}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// As unwraps err into *Error when possible.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
