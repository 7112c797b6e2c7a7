package collection

import (
	"errors"
	"fmt"

	"ai-collection/server/internal/auth"
)

// Kind classifies a failure reported by the Syncer
type Kind int

const (
	AuthFailure Kind = iota + 1
	FetchFailure
	UploadFailure
	SaveFailure
	DeleteFailure
	ClearFailure
	ImportValidationFailure
	AssistantFailure
)

func (k Kind) String() string {
	switch k {
	case AuthFailure:
		return "auth"
	case FetchFailure:
		return "fetch"
	case UploadFailure:
		return "upload"
	case SaveFailure:
		return "save"
	case DeleteFailure:
		return "delete"
	case ClearFailure:
		return "clear"
	case ImportValidationFailure:
		return "import_validation"
	case AssistantFailure:
		return "assistant"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Failure is a collaborator error converted into a user-facing message.
// Message is safe to show to the owner; Err carries the cause.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Message
	}
	return fmt.Sprintf("%s: %v", f.Message, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func newFailure(kind Kind, message string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: err}
}

// AsFailure extracts a *Failure from err
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsKind reports whether err is a Failure of the given kind
func IsKind(err error, kind Kind) bool {
	f, ok := AsFailure(err)
	return ok && f.Kind == kind
}

// NewAuthFailure converts a sign-in or sign-out error into an AuthFailure
func NewAuthFailure(err error) *Failure {
	if errors.Is(err, auth.ErrUnauthorizedDomain) {
		return newFailure(AuthFailure,
			"Login failed: this account's domain is not authorized. Add it to auth.allowed_domains in the server configuration.", err)
	}
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return newFailure(AuthFailure, "Login failed: invalid email or password.", err)
	}
	return newFailure(AuthFailure, fmt.Sprintf("An unexpected error occurred: %v", err), err)
}
