package errx

import "fmt"

// Registry namespaces error codes for one domain package. Codes are
// registered once at init time and instantiated per occurrence.
type Registry struct {
	prefix  string
	entries map[Code]entry
}

type entry struct {
	errType    Type
	httpStatus int
	message    string
}

func NewRegistry(prefix string) *Registry {
	return &Registry{
		prefix:  prefix,
		entries: make(map[Code]entry),
	}
}

// Register records a code with its type, HTTP status, and default message,
// and returns the namespaced code.
func (r *Registry) Register(code string, t Type, httpStatus int, message string) Code {
	full := Code(fmt.Sprintf("%s_%s", r.prefix, code))
	r.entries[full] = entry{errType: t, httpStatus: httpStatus, message: message}
	return full
}

// New creates a fresh error instance for a registered code.
func (r *Registry) New(code Code) *Error {
	e, ok := r.entries[code]
	if !ok {
		return &Error{
			Code:       string(code),
			Type:       TypeInternal,
			HTTPStatus: 500,
			Message:    "unregistered error code",
		}
	}
	return &Error{
		Code:       string(code),
		Type:       e.errType,
		HTTPStatus: e.httpStatus,
		Message:    e.message,
	}
}

// NewWithCause creates an error for a registered code wrapping cause.
func (r *Registry) NewWithCause(code Code, cause error) *Error {
	err := r.New(code)
	err.Cause = cause
	return err
}
