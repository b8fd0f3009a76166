package errx

import "sync"

type registered struct {
	errType Type
	status  int
	message string
}

// Registry holds the error codes declared by one domain package.
// Codes are namespaced with the registry prefix, e.g. "LEAD_INVALID_PAYLOAD".
type Registry struct {
	prefix string
	mu     sync.RWMutex
	codes  map[string]registered
}

func NewRegistry(prefix string) *Registry {
	return &Registry{
		prefix: prefix,
		codes:  make(map[string]registered),
	}
}

// Register declares a code and returns its fully qualified name
func (r *Registry) Register(code string, t Type, httpStatus int, message string) string {
	full := r.prefix + "_" + code

	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[full] = registered{errType: t, status: httpStatus, message: message}

	return full
}

// New builds a fresh *Error for a registered code
func (r *Registry) New(code string) *Error {
	r.mu.RLock()
	entry, ok := r.codes[code]
	r.mu.RUnlock()

	if !ok {
		return &Error{
			Code:       code,
			Type:       TypeInternal,
			Message:    "unregistered error code",
			HTTPStatus: statusFor(TypeInternal),
		}
	}

	return &Error{
		Code:       code,
		Type:       entry.errType,
		Message:    entry.message,
		HTTPStatus: entry.status,
	}
}
