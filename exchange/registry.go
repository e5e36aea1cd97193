package exchange

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// namePattern constrains exchange names: lowercase alphanumerics and hyphens,
// length at least 3.
var namePattern = regexp.MustCompile(`^[a-z0-9-]{3,}$`)

// ValidName reports whether name is a well-formed exchange name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Registry owns the backend singletons, indexed by lowercase exchange name.
// It is built once at startup by explicit Register calls and read-only
// afterwards; there is no ambient global instance.
type Registry struct {
	backends map[string]*Backend
}

// NewRegistry returns an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]*Backend)}
}

// Register adds a backend under its name. A malformed or duplicate name is a
// ConfigurationError; a backend must never be dropped silently.
func (r *Registry) Register(b *Backend) error {
	if b == nil {
		return &ConfigurationError{Message: "can't register a nil backend"}
	}
	if !ValidName(b.Name()) {
		return &ConfigurationError{
			Message: fmt.Sprintf("exchange name %q doesn't match pattern %s", b.Name(), namePattern.String()),
		}
	}
	if _, exists := r.backends[b.Name()]; exists {
		return &ConfigurationError{
			Message: fmt.Sprintf("exchange %q is already registered", b.Name()),
		}
	}
	r.backends[b.Name()] = b
	return nil
}

// MustRegister is Register for startup wiring where a failure is fatal
// by definition.
func (r *Registry) MustRegister(b *Backend) {
	if err := r.Register(b); err != nil {
		panic(err)
	}
}

// Names returns the registered exchange names in alphabetical order. The
// ordering is deterministic so help output and tests are stable.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the backend registered under name, if any.
func (r *Registry) Get(name string) (*Backend, bool) {
	b, ok := r.backends[strings.ToLower(name)]
	return b, ok
}

// API constructs the named backend's API client. An unknown name is user
// input, not a configuration bug.
func (r *Registry) API(name string, creds Credentials) (API, error) {
	b, ok := r.Get(name)
	if !ok {
		return nil, &ArgumentError{Message: fmt.Sprintf("unknown exchange %q", name)}
	}
	return b.API(creds), nil
}
