package folio

import (
	"maps"
	"slices"
	"strings"
	"sync"
)

// Registry owns the ledger of every portfolio of a session, indexed by name.
//
// Callers obtain ledgers from the registry and never copy them, so there is a
// single source of truth per portfolio.
type Registry struct {
	mu      sync.RWMutex
	ledgers map[string]*Ledger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ledgers: make(map[string]*Ledger)}
}

// Create registers a new empty portfolio.
func (r *Registry) Create(name string) (*Ledger, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &InvalidPortfolioNameError{Name: name}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ledgers[name]; exists {
		return nil, &DuplicatePortfolioError{Name: name}
	}
	l := NewLedger(name)
	r.ledgers[name] = l
	return l, nil
}

// Get returns the ledger of a portfolio.
func (r *Registry) Get(name string) (*Ledger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.ledgers[name]
	if !ok {
		return nil, &PortfolioNotFoundError{Name: name}
	}
	return l, nil
}

// Remove unregisters a portfolio.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ledgers[name]; !ok {
		return &PortfolioNotFoundError{Name: name}
	}
	delete(r.ledgers, name)
	return nil
}

// Names returns the registered portfolio names in alphabetical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.ledgers))
}
