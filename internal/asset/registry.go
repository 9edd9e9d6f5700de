package asset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is a thread-safe registry of known tokens.
type Registry struct {
	mu        sync.RWMutex
	byAddress map[common.Address]*Token
	bySymbol  map[string]*Token
}

// NewRegistry creates an empty token registry.
func NewRegistry() *Registry {
	return &Registry{
		byAddress: make(map[common.Address]*Token),
		bySymbol:  make(map[string]*Token),
	}
}

// Register adds a token. Panics on duplicate address or symbol: token
// identity is configured once at startup and never mutated.
func (r *Registry) Register(t *Token) {
	if t == nil {
		panic("asset: cannot register nil token")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byAddress[t.Address()]; exists {
		panic(fmt.Sprintf("asset: address %s already registered", t.Address()))
	}
	sym := strings.ToUpper(t.Symbol())
	if _, exists := r.bySymbol[sym]; exists {
		panic(fmt.Sprintf("asset: symbol %s already registered", sym))
	}

	r.byAddress[t.Address()] = t
	r.bySymbol[sym] = t
}

// ByAddress retrieves a token by contract address.
func (r *Registry) ByAddress(addr common.Address) (*Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byAddress[addr]
	return t, ok
}

// BySymbol retrieves a token by its ticker symbol (case-insensitive).
func (r *Registry) BySymbol(symbol string) (*Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.bySymbol[strings.ToUpper(symbol)]
	return t, ok
}

// MustBySymbol retrieves a token by symbol, panicking if unknown.
func (r *Registry) MustBySymbol(symbol string) *Token {
	t, ok := r.BySymbol(symbol)
	if !ok {
		panic(fmt.Sprintf("asset: token %s not found in registry", symbol))
	}
	return t
}

// Native returns the registered native gas asset, if any.
func (r *Registry) Native() (*Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.byAddress {
		if t.IsNative() {
			return t, true
		}
	}
	return nil, false
}

// All returns a snapshot of every registered token.
func (r *Registry) All() []*Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Token, 0, len(r.byAddress))
	for _, t := range r.byAddress {
		out = append(out, t)
	}
	return out
}
