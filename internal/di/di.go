// Package di provides a minimal service registry used by the module system.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry resolves registered services by token.
type ServiceRegistry interface {
	Get(token string) any
}

// Container registers and resolves services. Factories are evaluated lazily
// and memoized, so registration order between modules does not matter as
// long as dependencies are resolved at Get time.
type Container interface {
	ServiceRegistry
	Register(token string, service any)
	RegisterFactory(token string, factory func(ServiceRegistry) any)
}

type container struct {
	mu        sync.Mutex
	services  map[string]any
	factories map[string]func(ServiceRegistry) any
}

// NewContainer creates an empty Container.
func NewContainer() Container {
	return &container{
		services:  make(map[string]any),
		factories: make(map[string]func(ServiceRegistry) any),
	}
}

func (c *container) Register(token string, service any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[token] = service
}

func (c *container) RegisterFactory(token string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[token] = factory
}

func (c *container) Get(token string) any {
	c.mu.Lock()
	if svc, ok := c.services[token]; ok {
		c.mu.Unlock()
		return svc
	}
	factory, ok := c.factories[token]
	c.mu.Unlock()

	if !ok {
		panic(fmt.Sprintf("di: no service registered for token %q", token))
	}

	svc := factory(c)

	c.mu.Lock()
	c.services[token] = svc
	c.mu.Unlock()
	return svc
}

// Token is a typed service key.
type Token[T any] struct {
	name string
}

// NewToken creates a typed token with a unique name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the token's registry key.
func (t Token[T]) Name() string { return t.name }

// RegisterToken registers a typed factory under the given token.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(token.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken fetches the service behind a typed token.
func GetToken[T any](sr ServiceRegistry, token Token[T]) T {
	svc, ok := sr.Get(token.name).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type", token.name))
	}
	return svc
}

// Resolve fetches a service by string token and asserts its type. Used for
// the globals registered directly by the monolith.
func Resolve[T any](sr ServiceRegistry, token string) T {
	svc, ok := sr.Get(token).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type", token))
	}
	return svc
}
