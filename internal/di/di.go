// Package di provides a small service container with typed tokens.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	// Get returns the service registered under name, or nil.
	Get(name string) any
}

// Container is the write side: modules register services during startup.
type Container interface {
	ServiceRegistry

	// Register stores a ready service instance under name.
	Register(name string, svc any)

	// RegisterFactory stores a lazily-evaluated constructor under name.
	// The factory runs at most once, on first Get.
	RegisterFactory(name string, factory func(ServiceRegistry) any)
}

type container struct {
	mu        sync.RWMutex
	services  map[string]any
	factories map[string]func(ServiceRegistry) any
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		services:  make(map[string]any),
		factories: make(map[string]func(ServiceRegistry) any),
	}
}

func (c *container) Register(name string, svc any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = svc
}

func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
}

func (c *container) Get(name string) any {
	c.mu.RLock()
	if svc, ok := c.services[name]; ok {
		c.mu.RUnlock()
		return svc
	}
	factory, ok := c.factories[name]
	c.mu.RUnlock()

	if !ok {
		return nil
	}

	// Resolve outside the read lock so factories can Get their own deps.
	svc := factory(c)

	c.mu.Lock()
	c.services[name] = svc
	delete(c.factories, name)
	c.mu.Unlock()

	return svc
}

// Token is a typed handle for a service registered in the container.
type Token[T any] struct {
	name string
}

// NewToken creates a token with a unique name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the registration name of the token.
func (t Token[T]) Name() string {
	return t.name
}

// RegisterToken registers a factory for a typed token.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(token.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves a typed token. It panics if the service is missing or
// has the wrong type: both are wiring bugs, not runtime conditions.
func GetToken[T any](sr ServiceRegistry, token Token[T]) T {
	svc := sr.Get(token.name)
	if svc == nil {
		panic(fmt.Sprintf("di: service %q not registered", token.name))
	}
	typed, ok := svc.(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has type %T, not the token type", token.name, svc))
	}
	return typed
}
