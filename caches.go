package qs

import (
	"errors"
	"fmt"
	"sync"
)

var errNotFound = errors.New("value not found in cache")

// pending marks a cache slot whose value is still under construction,
// which happens when a type refers back to itself.
type pending struct{}

type cache[K comparable, V any] struct {
	// OnPending returns a stand-in value for a key whose real entry is
	// still being built by an outer call.
	OnPending func(K) V
	m         sync.Map
}

// Get returns the cached value for k. If no entry exists, Get reserves
// the slot and returns errNotFound; the caller must follow up with Set
// or SetErr. If the slot is reserved but unfilled, the key is part of
// a cycle and Get returns the OnPending stand-in.
func (c *cache[K, V]) Get(k K) (V, error) {
	ent, loaded := c.m.LoadOrStore(k, pending{})
	if !loaded {
		var zero V
		return zero, errNotFound
	}
	if _, ok := ent.(pending); ok {
		if c.OnPending == nil {
			var zero V
			return zero, fmt.Errorf("recursive construction for key %v", k)
		}
		return c.OnPending(k), nil
	}
	if val, ok := ent.(V); ok {
		return val, nil
	}
	if err, ok := ent.(error); ok {
		var zero V
		return zero, err
	}
	panic(fmt.Sprintf("mystery value %v (%T) in cache", ent, ent))
}

func (c *cache[K, V]) Set(k K, val V) {
	c.m.Store(k, val)
}

func (c *cache[K, V]) SetErr(k K, err error) {
	c.m.Store(k, err)
}
