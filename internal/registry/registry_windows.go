//go:build windows

// Package registry is the element registry (C3): it hands out opaque
// ElementIDs for live UIA element references and is the only place
// that owns their COM lifetime. All access happens on the automation
// worker's thread, so the registry itself needs no further locking
// beyond what protects the id counter and map from the rare
// cross-goroutine read (e.g. an HTTP handler listing live ids for
// diagnostics).
package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/windowspilot/engine/internal/uia"
)

type entry struct {
	element      *uia.Element
	windowHandle uintptr
}

// Registry maps short opaque ids to live *uia.Element references.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	counter uint64
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Insert registers element under a freshly minted id, never reused
// even after the entry is dropped, so stale ids reliably report
// element_stale rather than silently resolving to an unrelated element.
func (r *Registry) Insert(element *uia.Element, windowHandle uintptr) string {
	id := fmt.Sprintf("el_%d", atomic.AddUint64(&r.counter, 1))
	r.mu.Lock()
	r.entries[id] = entry{element: element, windowHandle: windowHandle}
	r.mu.Unlock()
	return id
}

// Lookup returns the element registered under id, or false if it was
// never registered or has since been dropped.
func (r *Registry) Lookup(id string) (*uia.Element, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e.element, ok
}

// LookupWindow returns the native window handle the element at id was
// registered under, or false if id is unknown.
func (r *Registry) LookupWindow(id string) (uintptr, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e.windowHandle, ok
}

// Drop releases and removes a single id.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if ok {
		e.element.Release()
	}
}

// DropByWindow releases and removes every element that belongs to
// windowHandle, called when a window closes so its element tree can't
// outlive it.
func (r *Registry) DropByWindow(windowHandle uintptr) {
	r.mu.Lock()
	var victims []entry
	for id, e := range r.entries {
		if e.windowHandle == windowHandle {
			victims = append(victims, e)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()
	for _, e := range victims {
		e.element.Release()
	}
}

// Len reports the number of live entries, used for diagnostics and
// tests.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
