// Package catalog loads and renders the public hospital catalog:
// departments, doctors and services.
package catalog

import (
	"context"

	"github.com/carehospital/portal/internal/platform/gateway"
)

type State string

const (
	StateLoading     State = "loading"
	StateUnavailable State = "unavailable"
	StateEmpty       State = "empty"
	StateReady       State = "ready"
)

// Listing is one load of a catalog list. The zero value is the loading
// placeholder.
type Listing[T any] struct {
	State State `json:"state"`
	Items []T   `json:"items"`
}

func newListing[T any](items []T, ok bool) Listing[T] {
	switch {
	case !ok:
		return Listing[T]{State: StateUnavailable, Items: []T{}}
	case len(items) == 0:
		return Listing[T]{State: StateEmpty, Items: []T{}}
	}
	return Listing[T]{State: StateReady, Items: items}
}

func (l Listing[T]) state() State {
	if l.State == "" {
		return StateLoading
	}
	return l.State
}

// Source is the read side of the gateway the loaders use.
type Source interface {
	Departments(ctx context.Context) ([]*gateway.Department, bool)
	AvailableDoctors(ctx context.Context) ([]*gateway.Doctor, bool)
	Services(ctx context.Context) ([]*gateway.Service, bool)
}

// Loader fetches each list fresh on every call.
type Loader struct {
	src Source
}

func NewLoader(src Source) *Loader {
	return &Loader{src: src}
}

func (l *Loader) Departments(ctx context.Context) Listing[*gateway.Department] {
	items, ok := l.src.Departments(ctx)
	return newListing(items, ok)
}

// Doctors lists only doctors marked available.
func (l *Loader) Doctors(ctx context.Context) Listing[*gateway.Doctor] {
	items, ok := l.src.AvailableDoctors(ctx)
	return newListing(items, ok)
}

func (l *Loader) Services(ctx context.Context) Listing[*gateway.Service] {
	items, ok := l.src.Services(ctx)
	return newListing(items, ok)
}
