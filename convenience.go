// File: lixenwraith/confdist/convenience.go
package confdist

import "fmt"

// Quick creates a manager distributing initial and registers the given
// components, with default options.
// This is the recommended way to initialize distribution for most applications
func Quick[T any](initial T, components ...Component[T]) (*Manager[T], error) {
	m := New(initial)
	for _, c := range components {
		if err := m.AddComponent(c); err != nil {
			return nil, fmt.Errorf("failed to register component: %w", err)
		}
	}
	return m, nil
}

// MustQuick is like Quick but panics on error
func MustQuick[T any](initial T, components ...Component[T]) *Manager[T] {
	m, err := Quick(initial, components...)
	if err != nil {
		panic(fmt.Sprintf("confdist initialization failed: %v", err))
	}
	return m
}
