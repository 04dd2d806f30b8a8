package types

// Container is the execution environment an engine exposes to every stage it runs.
// Stages resolve it from their context rather than from global state.
type Container interface {
	// Name identifies the container
	Name() string

	// Value returns the service or setting registered under key, or nil
	Value(key any) any
}

// MapContainer is a read-only Container backed by a map
type MapContainer struct {
	name   string
	values map[any]any
}

// NewContainer creates a container holding a copy of values
func NewContainer(name string, values map[any]any) *MapContainer {
	copied := make(map[any]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &MapContainer{name: name, values: copied}
}

// Name returns the container name
func (c *MapContainer) Name() string {
	return c.name
}

// Value returns the value registered under key
func (c *MapContainer) Value(key any) any {
	return c.values[key]
}
