package keel

// ServiceQuery defines criteria for querying services.
type ServiceQuery struct {
	// Lifecycle filters by service lifecycle (singleton, transient).
	// Empty string matches all lifecycles.
	Lifecycle string

	// ComponentType filters by the component type tag.
	// Empty string matches all component types.
	ComponentType string

	// Metadata filters by service metadata key-value pairs.
	// All specified metadata must match for a service to be included.
	Metadata map[string]string

	// Instantiated filters by whether an instance has been built.
	// nil matches all services.
	Instantiated *bool
}

// Query returns detailed information about services matching the query criteria.
// Results follow registration order.
//
// Example:
//
//	// Find all built singleton controllers
//	built := true
//	results := keel.Query(c, keel.ServiceQuery{
//	    Lifecycle:     "singleton",
//	    ComponentType: "controller",
//	    Instantiated:  &built,
//	})
func Query(c *Container, query ServiceQuery) []ServiceInfo {
	var results []ServiceInfo

	for _, name := range c.Services() {
		info := c.Inspect(name)

		if query.Lifecycle != "" && info.Lifecycle != query.Lifecycle {
			continue
		}

		if query.ComponentType != "" && info.ComponentType != query.ComponentType {
			continue
		}

		if len(query.Metadata) > 0 {
			allMatch := true
			for key, value := range query.Metadata {
				if info.Metadata[key] != value {
					allMatch = false
					break
				}
			}
			if !allMatch {
				continue
			}
		}

		if query.Instantiated != nil && info.Instantiated != *query.Instantiated {
			continue
		}

		results = append(results, info)
	}

	return results
}

// QueryNames returns the names of services matching the query criteria.
func QueryNames(c *Container, query ServiceQuery) []string {
	results := Query(c, query)
	names := make([]string, len(results))
	for i, info := range results {
		names[i] = info.Name
	}
	return names
}

// FindByComponentType returns all services tagged with a component type.
func FindByComponentType(c *Container, componentType string) []ServiceInfo {
	return Query(c, ServiceQuery{ComponentType: componentType})
}

// FindByLifecycle returns all services with a specific lifecycle.
func FindByLifecycle(c *Container, lifecycle Lifecycle) []ServiceInfo {
	return Query(c, ServiceQuery{Lifecycle: lifecycle.String()})
}

// FindInstantiated returns all services with a built instance.
func FindInstantiated(c *Container) []ServiceInfo {
	built := true
	return Query(c, ServiceQuery{Instantiated: &built})
}

// FindPending returns all services without a built instance.
func FindPending(c *Container) []ServiceInfo {
	built := false
	return Query(c, ServiceQuery{Instantiated: &built})
}
