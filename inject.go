package keel

// Inject declares a type dependency: the component registered under key is
// assigned to the exported field named field.
//
// Usage:
//
//	c.Register("userService", keel.Construct[UserService](),
//	    keel.Inject("Repo", "userRepository"),
//	    keel.Inject("Log", "Logger"),
//	)
func Inject(field, key string) RegisterOption {
	return func(d *Descriptor) {
		d.Dependencies = append(d.Dependencies, Dependency{Field: field, Key: key})
	}
}

// InjectStrategy declares a strategy dependency: whatever is registered under
// the interface name is assigned to field. A slice field receives every
// implementation; an empty interface name is skipped at resolution.
//
// Usage:
//
//	c.Register("dispatcher", keel.Construct[Dispatcher](),
//	    keel.InjectStrategy("Listeners", "EventListener"),
//	)
func InjectStrategy(field, iface string) RegisterOption {
	return func(d *Descriptor) {
		d.Strategies = append(d.Strategies, Strategy{Field: field, Interface: iface})
	}
}

// InjectAll declares several type dependencies at once, in the order given.
func InjectAll(deps ...Dependency) RegisterOption {
	return func(d *Descriptor) {
		d.Dependencies = append(d.Dependencies, deps...)
	}
}

// ExtractKeys returns the dependency keys of the given dependencies.
func ExtractKeys(deps []Dependency) []string {
	keys := make([]string, len(deps))
	for i, dep := range deps {
		keys[i] = dep.Key
	}

	return keys
}
