package narrative

// Resolve returns the explicit value when one was supplied and the computed
// value otherwise.
func Resolve[T any](explicit *T, computed T) T {
	if explicit != nil {
		return *explicit
	}
	return computed
}

// ResolveString treats an empty string as "not supplied".
func ResolveString(explicit, computed string) string {
	if explicit == "" {
		return computed
	}
	return explicit
}
