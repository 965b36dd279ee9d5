package model

// Option holds a value that may be absent
type Option[T any] struct {
	value   T
	present bool
}

func Some[T any](v T) Option[T] {
	return Option[T]{value: v, present: true}
}

func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the value and whether it is present
func (o Option[T]) Get() (T, bool) {
	return o.value, o.present
}

func (o Option[T]) IsPresent() bool {
	return o.present
}

// OrElse returns the value if present, otherwise fallback
func (o Option[T]) OrElse(fallback T) T {
	if o.present {
		return o.value
	}
	return fallback
}

// OptionalString treats the empty string as absent
func OptionalString(s string) Option[string] {
	if s == "" {
		return None[string]()
	}
	return Some(s)
}
