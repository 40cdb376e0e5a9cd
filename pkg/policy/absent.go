package policy

import "reflect"

// IsAbsent reports whether v holds no object: a nil pointer, map, slice,
// channel, function or interface. Value types are never absent.
func IsAbsent[T any](v T) bool {
	a := any(v)
	if a == nil {
		return true
	}
	rv := reflect.ValueOf(a)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}
