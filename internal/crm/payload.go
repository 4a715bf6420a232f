package crm

// Payload helpers. Pointer arguments distinguish "not provided" (nil, never
// sent) from "set to empty".

func putRef(p map[string]any, key string, id int) {
	if id > 0 {
		p[key] = id
	}
}

func putRefPtr(p map[string]any, key string, id *int) {
	if id != nil && *id > 0 {
		p[key] = *id
	}
}

func putStr(p map[string]any, key string, v *string) {
	if v != nil {
		p[key] = *v
	}
}

func putFloat(p map[string]any, key string, v *float64) {
	if v != nil {
		p[key] = *v
	}
}

func putInt(p map[string]any, key string, v *int) {
	if v != nil {
		p[key] = *v
	}
}

func putBool(p map[string]any, key string, v *bool) {
	if v != nil {
		p[key] = *v
	}
}

// Ptr is a convenience for building patches.
func Ptr[T any](v T) *T { return &v }

// valueOr dereferences v, or returns the zero value when v is nil.
func valueOr[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}
