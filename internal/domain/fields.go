package domain

import (
	"maps"
	"slices"
	"strings"
)

// FieldErrors maps a field path (e.g. "contractId", "args.0") to the first
// validation message reported for it.
type FieldErrors map[string]string

// Add records message for field unless the field already has one.
// An empty field is stored under fallback.
func (f FieldErrors) Add(field, fallback, message string) {
	if field == "" {
		field = fallback
	}
	if _, ok := f[field]; ok {
		return
	}
	f[field] = message
}

// Details converts f into the envelope's details map.
func (f FieldErrors) Details() map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// String renders the fields in a stable order, for logs.
func (f FieldErrors) String() string {
	keys := slices.Sorted(maps.Keys(f))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return strings.Join(parts, "; ")
}
