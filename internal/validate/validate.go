// Package validate provides schema validation middleware for request bodies,
// query strings and route parameters. Validation failures surface as
// *domain.ValidationError; the validation library never leaks past this
// package.
package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"github.com/shelterflex/shelterflex-backend/internal/domain"
	"github.com/shelterflex/shelterflex-backend/internal/server"
)

// Slot names the part of the request being validated. It doubles as the
// fallback field key for root-level problems.
type Slot string

const (
	SlotBody   Slot = "body"
	SlotQuery  Slot = "query"
	SlotParams Slot = "params"
)

// Defaulter is implemented by schemas that fill in defaults after decoding
// and before validation.
type Defaulter interface {
	ApplyDefaults()
}

// MessageProvider is implemented by schemas that override the built-in
// messages. Keys are "field.tag", e.g. "contractId.len".
type MessageProvider interface {
	Messages() map[string]string
}

type contextKey Slot

var engine = newEngine()

func newEngine() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// Body validates the JSON request body captured by server.BodyParser against
// T. An absent body is treated as an empty object.
func Body[T any](onError server.ErrorFunc) func(http.Handler) http.Handler {
	return middleware(SlotBody, onError, func(r *http.Request, dst *T) error {
		return decodeJSON(bodyBytes(r), dst)
	})
}

// Query validates the URL query string against T. Values are coerced to the
// field types.
func Query[T any](onError server.ErrorFunc) func(http.Handler) http.Handler {
	return middleware(SlotQuery, onError, func(r *http.Request, dst *T) error {
		in := make(map[string]any)
		for key, values := range r.URL.Query() {
			if len(values) == 1 {
				in[key] = values[0]
			} else {
				in[key] = values
			}
		}
		return decodeMap(SlotQuery, in, dst)
	})
}

// Params validates the chi route parameters against T.
func Params[T any](onError server.ErrorFunc) func(http.Handler) http.Handler {
	return middleware(SlotParams, onError, func(r *http.Request, dst *T) error {
		in := make(map[string]any)
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			for i, key := range rctx.URLParams.Keys {
				if key == "*" {
					continue
				}
				in[key] = rctx.URLParams.Values[i]
			}
		}
		return decodeMap(SlotParams, in, dst)
	})
}

// BodyOf returns the validated body stored by Body.
func BodyOf[T any](r *http.Request) (T, bool) { return valueOf[T](r.Context(), SlotBody) }

// QueryOf returns the validated query stored by Query.
func QueryOf[T any](r *http.Request) (T, bool) { return valueOf[T](r.Context(), SlotQuery) }

// ParamsOf returns the validated route parameters stored by Params.
func ParamsOf[T any](r *http.Request) (T, bool) { return valueOf[T](r.Context(), SlotParams) }

func valueOf[T any](ctx context.Context, slot Slot) (T, bool) {
	v, ok := ctx.Value(contextKey(slot)).(T)
	return v, ok
}

// Struct validates v and returns a *domain.ValidationError keyed with the
// fallback "_", or nil.
func Struct(v any) error {
	fields := domain.FieldErrors{}
	collect(fields, "_", v, engine.Struct(v))
	if len(fields) == 0 {
		return nil
	}
	return domain.NewValidationError(fields)
}

func middleware[T any](slot Slot, onError server.ErrorFunc, decode func(*http.Request, *T) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, err := run(slot, r, decode)
			if err != nil {
				onError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), contextKey(slot), v)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func run[T any](slot Slot, r *http.Request, decode func(*http.Request, *T) error) (T, error) {
	var v T
	fields := domain.FieldErrors{}

	if err := decode(r, &v); err != nil {
		var decodeErr *decodeError
		if !errors.As(err, &decodeErr) {
			return v, err
		}
		for _, issue := range decodeErr.issues {
			fields.Add(issue.field, string(slot), issue.message)
		}
		// A root that is not an object has no fields to check.
		if decodeErr.rootMismatch() {
			return v, domain.NewValidationError(fields)
		}
	}

	if d, ok := any(&v).(Defaulter); ok {
		d.ApplyDefaults()
	}

	if isStructType(reflect.TypeOf(v)) {
		collect(fields, string(slot), &v, engine.Struct(&v))
	}

	if len(fields) > 0 {
		return v, domain.NewValidationError(fields)
	}
	return v, nil
}

// decodeError collects decode failures attributable to fields.
type decodeError struct {
	issues []fieldIssue
}

type fieldIssue struct {
	field   string
	message string
}

func (e *decodeError) rootMismatch() bool {
	for _, i := range e.issues {
		if i.field == "" {
			return true
		}
	}
	return false
}

func (e *decodeError) Error() string {
	parts := make([]string, 0, len(e.issues))
	for _, i := range e.issues {
		parts = append(parts, i.field+": "+i.message)
	}
	return "decode failed: " + strings.Join(parts, "; ")
}

// bodyBytes returns the body captured by server.BodyParser. Requests that
// were not parsed as JSON validate as an empty object.
func bodyBytes(r *http.Request) []byte {
	raw, _ := server.Body(r.Context())
	return raw
}

func decodeJSON(raw []byte, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	t := reflect.TypeOf(dst).Elem()
	raw = exactKeys(raw, t)

	if bytes.Equal(raw, []byte("null")) && isStructType(t) {
		return &decodeError{issues: []fieldIssue{{message: "Expected object, received null"}}}
	}

	err := json.Unmarshal(raw, dst)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &domain.MalformedJSONError{Err: err}
	}

	issues := memberIssues(raw, t)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && len(issues) == 0 {
		issues = []fieldIssue{typeIssue("", typeErr)}
	} else if err != nil && typeErr == nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if len(issues) > 0 {
		return &decodeError{issues: issues}
	}
	return nil
}

func decodeMap(slot Slot, in map[string]any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           dst,
	})
	if err != nil {
		return fmt.Errorf("build %s decoder: %w", slot, err)
	}
	if err := dec.Decode(in); err != nil {
		return &decodeError{issues: []fieldIssue{{message: fmt.Sprintf("Invalid %s parameters", slot)}}}
	}
	return nil
}

// memberIssues decodes each top-level member of raw into its struct field
// separately, so every mistyped or null field is reported rather than only
// the first one encoding/json stops at.
func memberIssues(raw []byte, t reflect.Type) []fieldIssue {
	fields := jsonFields(t)
	if fields == nil {
		return nil
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil
	}

	var issues []fieldIssue
	for _, f := range fields {
		member, ok := members[f.name]
		if !ok {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(member), []byte("null")) {
			issues = append(issues, fieldIssue{
				field:   f.name,
				message: fmt.Sprintf("Expected %s, received null", expectedName(f.typ)),
			})
			continue
		}
		var typeErr *json.UnmarshalTypeError
		if err := json.Unmarshal(member, reflect.New(f.typ).Interface()); errors.As(err, &typeErr) {
			issues = append(issues, typeIssue(f.name, typeErr))
		}
	}
	return issues
}

type jsonField struct {
	name string
	typ  reflect.Type
}

// jsonFields lists the exported, JSON-named fields of struct type t, or nil
// when t is not a struct.
func jsonFields(t reflect.Type) []jsonField {
	if !isStructType(t) {
		return nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	fields := []jsonField{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields = append(fields, jsonField{name: name, typ: f.Type})
	}
	return fields
}

func isStructType(t reflect.Type) bool {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}

// exactKeys removes object members whose key matches a field only when case
// is ignored, so encoding/json binds exact keys alone. Nested structs,
// slices and arrays of structs are rewritten the same way.
func exactKeys(raw []byte, t reflect.Type) []byte {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return raw
		}
		changed := false
		for i, e := range elems {
			if out := exactKeys(e, t.Elem()); !bytes.Equal(out, e) {
				elems[i] = out
				changed = true
			}
		}
		if !changed {
			return raw
		}
		out, err := json.Marshal(elems)
		if err != nil {
			return raw
		}
		return out

	case reflect.Struct:
		var members map[string]json.RawMessage
		if err := json.Unmarshal(raw, &members); err != nil || members == nil {
			return raw
		}
		fields := jsonFields(t)
		exact := make(map[string]reflect.Type, len(fields))
		for _, f := range fields {
			exact[f.name] = f.typ
		}

		changed := false
		for key, member := range members {
			if typ, ok := exact[key]; ok {
				if out := exactKeys(member, typ); !bytes.Equal(out, member) {
					members[key] = out
					changed = true
				}
				continue
			}
			for name := range exact {
				if strings.EqualFold(key, name) {
					delete(members, key)
					changed = true
					break
				}
			}
		}
		if !changed {
			return raw
		}
		out, err := json.Marshal(members)
		if err != nil {
			return raw
		}
		return out
	}
	return raw
}

func typeIssue(prefix string, err *json.UnmarshalTypeError) fieldIssue {
	field := err.Field
	if prefix != "" && field != "" {
		field = prefix + "." + field
	} else if prefix != "" {
		field = prefix
	}
	return fieldIssue{
		field:   field,
		message: fmt.Sprintf("Expected %s, received %s", expectedName(err.Type), receivedName(err.Value)),
	}
}

func expectedName(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	}
	return t.Kind().String()
}

func receivedName(value string) string {
	word, _, _ := strings.Cut(value, " ")
	if word == "bool" {
		return "boolean"
	}
	return word
}
