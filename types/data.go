package types

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/ohler55/ojg/jp"
	"github.com/spf13/cast"
)

const (
	RootPath = "$"
)

var (
	_ json.Marshaler   = Data{}
	_ json.Unmarshaler = &Data{}
)

/**
 * Data is the immutable value every state reads and produces.
 * It wraps a JSON-like tree: map[string]any, []any, strings, bools,
 * numbers, time.Time, time.Duration and nil.
 * All JSONPath handling of the engine lives in this file.
 */
type Data struct {
	v any
}

// NewData wraps v, unwrapping any Data found inside so wrappers never nest.
func NewData(v any) Data {
	return Data{v: normalize(v)}
}

// ParseData decodes JSON text into Data.
func ParseData(b []byte) (Data, error) {
	d := Data{}
	if err := d.UnmarshalJSON(b); err != nil {
		return Data{}, errors.Trace(err)
	}
	return d, nil
}

type DataKind int

const (
	KindNull DataKind = iota
	KindBool
	KindNumber
	KindString
	KindTimestamp
	KindDuration
	KindObject
	KindArray
)

func (d Data) Kind() DataKind {
	switch d.v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case string:
		return KindString
	case time.Time:
		return KindTimestamp
	case time.Duration:
		return KindDuration
	case map[string]any:
		return KindObject
	case []any:
		return KindArray
	}
	if _, ok := toNumber(d.v); ok {
		return KindNumber
	}
	return KindNull
}

func (d Data) IsEmpty() bool {
	return d.v == nil
}

// Value returns a deep copy of the wrapped tree.
func (d Data) Value() any {
	return normalize(d.v)
}

func (d Data) String() string {
	b, err := json.Marshal(d.v)
	if err != nil {
		return "<invalid data>"
	}
	return string(b)
}

func (d Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.v)
}

func (d *Data) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return errors.Annotatef(err, "decode data")
	}
	d.v = normalize(v)
	return nil
}

// Query returns the value under path or empty Data when it is absent.
func (d Data) Query(path string) Data {
	v, _ := d.Lookup(path)
	return v
}

/**
 * Lookup works like Query but tells an absent path apart from a
 * present null value. An invalid path is reported as absent.
 * Indefinite paths (wildcards, filters, slices) always return an array.
 */
func (d Data) Lookup(path string) (Data, bool) {
	x, err := compilePath(path)
	if err != nil {
		return Data{}, false
	}
	if isRootPath(x) {
		return d, d.v != nil
	}
	if d.v == nil {
		return Data{}, false
	}

	results := x.Get(d.v)
	if !isDefinitePath(x) {
		return NewData(results), true
	}
	if len(results) == 0 {
		return Data{}, false
	}
	return NewData(results[0]), true
}

// Equal compares two trees structurally, treating numbers by value.
func (d Data) Equal(other Data) bool {
	return equalValues(d.v, other.v)
}

/**
 * Transform selects path from d and expands template against it.
 * String leaves starting with `$$` are resolved against context,
 * leaves starting with `$` against the selected value. Object keys
 * ending in `.$` are resolved the same way and lose the suffix.
 */
func (d Data) Transform(path string, template Data, context Data) (Data, error) {
	source := d.Query(path)
	out, err := expandTemplate(template.v, source, context)
	if err != nil {
		return Data{}, errors.Trace(err)
	}
	return Data{v: out}, nil
}

// Merge returns a copy of d with value placed at resultPath.
func (d Data) Merge(resultPath string, value Data) (Data, error) {
	x, err := compilePath(resultPath)
	if err != nil {
		return Data{}, errors.Trace(err)
	}
	if isRootPath(x) {
		return value, nil
	}
	if !isDefinitePath(x) {
		return Data{}, errors.NotValidf("result path %s", resultPath)
	}

	var base map[string]any
	switch t := normalize(d.v).(type) {
	case nil:
		base = map[string]any{}
	case map[string]any:
		base = t
	default:
		return Data{}, errors.NotValidf("result path %s on %T input", resultPath, t)
	}
	if err := x.Set(base, normalize(value.v)); err != nil {
		return Data{}, errors.Annotatef(err, "set %s", resultPath)
	}
	return Data{v: base}, nil
}

// Cast converts the wrapped value into T.
func Cast[T any](d Data) (T, error) {
	var zero T
	var (
		out any
		err error
	)

	switch any(zero).(type) {
	case string:
		out, err = cast.ToStringE(d.v)
	case bool:
		out, err = cast.ToBoolE(d.v)
	case int:
		out, err = cast.ToIntE(d.v)
	case int32:
		out, err = cast.ToInt32E(d.v)
	case int64:
		out, err = cast.ToInt64E(d.v)
	case uint:
		out, err = cast.ToUintE(d.v)
	case float32:
		out, err = cast.ToFloat32E(d.v)
	case float64:
		out, err = cast.ToFloat64E(d.v)
	case time.Time:
		out, err = cast.ToTimeE(d.v)
	case time.Duration:
		out, err = cast.ToDurationE(d.v)
	case Data:
		out = d
	default:
		if _, isAny := any(&zero).(*any); isAny {
			out = d.Value()
			break
		}
		return decodeInto[T](d)
	}
	if err != nil {
		return zero, errors.Annotatef(err, "cast %s to %T", d.String(), zero)
	}
	return out.(T), nil
}

func decodeInto[T any](d Data) (T, error) {
	var out T
	b, err := json.Marshal(d.v)
	if err != nil {
		return out, errors.Annotatef(err, "marshal data")
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, errors.Annotatef(err, "decode %s into %T", string(b), out)
	}
	return out, nil
}

var pathCache sync.Map

func compilePath(path string) (jp.Expr, error) {
	if path == "" {
		path = RootPath
	}
	if x, ok := pathCache.Load(path); ok {
		return x.(jp.Expr), nil
	}
	if !strings.HasPrefix(path, RootPath) {
		return nil, errors.NotValidf("path %q", path)
	}
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, errors.Annotatef(err, "parse path %q", path)
	}
	pathCache.Store(path, x)
	return x, nil
}

// ValidatePath reports whether path is a usable JSONPath.
func ValidatePath(path string) error {
	_, err := compilePath(path)
	return err
}

func isRootPath(x jp.Expr) bool {
	if len(x) != 1 {
		return false
	}
	_, ok := x[0].(jp.Root)
	return ok
}

func isDefinitePath(x jp.Expr) bool {
	for _, frag := range x {
		switch frag.(type) {
		case jp.Root, jp.At, jp.Child, jp.Nth:
		default:
			return false
		}
	}
	return true
}

func expandTemplate(node any, source, context Data) (any, error) {
	switch t := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, value := range t {
			if name, ok := strings.CutSuffix(key, ".$"); ok {
				expr, isString := value.(string)
				if !isString {
					return nil, errors.NotValidf("field %s must be a path", key)
				}
				resolved, err := resolveReference(expr, source, context)
				if err != nil {
					return nil, errors.Annotatef(err, "field %s", key)
				}
				out[name] = resolved
				continue
			}
			expanded, err := expandTemplate(value, source, context)
			if err != nil {
				return nil, errors.Trace(err)
			}
			out[key] = expanded
		}
		return out, nil

	case []any:
		out := make([]any, 0, len(t))
		for _, value := range t {
			expanded, err := expandTemplate(value, source, context)
			if err != nil {
				return nil, errors.Trace(err)
			}
			out = append(out, expanded)
		}
		return out, nil

	case string:
		if strings.HasPrefix(t, RootPath) {
			return resolveReference(t, source, context)
		}
		return t, nil
	}
	return node, nil
}

func resolveReference(expr string, source, context Data) (any, error) {
	if strings.HasPrefix(expr, "States.") {
		return nil, errors.NotImplementedf("intrinsic function %s", expr)
	}
	target := source
	if strings.HasPrefix(expr, "$$") {
		target = context
		expr = expr[1:]
	}
	if _, err := compilePath(expr); err != nil {
		return nil, errors.Trace(err)
	}
	return target.Query(expr).v, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, time.Time, time.Duration,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return t
	case Data:
		return t.v
	case *Data:
		if t == nil {
			return nil
		}
		return t.v
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalize(e)
		}
		return m
	case []any:
		a := make([]any, len(t))
		for i, e := range t {
			a[i] = normalize(e)
		}
		return a
	case map[string]Data:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalize(e.v)
		}
		return m
	case []Data:
		a := make([]any, len(t))
		for i, e := range t {
			a[i] = normalize(e.v)
		}
		return a
	}
	return normalizeReflect(reflect.ValueOf(v))
}

func normalizeReflect(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		a := make([]any, rv.Len())
		for i := range a {
			a[i] = normalize(rv.Index(i).Interface())
		}
		return a
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = normalize(iter.Value().Interface())
			}
			return m
		}
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}

	// structs and anything else go through their JSON form
	b, err := json.Marshal(rv.Interface())
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return normalize(out)
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return cast.ToFloat64(t), true
	}
	return 0, false
}

func equalValues(a, b any) bool {
	if an, ok := toNumber(a); ok {
		bn, ok := toNumber(b)
		return ok && an == bn
	}

	switch at := a.(type) {
	case map[string]any:
		bt, ok := b.(map[string]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for k, av := range at {
			bv, exists := bt[k]
			if !exists || !equalValues(av, bv) {
				return false
			}
		}
		return true

	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !equalValues(at[i], bt[i]) {
				return false
			}
		}
		return true

	case time.Time:
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return a == b
}
