// Package hostval converts between Go values and dynamic values.
//
// FromGo accepts the shapes a caller naturally holds: integers, floats,
// byte slices, strings, maps with string keys, slices and structs.
// ToGo produces int64, float64, []byte, map[string]any and []any.
package hostval

import (
	"cmp"
	"reflect"
	"slices"

	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/value"
)

const maxDepth = 256

// FromGo converts x to a dynamic value. Strings become byte strings
// without a terminator, bools become 0 or 1, map members are ordered by
// key and struct members follow field order. A struct field tag
// `typeinf:"name"` renames the member and `typeinf:"-"` skips it.
func FromGo(x any) (value.Value, error) {
	return fromGo(reflect.ValueOf(x), nil, 0)
}

func fromGo(rv reflect.Value, path []string, depth int) (value.Value, error) {
	if depth > maxDepth {
		return value.Nil, errors.LimitExceeded(errors.PhasePack, path, "host value depth", maxDepth)
	}
	if !rv.IsValid() {
		return value.Nil, nil
	}
	if v, ok := rv.Interface().(value.Value); ok {
		return v, nil
	}

	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return value.Nil, nil
		}
		return fromGo(rv.Elem(), path, depth+1)
	case reflect.Bool:
		if rv.Bool() {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return value.Uint(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return value.Float(rv.Float()), nil
	case reflect.String:
		return value.Bytes([]byte(rv.String())), nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return value.Bytes(b), nil
		}
		vs := make([]value.Value, rv.Len())
		for i := range vs {
			v, err := fromGo(rv.Index(i), path, depth+1)
			if err != nil {
				return value.Nil, err
			}
			vs[i] = v
		}
		return value.Positional(vs...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := rv.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) })
		members := make([]value.Member, len(keys))
		for i, k := range keys {
			name := k.String()
			v, err := fromGo(rv.MapIndex(k), append(path, name), depth+1)
			if err != nil {
				return value.Nil, err
			}
			members[i] = value.Field(name, v)
		}
		return value.Aggregate(members...), nil
	case reflect.Struct:
		return fromStruct(rv, path, depth)
	}
	return value.Nil, errors.New(errors.PhasePack, errors.KindUnsupported).
		Path(path...).Type(rv.Type().String()).Detail("no dynamic value form").Build()
}

func fromStruct(rv reflect.Value, path []string, depth int) (value.Value, error) {
	rt := rv.Type()
	members := make([]value.Member, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("typeinf"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		v, err := fromGo(rv.Field(i), append(path, name), depth+1)
		if err != nil {
			return value.Nil, err
		}
		members = append(members, value.Field(name, v))
	}
	return value.Aggregate(members...), nil
}

// ToGo converts v to plain Go values. Aggregates whose members all carry
// names become map[string]any; other aggregates become []any.
func ToGo(v value.Value) any {
	switch v.Kind() {
	case value.KindInt:
		return v.Int()
	case value.KindFloat:
		return v.Float()
	case value.KindBytes:
		return v.Bytes()
	case value.KindAggregate:
		if v.IsNamed() {
			m := make(map[string]any, v.Len())
			for _, mem := range v.Members() {
				m[mem.Name] = ToGo(mem.Value)
			}
			return m
		}
		out := make([]any, v.Len())
		for i := range out {
			out[i] = ToGo(v.At(i))
		}
		return out
	default:
		return nil
	}
}
