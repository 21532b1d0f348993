// Package project copies authoritative battle state into plain data and merges
// that data into a long-lived presentation mirror.
package project

import (
	"encoding"
	"math"
	"reflect"
	"strings"
)

// KindKey carries the entity kind in a snapshot object.
const KindKey = "$kind"

// Kinded values advertise the kind used to pick mirror behavior.
type Kinded interface {
	Kind() string
}

var (
	kindedType = reflect.TypeOf((*Kinded)(nil)).Elem()
	textType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Project returns a fresh pure-data copy of root: map[string]any for structs
// and string-keyed maps, []any for slices and arrays, and bool, int, float64 or
// string for scalars. Unsigned values too large for int stay uint64.
//
// Struct fields are dropped when they are unexported, tagged project:"-" or
// json:"-", or hold a func or chan. Methods are never read. A reference that
// leads back into an object still being copied is omitted; a second reference
// to an object already copied reuses that copy.
func Project(root any) any {
	p := &projector{memo: make(map[memoKey]*memoEntry)}
	out, _ := p.value(reflect.ValueOf(root))
	return out
}

type memoKey struct {
	ptr uintptr
	len int // slices only; subslices share ptr
	typ reflect.Type
}

type memoEntry struct {
	out      any
	visiting bool
}

type projector struct {
	memo map[memoKey]*memoEntry
}

// value converts v; ok is false when v must be omitted.
func (p *projector) value(v reflect.Value) (any, bool) {
	if !v.IsValid() {
		return nil, true
	}
	if v.CanInterface() && v.Kind() != reflect.Pointer && v.Type().Implements(textType) {
		if b, err := v.Interface().(encoding.TextMarshaler).MarshalText(); err == nil {
			return string(b), true
		}
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, true
		}
		return p.value(v.Elem())
	case reflect.Pointer:
		if v.IsNil() {
			return nil, true
		}
		return p.memoized(v, func() any { return p.pointee(v) })
	case reflect.Struct:
		return p.object(v, v), true
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		if v.IsNil() {
			return map[string]any{}, true
		}
		return p.memoized(v, func() any { return p.mapping(v) })
	case reflect.Slice:
		if v.IsNil() {
			return []any{}, true
		}
		return p.memoized(v, func() any { return p.list(v) })
	case reflect.Array:
		return p.list(v), true
	case reflect.Bool:
		return v.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt {
			return u, true
		}
		return int(u), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.String:
		return v.String(), true
	default:
		// func, chan, complex, unsafe pointer
		return nil, false
	}
}

// memoized builds the copy of a reference type once. While the build is in
// progress the reference counts as a back-edge and is omitted.
func (p *projector) memoized(v reflect.Value, build func() any) (any, bool) {
	key := memoKey{ptr: v.Pointer(), typ: v.Type()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	if e, ok := p.memo[key]; ok {
		if e.visiting {
			return nil, false
		}
		return e.out, true
	}
	e := &memoEntry{visiting: true}
	p.memo[key] = e
	e.out = build()
	e.visiting = false
	return e.out, true
}

func (p *projector) pointee(ptr reflect.Value) any {
	elem := ptr.Elem()
	if elem.Kind() == reflect.Struct {
		return p.object(elem, ptr)
	}
	out, ok := p.value(elem)
	if !ok {
		return nil
	}
	return out
}

// object copies a struct. holder is the value whose method set is checked for
// Kinded (the pointer when the struct was reached through one).
func (p *projector) object(v, holder reflect.Value) map[string]any {
	out := make(map[string]any, v.NumField()+1)
	if kind, ok := kindOf(holder); ok {
		out[KindKey] = kind
	}
	p.fields(v, out)
	return out
}

func (p *projector) fields(v reflect.Value, out map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, skip := fieldName(f)
		if skip {
			continue
		}
		fv := v.Field(i)
		if f.Anonymous && !hasTagName(f) {
			inner := fv
			if inner.Kind() == reflect.Pointer {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct {
				p.fields(inner, out)
				continue
			}
		}
		switch fv.Kind() {
		case reflect.Func, reflect.Chan, reflect.UnsafePointer:
			continue
		}
		if val, ok := p.value(fv); ok {
			out[name] = val
		}
	}
}

func (p *projector) mapping(v reflect.Value) any {
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		if val, ok := p.value(iter.Value()); ok {
			out[iter.Key().String()] = val
		}
	}
	return out
}

func (p *projector) list(v reflect.Value) []any {
	out := make([]any, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		if val, ok := p.value(v.Index(i)); ok {
			out = append(out, val)
		}
	}
	return out
}

func kindOf(v reflect.Value) (string, bool) {
	if !v.CanInterface() {
		return "", false
	}
	if v.Type().Implements(kindedType) {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return "", false
		}
		return v.Interface().(Kinded).Kind(), true
	}
	return "", false
}

// fieldName applies the export and tag rules.
func fieldName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", true
	}
	if f.Tag.Get("project") == "-" {
		return "", true
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, false
	}
	return f.Name, false
}

func hasTagName(f reflect.StructField) bool {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	return name != ""
}
