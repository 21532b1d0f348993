package project

import (
	"errors"
	"fmt"
)

// ErrNotObject is returned when the snapshot root is not an object.
var ErrNotObject = errors.New("snapshot root is not an object")

// IDKey is the field lists are matched on.
const IDKey = "id"

// Reconcile merges snapshot into mirror in place. Scalars overwrite. Objects
// merge into the existing node when its kind matches, otherwise a new node is
// fabricated through shapes. Lists whose elements all carry an id are matched
// by id, so existing nodes keep their identity when elements move; other lists
// merge by position. Mirror fields missing from the snapshot are removed.
//
// shapes may be nil, in which case fabricated nodes carry no behavior.
func Reconcile(snapshot any, mirror *Object, shapes *Shapes) error {
	src, ok := snapshot.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: got %T", ErrNotObject, snapshot)
	}
	if mirror == nil {
		return errors.New("reconcile into nil mirror")
	}
	r := reconciler{shapes: shapes}
	if kind, _ := src[KindKey].(string); kind != "" && mirror.kind != kind {
		mirror.kind = kind
		mirror.behavior = nil
		shapes.bind(mirror)
	}
	r.object(src, mirror)
	return nil
}

type reconciler struct {
	shapes *Shapes
}

func (r reconciler) object(src map[string]any, dst *Object) {
	for k, v := range src {
		if k == KindKey {
			continue
		}
		dst.fields[k] = r.merge(dst.fields[k], v)
	}
	for k := range dst.fields {
		if _, ok := src[k]; !ok {
			delete(dst.fields, k)
		}
	}
}

func (r reconciler) merge(old, v any) any {
	switch src := v.(type) {
	case map[string]any:
		kind, _ := src[KindKey].(string)
		if o, ok := old.(*Object); ok && o.kind == kind {
			r.object(src, o)
			return o
		}
		return r.fabricate(kind, src)
	case []any:
		l, ok := old.(*List)
		if !ok {
			l = &List{}
		}
		r.list(src, l)
		return l
	default:
		return v
	}
}

func (r reconciler) fabricate(kind string, src map[string]any) *Object {
	o := r.shapes.New(kind)
	r.object(src, o)
	return o
}

func (r reconciler) list(src []any, dst *List) {
	if keyed(src) {
		r.listByID(src, dst)
		return
	}
	items := make([]any, len(src))
	for i, v := range src {
		var old any
		if i < len(dst.items) {
			old = dst.items[i]
		}
		items[i] = r.merge(old, v)
	}
	dst.items = items
}

func (r reconciler) listByID(src []any, dst *List) {
	existing := make(map[any]*Object, len(dst.items))
	for _, it := range dst.items {
		if o, ok := it.(*Object); ok {
			if id, ok := o.fields[IDKey]; ok && scalarID(id) {
				if _, dup := existing[id]; !dup {
					existing[id] = o
				}
			}
		}
	}
	items := make([]any, len(src))
	for i, v := range src {
		m := v.(map[string]any)
		id := m[IDKey]
		kind, _ := m[KindKey].(string)
		if o, ok := existing[id]; ok && o.kind == kind {
			delete(existing, id)
			r.object(m, o)
			items[i] = o
			continue
		}
		items[i] = r.fabricate(kind, m)
	}
	dst.items = items
}

// keyed reports whether every element is an object with a scalar id.
func keyed(src []any) bool {
	if len(src) == 0 {
		return false
	}
	for _, v := range src {
		m, ok := v.(map[string]any)
		if !ok {
			return false
		}
		id, ok := m[IDKey]
		if !ok || !scalarID(id) {
			return false
		}
	}
	return true
}

func scalarID(v any) bool {
	switch v.(type) {
	case string, int, int64, float64, bool:
		return true
	}
	return false
}
