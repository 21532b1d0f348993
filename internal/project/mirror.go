package project

import (
	"encoding/json"
	"sort"
	"sync"
)

// Object is a mirror node: a field set kept in step with snapshots, plus the
// behavior bound to its kind when it was fabricated.
type Object struct {
	kind     string
	fields   map[string]any // scalars, *Object, *List
	behavior any
}

// NewObject returns an empty mirror node of the given kind, with no behavior.
// Use Shapes.New for a node with behavior.
func NewObject(kind string) *Object {
	return &Object{kind: kind, fields: make(map[string]any)}
}

func (o *Object) Kind() string { return o.kind }

// Behavior returns the capability value bound for this node's kind, or nil.
func (o *Object) Behavior() any { return o.behavior }

func (o *Object) Get(key string) (any, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.fields[key]
	return ok
}

func (o *Object) Set(key string, v any) { o.fields[key] = v }

func (o *Object) Delete(key string) { delete(o.fields, key) }

// Keys returns the field names in sorted order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.fields))
	for k := range o.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (o *Object) Len() int { return len(o.fields) }

func (o *Object) Int(key string) int {
	switch n := o.fields[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func (o *Object) String(key string) string {
	s, _ := o.fields[key].(string)
	return s
}

func (o *Object) Bool(key string) bool {
	b, _ := o.fields[key].(bool)
	return b
}

func (o *Object) Object(key string) *Object {
	c, _ := o.fields[key].(*Object)
	return c
}

func (o *Object) List(key string) *List {
	l, _ := o.fields[key].(*List)
	return l
}

// Plain converts the node back to pure data, kind included.
func (o *Object) Plain() map[string]any {
	out := make(map[string]any, len(o.fields)+1)
	if o.kind != "" {
		out[KindKey] = o.kind
	}
	for k, v := range o.fields {
		out[k] = plain(v)
	}
	return out
}

func (o *Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Plain())
}

// List is a mirror array.
type List struct {
	items []any
}

func (l *List) Len() int { return len(l.items) }

func (l *List) At(i int) any { return l.items[i] }

// Object returns element i when it is a node.
func (l *List) Object(i int) *Object {
	o, _ := l.items[i].(*Object)
	return o
}

// Objects returns the node elements in order.
func (l *List) Objects() []*Object {
	var out []*Object
	for _, it := range l.items {
		if o, ok := it.(*Object); ok {
			out = append(out, o)
		}
	}
	return out
}

// Find returns the node whose id field equals id.
func (l *List) Find(id any) *Object {
	for _, it := range l.items {
		if o, ok := it.(*Object); ok {
			if v, ok := o.fields["id"]; ok && v == id {
				return o
			}
		}
	}
	return nil
}

func (l *List) Plain() []any {
	out := make([]any, len(l.items))
	for i, v := range l.items {
		out[i] = plain(v)
	}
	return out
}

func (l *List) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Plain())
}

func plain(v any) any {
	switch t := v.(type) {
	case *Object:
		return t.Plain()
	case *List:
		return t.Plain()
	default:
		return v
	}
}

// Binder produces the capability value for a mirror node of one kind. The
// value usually wraps the node so its methods read live mirror fields.
type Binder func(*Object) any

// Shapes maps entity kinds to behavior binders.
type Shapes struct {
	mu      sync.RWMutex
	binders map[string]Binder
}

func NewShapes() *Shapes {
	return &Shapes{binders: make(map[string]Binder)}
}

// Register installs the binder for kind, replacing any previous one.
func (s *Shapes) Register(kind string, b Binder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.binders[kind] = b
}

// New fabricates an empty mirror node with the behavior for kind.
func (s *Shapes) New(kind string) *Object {
	o := NewObject(kind)
	s.bind(o)
	return o
}

func (s *Shapes) bind(o *Object) {
	if s == nil || o.kind == "" {
		return
	}
	s.mu.RLock()
	b, ok := s.binders[o.kind]
	s.mu.RUnlock()
	if ok {
		o.behavior = b(o)
	}
}
