package resolve

// Func adapts a plain function into an instruction. The function is stepped
// like any Execute body and may spawn, await and report done.
type Func struct {
	Node
	Label string
	Fn    func(rc *Context) (bool, error)
}

// NewFunc returns a Func instruction.
func NewFunc(label string, fn func(rc *Context) (bool, error)) *Func {
	return &Func{Label: label, Fn: fn}
}

// Once wraps a single-step body.
func Once(label string, fn func(rc *Context) error) *Func {
	return NewFunc(label, func(rc *Context) (bool, error) {
		return true, fn(rc)
	})
}

func (f *Func) Name() string {
	if f.Label == "" {
		return "func"
	}
	return f.Label
}

func (f *Func) Execute(rc *Context) (bool, error) {
	if f.Fn == nil {
		return true, nil
	}
	return f.Fn(rc)
}
