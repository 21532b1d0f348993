package resolve

import (
	"context"
	"fmt"
	"sync"
)

// Registry keeps one executor per battle and tracks which one is bound for
// the package-level convenience wrappers.
type Registry struct {
	mu        sync.Mutex
	executors map[string]*Executor
	bound     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]*Executor)}
}

// Register installs ex for battleID, replacing any previous executor.
func (r *Registry) Register(battleID string, ex *Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[battleID] = ex
	if r.bound == "" {
		r.bound = battleID
	}
}

// Unregister drops the executor for battleID.
func (r *Registry) Unregister(battleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.executors, battleID)
	if r.bound == battleID {
		r.bound = ""
	}
}

// Lookup returns the executor for battleID.
func (r *Registry) Lookup(battleID string) (*Executor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.executors[battleID]
	return ex, ok
}

// Bind selects the executor used by Current.
func (r *Registry) Bind(battleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.executors[battleID]; !ok {
		return fmt.Errorf("battle %q: %w", battleID, ErrNoExecutor)
	}
	r.bound = battleID
	return nil
}

// Current returns the bound executor.
func (r *Registry) Current() (*Executor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.executors[r.bound]
	if !ok {
		return nil, ErrNoExecutor
	}
	return ex, nil
}

// Default is the process-wide registry behind Submit, RunUntilComplete and Reset.
var Default = NewRegistry()

// Submit pushes in onto the bound executor of the default registry.
func Submit(in Instruction) error {
	ex, err := Default.Current()
	if err != nil {
		return err
	}
	return ex.Submit(in)
}

// RunUntilComplete runs the bound executor of the default registry.
func RunUntilComplete(ctx context.Context) (Stats, error) {
	ex, err := Default.Current()
	if err != nil {
		return Stats{}, err
	}
	return ex.RunUntilComplete(ctx)
}

// Reset clears the bound executor of the default registry.
func Reset() error {
	ex, err := Default.Current()
	if err != nil {
		return err
	}
	return ex.Reset()
}
