package evaluator

// Env is a scoped environment for variable bindings.
// Lookups and assignments walk the parent chain.
type Env struct {
	bindings map[string]Value
	parent   *Env
}

// NewEnv creates a new environment with an optional parent scope.
func NewEnv(parent *Env) *Env {
	return &Env{
		bindings: make(map[string]Value),
		parent:   parent,
	}
}

// Child creates a new child scope whose parent is this environment.
func (e *Env) Child() *Env {
	return NewEnv(e)
}

// Get looks up a variable by name, traversing parent scopes.
func (e *Env) Get(name string) (Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if val, ok := cur.bindings[name]; ok {
			return val, true
		}
	}
	return nil, false
}

// Assign rebinds the nearest existing binding of name. It reports false
// when no scope defines name.
func (e *Env) Assign(name string, val Value) bool {
	for cur := e; cur != nil; cur = cur.parent {
		if _, ok := cur.bindings[name]; ok {
			cur.bindings[name] = val
			return true
		}
	}
	return false
}

// Declare binds a variable in this scope, shadowing any outer binding.
func (e *Env) Declare(name string, val Value) {
	e.bindings[name] = val
}

// Set is assign-or-declare: it rebinds the nearest binding or declares
// name in this scope.
func (e *Env) Set(name string, val Value) {
	if !e.Assign(name, val) {
		e.Declare(name, val)
	}
}

// Names returns the names bound directly in this scope.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	return names
}
