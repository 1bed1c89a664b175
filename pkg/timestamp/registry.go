package timestamp

// Registry is an immutable, ordered list of grammars. Order is precedence:
// grammars are tried top to bottom and the first successful one wins.
type Registry struct {
	grammars []*Grammar
	byName   map[string]*Grammar
}

var builtin = NewRegistry()

// Builtin returns the registry of built-in grammars.
func Builtin() *Registry {
	return builtin
}

// NewRegistry returns the built-in grammars followed by extra, which therefore
// have the lowest precedence. An extra grammar whose name is already taken is
// ignored.
func NewRegistry(extra ...*Grammar) *Registry {
	r := &Registry{
		grammars: make([]*Grammar, 0, len(builtinGrammars)+len(extra)),
		byName:   make(map[string]*Grammar, len(builtinGrammars)+len(extra)),
	}
	for _, g := range builtinGrammars {
		r.add(g)
	}
	for _, g := range extra {
		if g != nil {
			r.add(g)
		}
	}
	return r
}

func (r *Registry) add(g *Grammar) {
	if _, dup := r.byName[g.Name]; dup {
		return
	}
	r.byName[g.Name] = g
	r.grammars = append(r.grammars, g)
}

// Grammars returns the grammars in precedence order.
func (r *Registry) Grammars() []*Grammar {
	out := make([]*Grammar, len(r.grammars))
	copy(out, r.grammars)
	return out
}

// Names returns the grammar identifiers in precedence order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.grammars))
	for i, g := range r.grammars {
		names[i] = g.Name
	}
	return names
}

// Lookup returns the grammar with the given name.
func (r *Registry) Lookup(name string) (*Grammar, bool) {
	g, ok := r.byName[name]
	return g, ok
}

// Len returns the number of grammars.
func (r *Registry) Len() int {
	return len(r.grammars)
}
