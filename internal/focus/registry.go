package focus

// Registry holds the focusable elements of a screen by section. Sections come
// out in registration order, so register nav first and the bottom bar last.
type Registry struct {
	order []string
	els   map[string][]Element
}

func NewRegistry() *Registry {
	return &Registry{els: make(map[string][]Element)}
}

// Set replaces the elements of a section, registering it on first use.
func (r *Registry) Set(section string, els ...Element) {
	if _, ok := r.els[section]; !ok {
		r.order = append(r.order, section)
	}
	r.els[section] = append([]Element(nil), els...)
}

// Add appends elements to a section.
func (r *Registry) Add(section string, els ...Element) {
	if _, ok := r.els[section]; !ok {
		r.order = append(r.order, section)
	}
	r.els[section] = append(r.els[section], els...)
}

// Remove drops a section.
func (r *Registry) Remove(section string) {
	if _, ok := r.els[section]; !ok {
		return
	}
	delete(r.els, section)
	for i, s := range r.order {
		if s == section {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Reset forgets every section.
func (r *Registry) Reset() {
	r.order = nil
	r.els = make(map[string][]Element)
}

func (r *Registry) Sections() []Section {
	out := make([]Section, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, Section{Name: name, Elements: r.els[name]})
	}
	return out
}

// Grid builds a grid from the current sections.
func (r *Registry) Grid() *Grid {
	return Rebuild(r.Sections()...)
}
