package mock

// registry keeps expectations in registration order; the first match wins
type registry[T Spec] struct {
	entries []T
}

func (r *registry[T]) add(s T) T {
	r.entries = append(r.entries, s)
	return s
}

// find returns the first entry of schema and kind accepted by check. An
// entry with a builder error fails the lookup as soon as it is reached.
func (r *registry[T]) find(schema string, kind Kind, check func(T) bool) (T, bool, error) {
	var zero T
	for _, s := range r.entries {
		if s.SchemaName() != schema || s.Kind() != kind {
			continue
		}
		if err := s.Err(); err != nil {
			return zero, false, err
		}
		if check(s) {
			return s, true, nil
		}
	}
	return zero, false, nil
}

func (r *registry[T]) all() []Spec {
	out := make([]Spec, len(r.entries))
	for i, s := range r.entries {
		out[i] = s
	}
	return out
}

// defaultsRegistry holds one default-values mock per entity
type defaultsRegistry struct {
	bySchema map[string]*DefaultValuesMock
	order    []string
}

func (r *defaultsRegistry) getOrCreate(schema string) *DefaultValuesMock {
	if m, ok := r.bySchema[schema]; ok {
		return m
	}
	if r.bySchema == nil {
		r.bySchema = make(map[string]*DefaultValuesMock)
	}
	m := &DefaultValuesMock{spec: newSpec(schema, DefaultValues)}
	r.bySchema[schema] = m
	r.order = append(r.order, schema)
	return m
}

func (r *defaultsRegistry) get(schema string) (*DefaultValuesMock, bool) {
	m, ok := r.bySchema[schema]
	return m, ok
}

func (r *defaultsRegistry) all() []Spec {
	out := make([]Spec, len(r.order))
	for i, schema := range r.order {
		out[i] = r.bySchema[schema]
	}
	return out
}
