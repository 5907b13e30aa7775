package types

// Resolver finds declarations outside an index, such as imported names.
type Resolver interface {
	ResolveType(from *Index, name string) (*Decl, *Index, bool)
}

// Resolve finds a declaration locally, then through r.
func (ix *Index) Resolve(name string, r Resolver) (*Decl, *Index, bool) {
	if d, ok := ix.decls[name]; ok {
		return d, ix, true
	}
	if r != nil {
		return r.ResolveType(ix, name)
	}
	return nil, nil, false
}

// PropertiesOf flattens the properties of an object-like type: object
// literals, interfaces with their extends chain, aliases, intersections and
// classes. A later property replaces an earlier one of the same name in place.
// ok is false when t is not object-like or a reference cannot be resolved.
func (ix *Index) PropertiesOf(t *Type, r Resolver) ([]Property, bool) {
	return ix.properties(t, r, make(map[*Decl]bool))
}

func (ix *Index) properties(t *Type, r Resolver, visited map[*Decl]bool) ([]Property, bool) {
	if t == nil {
		return nil, false
	}
	t = t.WithoutNullish()
	switch t.Kind {
	case KindObject:
		return t.Props, true
	case KindRef:
		d, dix, ok := ix.Resolve(t.Name, r)
		if !ok {
			return nil, false
		}
		return dix.declProperties(d, r, visited)
	case KindIntersection:
		var merged []Property
		found := false
		for _, m := range t.Members {
			props, ok := ix.properties(m, r, visited)
			if !ok {
				continue
			}
			found = true
			merged = mergeProps(merged, props)
		}
		return merged, found
	}
	return nil, false
}

func (ix *Index) declProperties(d *Decl, r Resolver, visited map[*Decl]bool) ([]Property, bool) {
	if visited[d] {
		return nil, true
	}
	visited[d] = true
	defer delete(visited, d)

	switch d.Kind {
	case DeclInterface, DeclClass:
		var merged []Property
		for _, base := range d.Extends {
			if props, ok := ix.properties(base, r, visited); ok {
				merged = mergeProps(merged, props)
			}
		}
		return mergeProps(merged, d.Props), true
	case DeclAlias:
		return ix.properties(d.Alias, r, visited)
	}
	return nil, false
}

func mergeProps(base, overlay []Property) []Property {
	out := append([]Property(nil), base...)
	for _, p := range overlay {
		replaced := false
		for i := range out {
			if out[i].Name == p.Name {
				out[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return out
}

// Underlying follows alias references until a non-alias type is reached and
// returns it with the index it was declared in.
func (ix *Index) Underlying(t *Type, r Resolver) (*Type, *Index) {
	seen := make(map[*Decl]bool)
	cur, curIx := t, ix
	for cur != nil && cur.Kind == KindRef {
		d, dix, ok := curIx.Resolve(cur.Name, r)
		if !ok || d.Kind != DeclAlias || seen[d] {
			return cur, curIx
		}
		seen[d] = true
		cur, curIx = d.Alias, dix
	}
	return cur, curIx
}
