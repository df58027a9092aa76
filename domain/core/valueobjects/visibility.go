package valueobjects

// Visibility maps node groups to a visible flag. Groups absent from the map
// default to visible, so unknown backend labels render until explicitly
// toggled off. Mutated only through user toggles, never inferred from data.
type Visibility map[NodeGroup]bool

// NewVisibility returns a config with every group visible
func NewVisibility() Visibility {
	return Visibility{}
}

// Visible reports whether the given group should be rendered
func (v Visibility) Visible(group NodeGroup) bool {
	visible, ok := v[group]
	if !ok {
		return true
	}
	return visible
}

// With returns a copy of the config with one group's flag set
func (v Visibility) With(group NodeGroup, visible bool) Visibility {
	next := v.Clone()
	next[group] = visible
	return next
}

// Clone returns an independent copy of the config
func (v Visibility) Clone() Visibility {
	next := make(Visibility, len(v))
	for group, visible := range v {
		next[group] = visible
	}
	return next
}
