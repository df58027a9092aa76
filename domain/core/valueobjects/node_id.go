package valueobjects

// NodeID is a value object identifying a node within the graph's namespace.
// IDs are opaque strings assigned by the backend (UUIDs for locally created
// entities, vendor identifiers for imported ones), so no format is enforced.
type NodeID string

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return string(id)
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id == ""
}

// LinkKey identifies a link by its ordered (source, target) endpoint pair.
// The relationship label is deliberately not part of link identity; two
// writes for the same ordered pair collapse into one stored link.
type LinkKey struct {
	Source NodeID
	Target NodeID
}

// NewLinkKey creates the identity key for a directed link
func NewLinkKey(source, target NodeID) LinkKey {
	return LinkKey{Source: source, Target: target}
}

// String returns the string representation of the LinkKey
func (k LinkKey) String() string {
	return k.Source.String() + "->" + k.Target.String()
}
