package entities

import (
	"threatmosaic/domain/core/valueobjects"
)

// Relationship labels used by the threat graph. The set is open: the backend
// may return labels beyond these.
const (
	RelationshipUsesTechnique = "USES_TECHNIQUE"
	RelationshipMitigates     = "MITIGATES"
)

// Link is a directed, typed relationship between two node ids. A link may
// arrive before one of its endpoint nodes; the canonical state tolerates the
// dangling reference until a later merge resolves it.
type Link struct {
	Source       valueobjects.NodeID `json:"source"`
	Target       valueobjects.NodeID `json:"target"`
	Relationship string              `json:"relationship"`
}

// Key returns the link's deduplication identity: the ordered endpoint pair
func (l Link) Key() valueobjects.LinkKey {
	return valueobjects.NewLinkKey(l.Source, l.Target)
}
