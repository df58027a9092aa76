package aggregates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threatmosaic/domain/core/entities"
	"threatmosaic/domain/core/valueobjects"
)

func node(id, name string, group valueobjects.NodeGroup) entities.Node {
	return entities.Node{ID: valueobjects.NodeID(id), Name: name, Group: group}
}

func link(source, target, relationship string) entities.Link {
	return entities.Link{
		Source:       valueobjects.NodeID(source),
		Target:       valueobjects.NodeID(target),
		Relationship: relationship,
	}
}

func TestMergeInsertsAndDeduplicates(t *testing.T) {
	state := NewGraphState()

	merged := state.Merge(
		[]entities.Node{
			node("ts1", "Ransomware", valueobjects.GroupThreatScenario),
			node("t1", "Phishing", valueobjects.GroupTechnique),
		},
		[]entities.Link{link("ts1", "t1", entities.RelationshipUsesTechnique)},
	)

	assert.Equal(t, 2, merged.NodeCount())
	assert.Equal(t, 1, merged.LinkCount())

	// The receiver is untouched
	assert.Equal(t, 0, state.NodeCount())
	assert.Equal(t, 0, state.LinkCount())
}

func TestMergeIdempotence(t *testing.T) {
	nodes := []entities.Node{
		node("ts1", "Ransomware", valueobjects.GroupThreatScenario),
		node("t1", "Phishing", valueobjects.GroupTechnique),
	}
	links := []entities.Link{link("ts1", "t1", entities.RelationshipUsesTechnique)}

	once := NewGraphState().Merge(nodes, links)
	twice := once.Merge(nodes, links)

	assert.True(t, once.Equal(twice), "merging the same batch twice must not change the state")
}

func TestMergeCommutativityOfDisjointBatches(t *testing.T) {
	batchANodes := []entities.Node{node("a1", "A1", valueobjects.GroupTechnique)}
	batchALinks := []entities.Link{link("a1", "a2", "USES")}
	batchBNodes := []entities.Node{node("b1", "B1", valueobjects.GroupMitigation)}
	batchBLinks := []entities.Link{link("b1", "b2", "MITIGATES")}

	ab := NewGraphState().Merge(batchANodes, batchALinks).Merge(batchBNodes, batchBLinks)
	ba := NewGraphState().Merge(batchBNodes, batchBLinks).Merge(batchANodes, batchALinks)

	assert.True(t, ab.Equal(ba), "disjoint batches must converge regardless of arrival order")
}

func TestMergeNodeUniqueness(t *testing.T) {
	state := NewGraphState().
		Merge([]entities.Node{node("t1", "Phishing", valueobjects.GroupTechnique)}, nil).
		Merge([]entities.Node{node("t1", "Spear Phishing", valueobjects.GroupTechnique)}, nil).
		Merge([]entities.Node{node("t1", "Phishing", valueobjects.GroupTechnique)}, nil)

	require.Equal(t, 1, state.NodeCount())
	got, ok := state.Node("t1")
	require.True(t, ok)
	assert.Equal(t, "Phishing", got.Name)
}

func TestMergeLinkFirstWriteWins(t *testing.T) {
	state := NewGraphState().
		Merge(nil, []entities.Link{link("a", "b", "X")}).
		Merge(nil, []entities.Link{link("a", "b", "Y")})

	require.Equal(t, 1, state.LinkCount())
	got, ok := state.Link(valueobjects.NewLinkKey("a", "b"))
	require.True(t, ok)
	assert.Equal(t, "X", got.Relationship)

	// The reverse direction is a distinct identity
	reversed := state.Merge(nil, []entities.Link{link("b", "a", "Z")})
	assert.Equal(t, 2, reversed.LinkCount())
}

func TestMergePreservesExpandedFlag(t *testing.T) {
	state := NewGraphState().
		Merge([]entities.Node{node("t1", "Phishing", valueobjects.GroupTechnique)}, nil).
		MarkExpanded("t1")

	// A later payload for the same id never resets expansion state, even if
	// it claims to carry one
	incoming := node("t1", "Phishing", valueobjects.GroupTechnique)
	incoming.Expanded = false
	state = state.Merge([]entities.Node{incoming}, nil)

	got, ok := state.Node("t1")
	require.True(t, ok)
	assert.True(t, got.Expanded)
}

func TestMergeKeepsOptionalAttributes(t *testing.T) {
	rich := node("t1", "Phishing", valueobjects.GroupTechnique)
	rich.Description = "Adversaries send spearphishing messages."
	rich.ExternalID = "T1566"

	sparse := node("t1", "Phishing", valueobjects.GroupTechnique)

	state := NewGraphState().
		Merge([]entities.Node{rich}, nil).
		Merge([]entities.Node{sparse}, nil)

	got, ok := state.Node("t1")
	require.True(t, ok)
	assert.Equal(t, "Adversaries send spearphishing messages.", got.Description,
		"a sparser, staler payload must not blank out fetched attributes")
	assert.Equal(t, "T1566", got.ExternalID)
}

func TestMergeToleratesDanglingLinks(t *testing.T) {
	state := NewGraphState().Merge(nil, []entities.Link{link("m1", "t1", "MITIGATES")})

	assert.Equal(t, 0, state.NodeCount())
	assert.Equal(t, 1, state.LinkCount())

	// The endpoint arriving later resolves the reference without touching
	// the link
	state = state.Merge([]entities.Node{node("t1", "Phishing", valueobjects.GroupTechnique)}, nil)
	assert.Equal(t, 1, state.NodeCount())
	assert.Equal(t, 1, state.LinkCount())
}

func TestReplaceDiscardsPreviousState(t *testing.T) {
	state := NewGraphState().
		Merge(
			[]entities.Node{
				node("ts1", "Ransomware", valueobjects.GroupThreatScenario),
				node("t1", "Phishing", valueobjects.GroupTechnique),
			},
			[]entities.Link{link("ts1", "t1", entities.RelationshipUsesTechnique)},
		).
		MarkExpanded("t1")

	state = state.Replace([]entities.Node{node("t1", "Phishing", valueobjects.GroupTechnique)}, nil)

	assert.Equal(t, 1, state.NodeCount())
	assert.Equal(t, 0, state.LinkCount())
	assert.False(t, state.HasNode("ts1"))

	// Expansion flags died with the replaced state
	got, ok := state.Node("t1")
	require.True(t, ok)
	assert.False(t, got.Expanded)
}

func TestMarkExpanded(t *testing.T) {
	tests := []struct {
		name    string
		id      valueobjects.NodeID
		changed bool
	}{
		{name: "known node", id: "t1", changed: true},
		{name: "absent node is a no-op", id: "missing", changed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewGraphState().Merge([]entities.Node{node("t1", "Phishing", valueobjects.GroupTechnique)}, nil)
			next := state.MarkExpanded(tt.id)

			if tt.changed {
				got, ok := next.Node(tt.id)
				require.True(t, ok)
				assert.True(t, got.Expanded)
			} else {
				assert.True(t, state.Equal(next))
			}
		})
	}
}

func TestVersionIncrements(t *testing.T) {
	state := NewGraphState()
	require.Equal(t, uint64(0), state.Version())

	state = state.Merge([]entities.Node{node("t1", "Phishing", valueobjects.GroupTechnique)}, nil)
	assert.Equal(t, uint64(1), state.Version())

	state = state.Replace(nil, nil)
	assert.Equal(t, uint64(2), state.Version())
}
