package valueobjects

// NodeGroup classifies a node within the threat-intelligence graph.
// The enumeration is open-ended: the backend may introduce labels beyond the
// known set, and unknown groups must still round-trip and render with a
// default style.
type NodeGroup string

const (
	GroupThreatScenario NodeGroup = "ThreatScenario"
	GroupTechnique      NodeGroup = "Technique"
	GroupSubTechnique   NodeGroup = "SubTechnique"
	GroupCampaign       NodeGroup = "Campaign"
	GroupTool           NodeGroup = "Tool"
	GroupTactic         NodeGroup = "Tactic"
	GroupDataSource     NodeGroup = "DataSource"
	GroupDataComponent  NodeGroup = "DataComponent"
	GroupMitigation     NodeGroup = "Mitigation"

	// GroupDefault is used when a payload carries no labels at all
	GroupDefault NodeGroup = "default"
)

// KnownGroups lists the fixed enumeration in display order
var KnownGroups = []NodeGroup{
	GroupThreatScenario,
	GroupTechnique,
	GroupSubTechnique,
	GroupCampaign,
	GroupTool,
	GroupTactic,
	GroupDataSource,
	GroupDataComponent,
	GroupMitigation,
}

// String returns the string representation of the group
func (g NodeGroup) String() string {
	return string(g)
}

// IsKnown reports whether the group is part of the fixed enumeration
func (g NodeGroup) IsKnown() bool {
	for _, known := range KnownGroups {
		if g == known {
			return true
		}
	}
	return false
}

// GroupFromLabels derives a node's group from a backend label list.
// The first label wins; an empty list maps to GroupDefault.
func GroupFromLabels(labels []string) NodeGroup {
	if len(labels) == 0 {
		return GroupDefault
	}
	return NodeGroup(labels[0])
}
