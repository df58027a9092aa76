package coordinator

import (
	"threatmosaic/application/ports"
	"threatmosaic/domain/core/entities"
	"threatmosaic/domain/core/valueobjects"
)

// normalizeThreatScenarios flattens the bulk-load payload into node and link
// lists: one ThreatScenario node per record, one Technique node and one
// USES_TECHNIQUE link per nested technique. Techniques shared by several
// scenarios collapse by id before insertion.
func normalizeThreatScenarios(records []ports.ThreatScenarioRecord) ([]entities.Node, []entities.Link) {
	seen := make(map[valueobjects.NodeID]bool)
	nodes := make([]entities.Node, 0, len(records))
	links := make([]entities.Link, 0, len(records))

	for _, record := range records {
		scenarioID := valueobjects.NodeID(record.ID)
		if scenarioID.IsZero() {
			continue
		}
		if !seen[scenarioID] {
			seen[scenarioID] = true
			nodes = append(nodes, entities.Node{
				ID:          scenarioID,
				Name:        record.Name,
				Group:       valueobjects.GroupThreatScenario,
				Description: record.Description,
			})
		}

		for _, technique := range record.Techniques {
			techniqueID := valueobjects.NodeID(technique.ID)
			if techniqueID.IsZero() {
				continue
			}
			if !seen[techniqueID] {
				seen[techniqueID] = true
				nodes = append(nodes, entities.Node{
					ID:          techniqueID,
					Name:        technique.Name,
					Group:       valueobjects.GroupTechnique,
					Description: technique.Description,
					ExternalID:  technique.ExternalID,
				})
			}
			links = append(links, entities.Link{
				Source:       scenarioID,
				Target:       techniqueID,
				Relationship: entities.RelationshipUsesTechnique,
			})
		}
	}

	return nodes, links
}

// normalizeSearchResults maps search matches onto nodes. Search returns no
// links by contract; the first label is the node's group.
func normalizeSearchResults(results []ports.SearchResult) []entities.Node {
	nodes := make([]entities.Node, 0, len(results))
	for _, result := range results {
		id := valueobjects.NodeID(result.ID)
		if id.IsZero() {
			continue
		}
		nodes = append(nodes, entities.Node{
			ID:    id,
			Name:  result.Name,
			Group: valueobjects.GroupFromLabels(result.Labels),
		})
	}
	return nodes
}

// normalizeNeighborhood maps an expansion payload onto node and link lists
func normalizeNeighborhood(neighborhood ports.Neighborhood) ([]entities.Node, []entities.Link) {
	nodes := make([]entities.Node, 0, len(neighborhood.Nodes))
	for _, neighbor := range neighborhood.Nodes {
		id := valueobjects.NodeID(neighbor.ID)
		if id.IsZero() {
			continue
		}
		nodes = append(nodes, entities.Node{
			ID:          id,
			Name:        neighbor.Name,
			Group:       valueobjects.GroupFromLabels(neighbor.Labels),
			Description: neighbor.Description,
		})
	}

	links := make([]entities.Link, 0, len(neighborhood.Links))
	for _, link := range neighborhood.Links {
		source := valueobjects.NodeID(link.Source)
		target := valueobjects.NodeID(link.Target)
		if source.IsZero() || target.IsZero() {
			continue
		}
		links = append(links, entities.Link{
			Source:       source,
			Target:       target,
			Relationship: link.Relationship,
		})
	}

	return nodes, links
}
