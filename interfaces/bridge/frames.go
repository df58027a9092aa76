package bridge

import (
	"encoding/json"

	"threatmosaic/domain/core/entities"
	"threatmosaic/domain/services"
)

// Outbound frame types pushed to the renderer
const (
	FrameGraph   = "graph"   // the recomputed filtered graph
	FrameLoading = "loading" // busy indicator on/off
	FrameNotice  = "notice"  // one human-readable notification
	FrameDetails = "details" // the clicked node for the details panel
	FrameLegend  = "legend"  // group styles and visibility flags
)

// Inbound event types received from the renderer
const (
	EventNodeClick    = "node_click"
	EventSearch       = "search"
	EventToggleGroup  = "toggle_group"
	EventCreateThreat = "create_threat"
	EventReload       = "reload"
)

// Frame is the envelope for every message pushed to the renderer
type Frame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// GraphPayload carries the filtered graph
type GraphPayload struct {
	Graph services.FilteredGraph `json:"graph"`
}

// LoadingPayload toggles the busy indicator
type LoadingPayload struct {
	Active bool `json:"active"`
}

// NoticePayload carries one notification message
type NoticePayload struct {
	Message string `json:"message"`
}

// DetailsPayload carries the clicked node
type DetailsPayload struct {
	Node entities.Node `json:"node"`
}

// LegendEntry describes one group's style and visibility
type LegendEntry struct {
	Group   string `json:"group"`
	Color   string `json:"color"`
	Visible bool   `json:"visible"`
}

// LegendPayload carries the full legend
type LegendPayload struct {
	Entries []LegendEntry `json:"entries"`
}

// Event is the envelope for every message received from the renderer
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NodeClickEvent identifies the clicked node
type NodeClickEvent struct {
	ID string `json:"id"`
}

// SearchEvent carries the search form's query and type filters
type SearchEvent struct {
	Query string   `json:"query"`
	Types []string `json:"types"`
}

// ToggleGroupEvent flips one group's visibility
type ToggleGroupEvent struct {
	Group   string `json:"group"`
	Visible bool   `json:"visible"`
}
