package store

import (
	"sync"

	"go.uber.org/zap"

	"threatmosaic/domain/core/aggregates"
	"threatmosaic/domain/core/entities"
	"threatmosaic/domain/core/valueobjects"
	"threatmosaic/domain/services"
	"threatmosaic/pkg/observability"
)

// Subscriber receives the recomputed filtered view after every change that
// affects it
type Subscriber func(services.FilteredGraph)

// Store is the single owner of the canonical graph state, the visibility
// configuration, and the derived filtered view. Every mutation goes through
// one of its operations; each is a total function of (current state, input)
// applied under the mutex, so interleaved flow completions can never produce
// a lost update.
type Store struct {
	mu         sync.RWMutex
	state      aggregates.GraphState
	visibility valueobjects.Visibility
	filtered   services.FilteredGraph
	viewSeq    uint64

	filter  *services.VisibilityFilter
	tracker *services.ExpansionTracker

	subsMu  sync.Mutex
	subs    map[int]Subscriber
	nextSub int

	// notifyMu serializes delivery; delivered is the highest view sequence
	// handed to subscribers so far
	notifyMu  sync.Mutex
	delivered uint64

	logger  *zap.Logger
	metrics *observability.Collector
}

// New creates an empty store
func New(logger *zap.Logger, metrics *observability.Collector) *Store {
	return &Store{
		state:      aggregates.NewGraphState(),
		visibility: valueobjects.NewVisibility(),
		filtered:   services.NewFilteredGraph(),
		filter:     services.NewVisibilityFilter(),
		tracker:    services.NewExpansionTracker(),
		subs:       make(map[int]Subscriber),
		logger:     logger.Named("store"),
		metrics:    metrics,
	}
}

// ReplaceAll discards the previous graph state and installs a fresh one.
// Used by initial load and search: those flows navigate to a new view rather
// than augmenting the current one, which is also why previously expanded
// subgraphs do not survive a search.
func (s *Store) ReplaceAll(nodes []entities.Node, links []entities.Link) {
	s.mu.Lock()
	s.state = s.state.Replace(nodes, links)
	s.recomputeLocked()
	view, seq := s.filtered, s.viewSeq
	s.mu.Unlock()

	s.metrics.ReplacesApplied.Inc()
	s.logger.Debug("graph state replaced",
		zap.Int("nodes", len(nodes)),
		zap.Int("links", len(links)),
	)
	s.notify(view, seq)
}

// MergeIncoming merges a partial subgraph into the canonical state. Used by
// expansion and the post-creation refresh.
func (s *Store) MergeIncoming(nodes []entities.Node, links []entities.Link) {
	s.mu.Lock()
	s.state = s.state.Merge(nodes, links)
	s.recomputeLocked()
	view, seq := s.filtered, s.viewSeq
	s.mu.Unlock()

	s.metrics.MergesApplied.Inc()
	s.logger.Debug("subgraph merged",
		zap.Int("incomingNodes", len(nodes)),
		zap.Int("incomingLinks", len(links)),
	)
	s.notify(view, seq)
}

// SetVisibility replaces the visibility configuration and recomputes the
// filtered view from the existing state. No network involved.
func (s *Store) SetVisibility(visibility valueobjects.Visibility) {
	s.mu.Lock()
	s.visibility = visibility.Clone()
	s.recomputeLocked()
	view, seq := s.filtered, s.viewSeq
	s.mu.Unlock()

	s.notify(view, seq)
}

// ToggleGroup flips one group's visibility flag
func (s *Store) ToggleGroup(group valueobjects.NodeGroup, visible bool) {
	s.mu.Lock()
	s.visibility = s.visibility.With(group, visible)
	s.recomputeLocked()
	view, seq := s.filtered, s.viewSeq
	s.mu.Unlock()

	s.logger.Debug("group visibility toggled",
		zap.String("group", group.String()),
		zap.Bool("visible", visible),
	)
	s.notify(view, seq)
}

// MarkExpanded records that a node's neighborhood has been fetched and
// merged. Expansion flags do not affect the filtered view, so subscribers are
// not notified.
func (s *Store) MarkExpanded(id valueobjects.NodeID) {
	s.mu.Lock()
	s.state = s.tracker.MarkExpanded(s.state, id)
	s.mu.Unlock()
}

// ShouldFetch reports whether the node still needs its neighborhood fetched.
// Unknown ids report true: expansion of a node the store has not seen yet is
// the creation flow's refresh path.
func (s *Store) ShouldFetch(id valueobjects.NodeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.state.Node(id)
	if !ok {
		return true
	}
	return s.tracker.ShouldFetch(node)
}

// Node retrieves one node from the canonical state
func (s *Store) Node(id valueobjects.NodeID) (entities.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Node(id)
}

// State returns the current canonical snapshot
func (s *Store) State() aggregates.GraphState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Visibility returns a copy of the current visibility configuration
func (s *Store) Visibility() valueobjects.Visibility {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visibility.Clone()
}

// Filtered returns the current renderable view
func (s *Store) Filtered() services.FilteredGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filtered
}

// Subscribe registers an observer for filtered-view changes and returns an
// id for Unsubscribe. The current view is not replayed; callers wanting an
// immediate frame read Filtered first. Subscribers run under the delivery
// lock and must not mutate the store.
func (s *Store) Subscribe(sub Subscriber) int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	return id
}

// Unsubscribe removes a previously registered observer
func (s *Store) Unsubscribe(id int) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	delete(s.subs, id)
}

// recomputeLocked derives the filtered view and advances the view sequence;
// callers hold the write lock
func (s *Store) recomputeLocked() {
	s.filtered = s.filter.Filter(s.state, s.visibility)
	s.viewSeq++
	s.metrics.SetGraphSize(s.state.NodeCount(), s.state.LinkCount())
}

// notify fans the new view out to subscribers outside the state lock.
// Delivery is serialized and sequence-checked: two mutations racing here
// would otherwise be free to deliver in the opposite order of application,
// leaving the renderer on a superseded view. A notification that lost the
// race to a newer one is dropped, never delivered late.
func (s *Store) notify(view services.FilteredGraph, seq uint64) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if seq <= s.delivered {
		s.logger.Debug("superseded view notification dropped",
			zap.Uint64("sequence", seq),
			zap.Uint64("delivered", s.delivered),
		)
		return
	}
	s.delivered = seq

	s.subsMu.Lock()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub(view)
	}
}
