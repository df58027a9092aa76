package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"threatmosaic/application/ports"
	"threatmosaic/application/store"
	"threatmosaic/domain/core/entities"
	"threatmosaic/domain/core/valueobjects"
	apperrors "threatmosaic/pkg/errors"
	"threatmosaic/pkg/observability"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeGraphAPI scripts the backend. Each operation either returns its canned
// value or the configured error; call counters verify how often flows hit the
// network.
type fakeGraphAPI struct {
	mu sync.Mutex

	scenarios    []ports.ThreatScenarioRecord
	scenariosErr error

	searchResults []ports.SearchResult
	searchByQuery map[string][]ports.SearchResult
	searchErr     error
	searchGate    chan struct{} // when set, the first Search blocks until the gate closes
	searchCalls   atomic.Int32

	neighborhoods map[string]ports.Neighborhood
	relatedErr    error
	relatedCalls  atomic.Int32

	created   ports.CreatedThreatScenario
	createErr error

	relationshipErrs map[string]error
	relationships    []string
}

func (f *fakeGraphAPI) ThreatScenarios(ctx context.Context) ([]ports.ThreatScenarioRecord, error) {
	if f.scenariosErr != nil {
		return nil, f.scenariosErr
	}
	return f.scenarios, nil
}

func (f *fakeGraphAPI) Search(ctx context.Context, query string, types []string) ([]ports.SearchResult, error) {
	n := f.searchCalls.Add(1)
	if f.searchGate != nil && n == 1 {
		<-f.searchGate
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchByQuery != nil {
		return f.searchByQuery[query], nil
	}
	return f.searchResults, nil
}

func (f *fakeGraphAPI) RelatedNodes(ctx context.Context, nodeID string) (ports.Neighborhood, error) {
	f.relatedCalls.Add(1)
	if f.relatedErr != nil {
		return ports.Neighborhood{}, f.relatedErr
	}
	return f.neighborhoods[nodeID], nil
}

func (f *fakeGraphAPI) CreateThreatScenario(ctx context.Context, name, description string) (ports.CreatedThreatScenario, error) {
	if f.createErr != nil {
		return ports.CreatedThreatScenario{}, f.createErr
	}
	return f.created, nil
}

func (f *fakeGraphAPI) CreateRelationship(ctx context.Context, sourceID, targetID, relationship string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.relationshipErrs[targetID]; ok {
		return err
	}
	f.relationships = append(f.relationships, sourceID+"->"+targetID+":"+relationship)
	return nil
}

// recordingPresenter captures notices for assertions
type recordingPresenter struct {
	mu      sync.Mutex
	notices []string
}

func (p *recordingPresenter) Loading(bool)              {}
func (p *recordingPresenter) Notice(msg string)         { p.mu.Lock(); p.notices = append(p.notices, msg); p.mu.Unlock() }
func (p *recordingPresenter) NodeDetails(entities.Node) {}

func (p *recordingPresenter) lastNotice() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.notices) == 0 {
		return ""
	}
	return p.notices[len(p.notices)-1]
}

func newFixture(api *fakeGraphAPI) (*Coordinator, *store.Store, *recordingPresenter) {
	s := store.New(zap.NewNop(), observability.NewCollector("test"))
	p := &recordingPresenter{}
	c := New(api, s, p, zap.NewNop(), observability.NewCollector("test"))
	return c, s, p
}

func TestInitialLoad(t *testing.T) {
	api := &fakeGraphAPI{
		scenarios: []ports.ThreatScenarioRecord{
			{
				ID:   "ts1",
				Name: "Ransomware Campaign",
				Techniques: []ports.TechniqueRecord{
					{ID: "t1", Name: "Phishing", ExternalID: "T1566"},
				},
			},
		},
	}
	c, s, _ := newFixture(api)

	require.NoError(t, c.InitialLoad(context.Background()))

	state := s.State()
	assert.Equal(t, 2, state.NodeCount())
	assert.Equal(t, 1, state.LinkCount())

	scenario, ok := state.Node("ts1")
	require.True(t, ok)
	assert.Equal(t, valueobjects.GroupThreatScenario, scenario.Group)

	link, ok := state.Link(valueobjects.NewLinkKey("ts1", "t1"))
	require.True(t, ok)
	assert.Equal(t, entities.RelationshipUsesTechnique, link.Relationship)
}

func TestInitialLoadFailureSurfacesNotice(t *testing.T) {
	api := &fakeGraphAPI{scenariosErr: errors.New("connection refused")}
	c, s, p := newFixture(api)

	err := c.InitialLoad(context.Background())

	require.Error(t, err)
	assert.Equal(t, "Failed to fetch graph data.", p.lastNotice())
	assert.Equal(t, 0, s.State().NodeCount(), "a failed load leaves the state untouched")
}

func TestSearchReplacesState(t *testing.T) {
	api := &fakeGraphAPI{
		scenarios: []ports.ThreatScenarioRecord{
			{ID: "ts1", Name: "Ransomware", Techniques: []ports.TechniqueRecord{{ID: "t1", Name: "Phishing"}}},
		},
		searchResults: []ports.SearchResult{
			{ID: "m1", Name: "User Training", Labels: []string{"Mitigation"}},
		},
	}
	c, s, _ := newFixture(api)

	require.NoError(t, c.InitialLoad(context.Background()))
	require.NoError(t, c.Search(context.Background(), "training", []string{"Mitigation"}))

	state := s.State()
	assert.Equal(t, 1, state.NodeCount())
	assert.Equal(t, 0, state.LinkCount())
	assert.False(t, state.HasNode("ts1"), "search navigates away from the previous view")

	match, ok := state.Node("m1")
	require.True(t, ok)
	assert.Equal(t, valueobjects.GroupMitigation, match.Group)
}

func TestSearchEmptyQueryFallsBackToInitialLoad(t *testing.T) {
	api := &fakeGraphAPI{
		scenarios: []ports.ThreatScenarioRecord{{ID: "ts1", Name: "Ransomware"}},
	}
	c, s, _ := newFixture(api)

	require.NoError(t, c.Search(context.Background(), "   ", nil))

	assert.True(t, s.State().HasNode("ts1"))
	assert.Zero(t, api.searchCalls.Load(), "blank query never reaches the search endpoint")
}

func TestStaleSearchResponseIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeGraphAPI{
		searchGate: gate,
		searchByQuery: map[string][]ports.SearchResult{
			"first":  {{ID: "slow", Name: "Slow Result", Labels: []string{"Tool"}}},
			"second": {{ID: "fresh", Name: "Fresh Result", Labels: []string{"Tool"}}},
		},
	}
	c, s, _ := newFixture(api)

	// The first search stalls at the backend while a second one is issued
	// and completes.
	firstDone := make(chan error, 1)
	go func() { firstDone <- c.Search(context.Background(), "first", nil) }()

	// Wait for the first search to be in flight before issuing the second
	require.Eventually(t, func() bool { return api.searchCalls.Load() == 1 },
		waitFor, tick)

	require.NoError(t, c.Search(context.Background(), "second", nil))
	require.True(t, s.State().HasNode("fresh"))

	// Now the stale response lands; it must not clobber the fresh view
	close(gate)
	require.NoError(t, <-firstDone)

	state := s.State()
	assert.True(t, state.HasNode("fresh"))
	assert.False(t, state.HasNode("slow"), "a stale response must be discarded, not applied")
}

func TestExpandNodeMergesAndMarks(t *testing.T) {
	api := &fakeGraphAPI{
		scenarios: []ports.ThreatScenarioRecord{{ID: "ts1", Name: "Ransomware"}},
		neighborhoods: map[string]ports.Neighborhood{
			"ts1": {
				Nodes: []ports.NeighborNode{{ID: "t1", Name: "Phishing", Labels: []string{"Technique"}}},
				Links: []ports.NeighborLink{{Source: "ts1", Target: "t1", Relationship: "USES_TECHNIQUE"}},
			},
		},
	}
	c, s, _ := newFixture(api)
	require.NoError(t, c.InitialLoad(context.Background()))

	require.NoError(t, c.ExpandNode(context.Background(), "ts1"))

	state := s.State()
	assert.Equal(t, 2, state.NodeCount())
	assert.Equal(t, 1, state.LinkCount())

	expanded, ok := state.Node("ts1")
	require.True(t, ok)
	assert.True(t, expanded.Expanded)
}

func TestExpandNodeIsIdempotent(t *testing.T) {
	api := &fakeGraphAPI{
		scenarios:     []ports.ThreatScenarioRecord{{ID: "ts1", Name: "Ransomware"}},
		neighborhoods: map[string]ports.Neighborhood{"ts1": {}},
	}
	c, _, _ := newFixture(api)
	require.NoError(t, c.InitialLoad(context.Background()))

	require.NoError(t, c.ExpandNode(context.Background(), "ts1"))
	require.NoError(t, c.ExpandNode(context.Background(), "ts1"))

	assert.Equal(t, int32(1), api.relatedCalls.Load(), "the second expansion must not hit the network")
}

func TestExpandNodeFailureAllowsRetry(t *testing.T) {
	api := &fakeGraphAPI{
		scenarios:  []ports.ThreatScenarioRecord{{ID: "ts1", Name: "Ransomware"}},
		relatedErr: errors.New("gateway timeout"),
	}
	c, s, p := newFixture(api)
	require.NoError(t, c.InitialLoad(context.Background()))

	require.Error(t, c.ExpandNode(context.Background(), "ts1"))
	assert.Equal(t, "Failed to fetch related nodes.", p.lastNotice())

	// The flag stays unset so the retry fetches again
	assert.True(t, s.ShouldFetch("ts1"))

	api.relatedErr = nil
	api.neighborhoods = map[string]ports.Neighborhood{"ts1": {}}
	require.NoError(t, c.ExpandNode(context.Background(), "ts1"))
	assert.Equal(t, int32(2), api.relatedCalls.Load())
}

func TestHandleNodeClickSurfacesDetails(t *testing.T) {
	api := &fakeGraphAPI{
		scenarios:     []ports.ThreatScenarioRecord{{ID: "ts1", Name: "Ransomware"}},
		neighborhoods: map[string]ports.Neighborhood{"ts1": {}},
	}
	c, _, _ := newFixture(api)
	require.NoError(t, c.InitialLoad(context.Background()))

	require.NoError(t, c.HandleNodeClick(context.Background(), "ts1"))
	assert.Equal(t, int32(1), api.relatedCalls.Load())
}

func TestCreateThreatScenario(t *testing.T) {
	api := &fakeGraphAPI{
		created: ports.CreatedThreatScenario{ID: "ts-new", Name: "Supply Chain Attack"},
		neighborhoods: map[string]ports.Neighborhood{
			"ts-new": {
				Nodes: []ports.NeighborNode{{ID: "t1", Name: "Phishing", Labels: []string{"Technique"}}},
				Links: []ports.NeighborLink{{Source: "ts-new", Target: "t1", Relationship: "USES_TECHNIQUE"}},
			},
		},
	}
	c, s, p := newFixture(api)

	node, err := c.CreateThreatScenario(context.Background(), CreateThreatScenarioRequest{
		Name:         "Supply Chain Attack",
		RelatedNodes: []string{"t1"},
	})

	require.NoError(t, err)
	assert.Equal(t, valueobjects.NodeID("ts-new"), node.ID)
	assert.Equal(t, valueobjects.GroupThreatScenario, node.Group)

	state := s.State()
	assert.True(t, state.HasNode("ts-new"))
	_, ok := state.Link(valueobjects.NewLinkKey("ts-new", "t1"))
	assert.True(t, ok, "the refresh pulls the created relationship into the store")

	assert.Equal(t, []string{"ts-new->t1:USES_TECHNIQUE"}, api.relationships)
	assert.Equal(t, "Threat Scenario created successfully!", p.lastNotice())
}

func TestCreateThreatScenarioValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateThreatScenarioRequest
	}{
		{name: "empty name", req: CreateThreatScenarioRequest{Name: ""}},
		{name: "blank related node id", req: CreateThreatScenarioRequest{Name: "ok", RelatedNodes: []string{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newFixture(&fakeGraphAPI{})
			_, err := c.CreateThreatScenario(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestCreateThreatScenarioPartialFailure(t *testing.T) {
	api := &fakeGraphAPI{
		created: ports.CreatedThreatScenario{ID: "ts-new", Name: "Supply Chain Attack"},
		relationshipErrs: map[string]error{
			"t2": errors.New("target not found"),
		},
		neighborhoods: map[string]ports.Neighborhood{
			"ts-new": {
				Nodes: []ports.NeighborNode{{ID: "t1", Name: "Phishing", Labels: []string{"Technique"}}},
				Links: []ports.NeighborLink{{Source: "ts-new", Target: "t1", Relationship: "USES_TECHNIQUE"}},
			},
		},
	}
	c, s, p := newFixture(api)

	node, err := c.CreateThreatScenario(context.Background(), CreateThreatScenarioRequest{
		Name:         "Supply Chain Attack",
		RelatedNodes: []string{"t1", "t2"},
	})

	require.Error(t, err)
	pce := apperrors.GetPartialCreation(err)
	require.NotNil(t, pce)
	assert.Equal(t, []string{"t2"}, pce.FailedTargets())
	assert.Equal(t, []string{"t1"}, pce.Created)

	// The node and the successful relationship survive the partial failure
	assert.True(t, s.State().HasNode("ts-new"))
	assert.Equal(t, valueobjects.NodeID("ts-new"), node.ID)
	_, hasLink := s.State().Link(valueobjects.NewLinkKey("ts-new", "t1"))
	assert.True(t, hasLink)

	assert.Contains(t, p.lastNotice(), "t2")
}

func TestCreateThreatScenarioBackendFailure(t *testing.T) {
	api := &fakeGraphAPI{createErr: errors.New("internal server error")}
	c, s, p := newFixture(api)

	_, err := c.CreateThreatScenario(context.Background(), CreateThreatScenarioRequest{Name: "Doomed"})

	require.Error(t, err)
	assert.Equal(t, "Failed to create Threat Scenario.", p.lastNotice())
	assert.Equal(t, 0, s.State().NodeCount())
	assert.Empty(t, api.relationships, "no relationship calls go out when the node was never created")
}

func TestNormalizeThreatScenariosDeduplicatesSharedTechniques(t *testing.T) {
	records := []ports.ThreatScenarioRecord{
		{ID: "ts1", Name: "A", Techniques: []ports.TechniqueRecord{{ID: "t1", Name: "Phishing"}}},
		{ID: "ts2", Name: "B", Techniques: []ports.TechniqueRecord{{ID: "t1", Name: "Phishing"}}},
	}

	nodes, links := normalizeThreatScenarios(records)

	assert.Len(t, nodes, 3, "the shared technique appears once")
	assert.Len(t, links, 2, "each scenario keeps its own link to it")
}
