package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"threatmosaic/application/ports"
	"threatmosaic/application/store"
	"threatmosaic/domain/core/entities"
	"threatmosaic/domain/core/valueobjects"
	apperrors "threatmosaic/pkg/errors"
	"threatmosaic/pkg/observability"
	"threatmosaic/pkg/utils"
)

// Flow names used in logs and metrics
const (
	FlowInitialLoad = "initial_load"
	FlowSearch      = "search"
	FlowExpand      = "expand"
	FlowCreate      = "create"
)

// CreateThreatScenarioRequest carries the creation form's fields
type CreateThreatScenarioRequest struct {
	Name         string   `json:"name" validate:"required,max=255"`
	Description  string   `json:"description" validate:"max=50000"`
	RelatedNodes []string `json:"relatedNodes" validate:"dive,required"`
}

// Coordinator orchestrates the data-fetching flows (initial load, search,
// expand) and the entity-creation flow on top of the store and the remote
// graph API. It owns the request-generation guard that keeps a slow, stale
// replace-driving response from clobbering the result of a newer one.
type Coordinator struct {
	api       ports.GraphAPI
	store     *store.Store
	presenter ports.Presenter
	validate  *validator.Validate
	logger    *zap.Logger
	metrics   *observability.Collector

	// replaceGen stamps every replace-driving request (initial load and
	// search) at issue time; a completion applies only while its stamp is
	// still the latest issued.
	replaceGen atomic.Uint64
	applyMu    sync.Mutex

	defaultRelationship string
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithDefaultRelationship overrides the relationship label used when
// relating a newly created threat scenario to selected nodes
func WithDefaultRelationship(relationship string) Option {
	return func(c *Coordinator) {
		if relationship != "" {
			c.defaultRelationship = relationship
		}
	}
}

// New creates a coordinator
func New(api ports.GraphAPI, graphStore *store.Store, presenter ports.Presenter, logger *zap.Logger, metrics *observability.Collector, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:                 api,
		store:               graphStore,
		presenter:           presenter,
		validate:            validator.New(),
		logger:              logger.Named("coordinator"),
		metrics:             metrics,
		defaultRelationship: entities.RelationshipUsesTechnique,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InitialLoad fetches the bulk threat-scenario list and replaces the graph
// state wholesale
func (c *Coordinator) InitialLoad(ctx context.Context) error {
	gen := c.replaceGen.Add(1)
	start := time.Now()
	c.presenter.Loading(true)
	defer c.presenter.Loading(false)

	records, err := c.api.ThreatScenarios(ctx)
	c.metrics.ObserveFlow(FlowInitialLoad, time.Since(start), err)
	if err != nil {
		c.logger.Error("initial load failed", zap.Error(err))
		c.presenter.Notice("Failed to fetch graph data.")
		return err
	}

	nodes, links := normalizeThreatScenarios(records)
	if !c.applyReplace(gen, nodes, links) {
		return nil
	}

	c.logger.Info("initial load applied",
		zap.Int("scenarios", len(records)),
		zap.Int("nodes", len(nodes)),
		zap.Int("links", len(links)),
	)
	return nil
}

// Search fetches nodes matching the query and replaces the graph state with
// them. No links are returned by this flow. An empty query re-runs the
// initial load instead.
func (c *Coordinator) Search(ctx context.Context, query string, types []string) error {
	if strings.TrimSpace(query) == "" {
		return c.InitialLoad(ctx)
	}

	gen := c.replaceGen.Add(1)
	start := time.Now()
	c.presenter.Loading(true)
	defer c.presenter.Loading(false)

	results, err := c.api.Search(ctx, query, types)
	c.metrics.ObserveFlow(FlowSearch, time.Since(start), err)
	if err != nil {
		c.logger.Error("search failed", zap.String("query", query), zap.Error(err))
		c.presenter.Notice("Search failed. Please try again.")
		return err
	}

	nodes := normalizeSearchResults(results)
	if !c.applyReplace(gen, nodes, nil) {
		return nil
	}

	c.logger.Info("search applied",
		zap.String("query", query),
		zap.Strings("types", types),
		zap.Int("matches", len(nodes)),
	)
	return nil
}

// ExpandNode fetches the node's immediate neighborhood and merges it into
// the graph state. Idempotent: a node already expanded issues no network
// call and leaves the state untouched.
func (c *Coordinator) ExpandNode(ctx context.Context, id valueobjects.NodeID) error {
	if !c.store.ShouldFetch(id) {
		c.metrics.ExpansionsSkipped.Inc()
		c.logger.Debug("expansion skipped, node already expanded", zap.String("nodeID", id.String()))
		return nil
	}

	start := time.Now()
	neighborhood, err := c.api.RelatedNodes(ctx, id.String())
	c.metrics.ObserveFlow(FlowExpand, time.Since(start), err)
	if err != nil {
		// Fail closed: the flag stays unset so the user can retry by
		// clicking again
		c.logger.Error("expansion failed", zap.String("nodeID", id.String()), zap.Error(err))
		c.presenter.Notice("Failed to fetch related nodes.")
		return err
	}

	nodes, links := normalizeNeighborhood(neighborhood)
	c.store.MergeIncoming(nodes, links)
	c.store.MarkExpanded(id)

	c.logger.Debug("expansion merged",
		zap.String("nodeID", id.String()),
		zap.Int("neighbors", len(nodes)),
		zap.Int("links", len(links)),
	)
	return nil
}

// HandleNodeClick is what the renderer's click event feeds: it surfaces the
// node's details and triggers expansion
func (c *Coordinator) HandleNodeClick(ctx context.Context, id valueobjects.NodeID) error {
	if node, ok := c.store.Node(id); ok {
		c.presenter.NodeDetails(node)
	}
	return c.ExpandNode(ctx, id)
}

// CreateThreatScenario creates a new threat-scenario entity, relates it to
// the selected nodes, and pulls the freshly created links into the store.
//
// The node-creation call completes and merges before any relationship call
// is issued; the relationship calls run concurrently with one another; the
// final refresh waits for all of them to settle. A relationship failure does
// not roll back the created node — it is reported as a PartialCreationError
// naming the targets that failed so they can be retried individually.
func (c *Coordinator) CreateThreatScenario(ctx context.Context, req CreateThreatScenarioRequest) (entities.Node, error) {
	if err := c.validate.Struct(req); err != nil {
		return entities.Node{}, apperrors.NewValidationError(utils.FormatValidationError(err).Error())
	}

	start := time.Now()
	c.presenter.Loading(true)
	defer c.presenter.Loading(false)

	created, err := c.api.CreateThreatScenario(ctx, req.Name, req.Description)
	if err != nil {
		c.metrics.ObserveFlow(FlowCreate, time.Since(start), err)
		c.logger.Error("threat scenario creation failed", zap.String("name", req.Name), zap.Error(err))
		c.presenter.Notice("Failed to create Threat Scenario.")
		return entities.Node{}, err
	}

	node := entities.Node{
		ID:          valueobjects.NodeID(created.ID),
		Name:        created.Name,
		Group:       valueobjects.GroupThreatScenario,
		Description: created.Description,
	}
	c.store.MergeIncoming([]entities.Node{node}, nil)

	failed := c.createRelationships(ctx, created.ID, req.RelatedNodes)

	// Pull the freshly created links into the store. The new node has never
	// been expanded, so this always fetches.
	if len(req.RelatedNodes) > 0 {
		if err := c.ExpandNode(ctx, node.ID); err != nil {
			c.logger.Warn("post-creation refresh failed", zap.String("nodeID", created.ID), zap.Error(err))
		}
	}

	c.metrics.ObserveFlow(FlowCreate, time.Since(start), nil)

	if len(failed) > 0 {
		succeeded := make([]string, 0, len(req.RelatedNodes)-len(failed))
		for _, target := range req.RelatedNodes {
			if _, ok := failed[target]; !ok {
				succeeded = append(succeeded, target)
			}
		}
		pce := &apperrors.PartialCreationError{
			NodeID:  created.ID,
			Name:    created.Name,
			Failed:  failed,
			Created: succeeded,
		}
		c.logger.Warn("threat scenario created with failed relationships",
			zap.String("nodeID", created.ID),
			zap.Strings("failedTargets", pce.FailedTargets()),
		)
		c.presenter.Notice(fmt.Sprintf(
			"Threat Scenario '%s' was created, but linking failed for: %s. Retry those relationships individually.",
			created.Name, strings.Join(pce.FailedTargets(), ", "),
		))
		return node, pce
	}

	c.logger.Info("threat scenario created",
		zap.String("nodeID", created.ID),
		zap.String("name", created.Name),
		zap.Int("relationships", len(req.RelatedNodes)),
	)
	c.presenter.Notice("Threat Scenario created successfully!")
	return node, nil
}

// createRelationships issues one relationship-creation call per target id,
// concurrently, and returns the targets that failed
func (c *Coordinator) createRelationships(ctx context.Context, sourceID string, targets []string) map[string]error {
	if len(targets) == 0 {
		return nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed = make(map[string]error)
	)

	for _, target := range targets {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()
			if err := c.api.CreateRelationship(ctx, sourceID, target, c.defaultRelationship); err != nil {
				mu.Lock()
				failed[target] = err
				mu.Unlock()
			}
		}(target)
	}
	wg.Wait()

	if len(failed) == 0 {
		return nil
	}
	return failed
}

// applyReplace installs a replace-driving result unless a newer request has
// been issued since this one went out. Stale results are discarded on
// arrival, never applied.
func (c *Coordinator) applyReplace(gen uint64, nodes []entities.Node, links []entities.Link) bool {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	if gen != c.replaceGen.Load() {
		c.metrics.StaleDiscarded.Inc()
		c.logger.Debug("stale replace response discarded",
			zap.Uint64("generation", gen),
			zap.Uint64("latest", c.replaceGen.Load()),
		)
		return false
	}

	c.store.ReplaceAll(nodes, links)
	return true
}
