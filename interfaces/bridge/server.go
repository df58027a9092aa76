package bridge

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"threatmosaic/application/coordinator"
	"threatmosaic/application/store"
	"threatmosaic/domain/core/valueobjects"
	"threatmosaic/domain/services"
	"threatmosaic/infrastructure/config"
	"threatmosaic/pkg/common"
	"threatmosaic/pkg/observability"
)

// Server hosts the renderer bridge: a websocket endpoint pushing filtered
// graph frames to the browser renderer and receiving its UI events, plus
// health and metrics endpoints. The renderer stays a pure layout/drawing
// collaborator; every graph decision lives behind the coordinator and store.
type Server struct {
	coordinator *coordinator.Coordinator
	store       *store.Store
	settings    func() config.Settings
	hub         *Hub
	upgrader    websocket.Upgrader
	metrics     *observability.Collector
	enableCORS  bool
	logger      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	subID  int
}

// NewServer creates the bridge server
func NewServer(
	coord *coordinator.Coordinator,
	graphStore *store.Store,
	hub *Hub,
	settings func() config.Settings,
	metrics *observability.Collector,
	enableCORS bool,
	logger *zap.Logger,
) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		coordinator: coord,
		store:       graphStore,
		settings:    settings,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The bridge binds to localhost for a local explorer session
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		metrics:    metrics,
		enableCORS: enableCORS,
		logger:     logger.Named("bridge"),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start runs the hub and subscribes the bridge to filtered-view changes
func (s *Server) Start() {
	go s.hub.Run()
	s.subID = s.store.Subscribe(func(view services.FilteredGraph) {
		s.hub.Broadcast(Frame{Type: FrameGraph, Payload: GraphPayload{Graph: view}})
	})
}

// Stop unsubscribes and shuts the hub down
func (s *Server) Stop() {
	s.cancel()
	s.store.Unsubscribe(s.subID)
	s.hub.Stop()
}

// Router configures all bridge routes and middleware
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))

	if s.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", s.healthCheck)
	if s.metrics != nil {
		router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	router.Get("/ws", s.serveWS)

	return router
}

// healthCheck reports liveness plus current graph dimensions
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	state := s.store.State()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"nodes":  state.NodeCount(),
		"links":  state.LinkCount(),
	})
}

// serveWS upgrades the connection and hands the renderer its initial frames
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(s.hub, conn, s, s.logger)
	client.start()

	// Seed the new renderer with the current view and legend so it can draw
	// without waiting for the next state change
	client.enqueue(Frame{Type: FrameLegend, Payload: s.legendPayload()})
	client.enqueue(Frame{Type: FrameGraph, Payload: GraphPayload{Graph: s.store.Filtered()}})
}

// BroadcastLegend pushes the current legend to all renderers; called after a
// settings reload
func (s *Server) BroadcastLegend() {
	s.hub.Broadcast(Frame{Type: FrameLegend, Payload: s.legendPayload()})
}

func (s *Server) legendPayload() LegendPayload {
	settings := s.settings()
	visibility := s.store.Visibility()

	entries := make([]LegendEntry, 0, len(valueobjects.KnownGroups))
	for _, group := range valueobjects.KnownGroups {
		entries = append(entries, LegendEntry{
			Group:   group.String(),
			Color:   settings.Color(group),
			Visible: visibility.Visible(group),
		})
	}
	return LegendPayload{Entries: entries}
}

// flowContext stamps a fresh request id and the flow name onto the server
// context so one user gesture is traceable down to the backend call it
// triggers
func (s *Server) flowContext(flow string) context.Context {
	return common.WithRequestID(common.WithFlow(s.ctx, flow), uuid.New().String())
}

// handleEvent dispatches a decoded renderer event. Flows run in their own
// goroutines: the read pump must never block on a network call.
func (s *Server) handleEvent(event Event) {
	switch event.Type {
	case EventNodeClick:
		var payload NodeClickEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			s.logger.Warn("malformed node_click event", zap.Error(err))
			return
		}
		go func() {
			ctx := s.flowContext(coordinator.FlowExpand)
			if err := s.coordinator.HandleNodeClick(ctx, valueobjects.NodeID(payload.ID)); err != nil {
				s.logger.Debug("node click flow failed", zap.String("nodeID", payload.ID), zap.Error(err))
			}
		}()

	case EventSearch:
		var payload SearchEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			s.logger.Warn("malformed search event", zap.Error(err))
			return
		}
		go func() {
			ctx := s.flowContext(coordinator.FlowSearch)
			if err := s.coordinator.Search(ctx, payload.Query, payload.Types); err != nil {
				s.logger.Debug("search flow failed", zap.String("query", payload.Query), zap.Error(err))
			}
		}()

	case EventToggleGroup:
		var payload ToggleGroupEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			s.logger.Warn("malformed toggle_group event", zap.Error(err))
			return
		}
		s.store.ToggleGroup(valueobjects.NodeGroup(payload.Group), payload.Visible)

	case EventCreateThreat:
		var payload coordinator.CreateThreatScenarioRequest
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			s.logger.Warn("malformed create_threat event", zap.Error(err))
			return
		}
		go func() {
			ctx := s.flowContext(coordinator.FlowCreate)
			if _, err := s.coordinator.CreateThreatScenario(ctx, payload); err != nil {
				s.logger.Debug("create flow failed", zap.String("name", payload.Name), zap.Error(err))
			}
		}()

	case EventReload:
		go func() {
			ctx := s.flowContext(coordinator.FlowInitialLoad)
			if err := s.coordinator.InitialLoad(ctx); err != nil {
				s.logger.Debug("reload flow failed", zap.Error(err))
			}
		}()

	default:
		s.logger.Debug("unknown renderer event", zap.String("type", event.Type))
	}
}
