package rest

import (
	"context"
	"net/http"
	"time"

	"docgraph/application/commands/bus"
	querybus "docgraph/application/queries/bus"
	"docgraph/domain/config"
	"docgraph/interfaces/http/rest/handlers"
	"docgraph/interfaces/http/rest/middleware"
	"docgraph/pkg/auth"
	"docgraph/pkg/common"
	pkgerrors "docgraph/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether backing stores are reachable
type ReadinessCheck func(ctx context.Context) error

// Options holds the transport settings of the router
type Options struct {
	// AllowedOrigins enables CORS for the listed origins; empty disables it
	AllowedOrigins []string
	// TrustGateway accepts claims forwarded by the API Gateway authorizer
	TrustGateway bool
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	domainConfig *config.DomainConfig
	validator    *auth.JWTValidator
	errors       *pkgerrors.ErrorHandler
	ready        ReadinessCheck
	options      Options
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	domainConfig *config.DomainConfig,
	validator *auth.JWTValidator,
	errs *pkgerrors.ErrorHandler,
	ready ReadinessCheck,
	options Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus:   commandBus,
		queryBus:     queryBus,
		domainConfig: domainConfig,
		validator:    validator,
		errors:       errs,
		ready:        ready,
		options:      options,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	router.Use(rt.errors.Middleware)

	if len(rt.options.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: rt.options.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", handlers.HeaderViewerID},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	documentHandler := handlers.NewDocumentHandler(rt.queryBus, rt.domainConfig, rt.errors, rt.logger)
	connectionHandler := handlers.NewConnectionHandler(rt.commandBus, rt.errors, rt.logger)
	graphHandler := handlers.NewGraphHandler(rt.queryBus, rt.errors, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.options.TrustGateway, rt.errors, rt.logger))

		r.Route("/documents/{documentID}", func(r chi.Router) {
			r.Get("/similar", documentHandler.FindSimilar)
			r.Get("/connections", documentHandler.ListConnections)
		})

		r.Route("/connections", func(r chi.Router) {
			r.Post("/", connectionHandler.CreateConnection)
			r.Delete("/{connectionID}", connectionHandler.DeleteConnection)
		})

		r.Route("/graph", func(r chi.Router) {
			r.Post("/", graphHandler.GetGraph)
			r.Post("/edges", graphHandler.GetEdges)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck pings the backing stores with a short deadline
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if rt.ready != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := rt.ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			common.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
