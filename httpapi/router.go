package httpapi

// router.go constructs the chi router, registers middleware, and wires every
// route to its handler. it is the single source of truth for the daemon's
// HTTP surface (§6.1). adding a new endpoint means adding one line here.

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/corvus-sh/orchd/engine"
	"github.com/corvus-sh/orchd/reconciler"
	"github.com/corvus-sh/orchd/store"
)

// RouterDependencies groups everything the router and its handlers need.
// passing one struct keeps NewRouter's signature stable as handlers grow.
type RouterDependencies struct {
	Store         *store.Store
	Engine        *engine.Client
	Reconciler    *reconciler.Reconciler
	Logger        *slog.Logger
	AllowedOrigin string
}

// NewRouter constructs the chi multiplexer, attaches middleware, builds every
// handler with its dependencies, and registers every route.
func NewRouter(deps RouterDependencies) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(CORSMiddleware(deps.AllowedOrigin))

	namespaceHandler := NewNamespaceHandler(deps.Store, deps.Logger)
	cargoHandler := NewCargoHandler(deps.Store, deps.Reconciler, deps.Engine, deps.Logger)
	clusterHandler := NewClusterHandler(deps.Store, deps.Reconciler, deps.Logger)
	networkHandler := NewNetworkHandler(deps.Store, deps.Reconciler, deps.Logger)
	variableHandler := NewVariableHandler(deps.Store, deps.Logger)
	containerHandler := NewContainerHandler(deps.Engine, deps.Logger)
	proxyTemplateHandler := NewProxyTemplateHandler(deps.Store, deps.Logger)

	router.Get("/version", VersionHandler)

	router.Route("/namespaces", func(r chi.Router) {
		r.Get("/", namespaceHandler.List)
		r.Post("/", namespaceHandler.Create)
		r.Get("/{name}", namespaceHandler.Inspect)
		r.Delete("/{name}", namespaceHandler.Delete)
	})

	router.Route("/cargoes", func(r chi.Router) {
		r.Get("/", cargoHandler.List)
		r.Get("/count", cargoHandler.Count)
		r.Post("/", cargoHandler.Create)
		r.Get("/{name}", cargoHandler.Inspect)
		r.Delete("/{name}", cargoHandler.Delete)

		r.Get("/images", cargoHandler.ListImages)
		r.Post("/images", cargoHandler.PullImage)
		r.Delete("/images/{ref}", cargoHandler.RemoveImage)
	})

	router.Route("/clusters", func(r chi.Router) {
		r.Get("/", clusterHandler.List)
		r.Get("/count", clusterHandler.Count)
		r.Post("/", clusterHandler.Create)
		r.Get("/{name}", clusterHandler.Inspect)
		r.Delete("/{name}", clusterHandler.Delete)

		r.Post("/{name}/start", clusterHandler.Start)
		r.Post("/{name}/join", clusterHandler.Join)

		r.Patch("/{name}/cargoes/{cargo}", clusterHandler.UpdateCargoInstance)
		r.Delete("/{name}/cargoes/{cargo}", clusterHandler.DeleteCargoInstance)

		r.Get("/{cluster}/networks", networkHandler.List)
		r.Post("/{cluster}/networks", networkHandler.Create)
		r.Delete("/{cluster}/networks/{name}", networkHandler.Delete)

		r.Get("/{cluster}/variables", variableHandler.List)
		r.Post("/{cluster}/variables", variableHandler.Create)
		r.Delete("/{cluster}/variables/{name}", variableHandler.Delete)
	})

	router.Route("/networks", func(r chi.Router) {
		r.Get("/count", networkHandler.Count)
	})

	router.Route("/proxy_templates", func(r chi.Router) {
		r.Get("/", proxyTemplateHandler.List)
		r.Post("/", proxyTemplateHandler.Create)
		r.Delete("/{name}", proxyTemplateHandler.Delete)
	})

	router.Get("/containers", containerHandler.List)

	return router
}
