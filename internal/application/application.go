package application

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/atlas-packer/internal/api"
	"github.com/eugenenazirov/atlas-packer/internal/config"
	"github.com/eugenenazirov/atlas-packer/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	store   storage.Store
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) *App {
	store := storage.NewMemoryStore(storage.Limits{
		MaxCanvases: cfg.MaxCanvases,
		MaxArea:     cfg.MaxCanvasArea,
	})

	handler := api.NewHandler(store, api.CanvasDefaults{
		Height:       cfg.DefaultCanvasHeight,
		Width:        cfg.DefaultCanvasWidth,
		ContactDepth: cfg.ContactDepth,
	})
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	server := NewServer(cfg, BuildRootHandler(apiRouter))

	return &App{
		store:   store,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  server,
	}
}

// BuildRootHandler constructs the root HTTP handler: API routes under /api/
// plus a small JSON index at the root for service discovery.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"service":  "atlas-packer",
			"health":   "/api/health",
			"canvases": "/api/canvases",
		})
	}))

	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
