package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"trendpulse/internal/config"
	"trendpulse/internal/domain/content"
	"trendpulse/internal/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	log *zap.Logger,
	pipeline handlers.PipelineRunner,
	signalStore handlers.SignalFinder,
	rawStore content.Store,
	natsConn *nats.Conn,
	eventsTopic string,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	signalHandler := handlers.NewSignalHandler(log, signalStore)
	pipelineHandler := handlers.NewPipelineHandler(log, pipeline, rawStore)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			// Signal history API
			r.Route("/signals", func(r chi.Router) {
				r.Get("/", signalHandler.GetSignals)
				r.Get("/{name}", signalHandler.GetSignal)
			})

			// Pipeline API
			r.Post("/ingest", pipelineHandler.Ingest)
			r.Post("/scrape", pipelineHandler.Scrape)
			r.Get("/raw/{id}", pipelineHandler.GetRaw)
			r.Get("/stats", pipelineHandler.GetStats)
		})
	})

	// WebSocket endpoint streaming detected signals in real time
	router.Get("/ws/signals", handlers.SignalStreamHandler(log, natsConn, eventsTopic))

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
