// Package server exposes the territory registry and region scanner over a
// JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/territory-cli/internal/regions"
	"github.com/sells-group/territory-cli/internal/scanner"
	"github.com/sells-group/territory-cli/internal/store"
	"github.com/sells-group/territory-cli/pkg/places"
)

// Server is the HTTP API. Scans started over the API run in the background;
// status polls read the retained tracker state.
type Server struct {
	store   store.Store
	catalog *regions.Catalog
	scanner *scanner.Scanner
	tracker *scanTracker
	router  chi.Router
	log     *zap.Logger
}

// New wires the API. The places client may be nil; scan endpoints then
// respond 503.
func New(catalog *regions.Catalog, client places.Client, st store.Store) *Server {
	s := &Server{
		store:   st,
		catalog: catalog,
		tracker: newScanTracker(),
		log:     zap.L().With(zap.String("component", "server")),
	}
	s.scanner = scanner.New(catalog, client, st, s.tracker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/regions", s.handleListRegions)
		r.Route("/regions/{region}", func(r chi.Router) {
			r.Get("/dealers", s.handleListDealers)
			r.Post("/dealers/{placeID}/assign", s.handleAssignDealer)
			r.Post("/dealers/{placeID}/unassign", s.handleUnassignDealer)
			r.Post("/scan", s.handleStartScan)
			r.Get("/scan", s.handleScanStatus)
			r.Delete("/scan", s.handleCancelScan)
		})

		r.Get("/reps", s.handleListReps)
		r.Post("/reps", s.handleSaveRep)
		r.Get("/reps/{id}", s.handleGetRep)
		r.Put("/reps/{id}", s.handleSaveRep)
		r.Delete("/reps/{id}", s.handleDeleteRep)

		r.Get("/clients", s.handleListClients)
		r.Delete("/clients/{id}", s.handleDeleteClient)

		r.Get("/backup", s.handleExportBackup)
		r.Post("/backup", s.handleImportBackup)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "server: shutdown")
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return eris.Wrap(err, "server: listen")
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, errorResponse{Error: msg})
}
