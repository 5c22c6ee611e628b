// Package dashboard serves the scored destinations over HTTP, rescoring them
// with weights chosen by the caller.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"kayak-destinations/models"
	"kayak-destinations/storage"
	"kayak-destinations/utils"
)

// Dataset is the output of a pipeline run, loaded once at startup.
type Dataset struct {
	Destinations []*models.DestinationSummary
	Hotels       []*models.HotelListing
	MapPath      string
}

// LoadDataset reads the processed artifacts. Both tables must exist.
func LoadDataset(artifacts *storage.Artifacts, logger *utils.Logger) (*Dataset, error) {
	reader := storage.NewCSVReader(logger)

	destinations, err := reader.ReadDestinations(artifacts.Destinations())
	if err != nil {
		return nil, fmt.Errorf("load destinations: %w", err)
	}
	hotels, err := reader.ReadHotels(artifacts.HotelsClean())
	if err != nil {
		return nil, fmt.Errorf("load hotels: %w", err)
	}

	logger.Info("Dashboard dataset: %d destinations, %d hotels", len(destinations), len(hotels))
	return &Dataset{Destinations: destinations, Hotels: hotels, MapPath: artifacts.Map()}, nil
}

// NewRouter wires the API routes.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(requestLogger(h.logger))

	r.Get("/healthz", h.Health)
	r.Get("/map", h.Map)
	r.Route("/api", func(r chi.Router) {
		r.Get("/destinations", h.ListDestinations)
		r.Get("/destinations/{city}", h.GetDestination)
		r.Get("/compare", h.Compare)
	})
	return r
}

func requestLogger(logger *utils.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.With("request_id", middleware.GetReqID(r.Context())).
				Debug("%s %s -> %d in %v", r.Method, r.URL.RequestURI(), ww.Status(), time.Since(start))
		})
	}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *utils.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Dashboard listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down dashboard...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
