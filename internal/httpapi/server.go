// Package httpapi exposes the import pipeline, the display view and the
// exporter over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/rpattn/consulta/internal/domain"
	"github.com/rpattn/consulta/internal/export"
	"github.com/rpattn/consulta/internal/ingestion"
	"github.com/rpattn/consulta/internal/middleware"
	"github.com/rpattn/consulta/internal/view"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Importer runs one upload through the import pipeline.
type Importer interface {
	Import(ctx context.Context, req ingestion.Request) (ingestion.Summary, error)
	Logs(ctx context.Context, batchID uuid.UUID, limit, offset int) ([]domain.ImportLogEntry, error)
}

// Orders is the storage boundary used by the handlers.
type Orders interface {
	FetchSince(ctx context.Context, start time.Time) ([]domain.DisplayOrder, error)
	Load(ctx context.Context, ids []uuid.UUID) ([]domain.DisplayOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (time.Time, error)
}

// Options configures a Server.
type Options struct {
	AllowedOrigins []string
	WindowDays     int
	MaxUploadBytes int64
	Location       *time.Location
	Now            func() time.Time
}

// Server holds the handler dependencies.
type Server struct {
	importer Importer
	orders   Orders
	store    *view.Store
	exporter *export.Exporter
	logger   *zap.Logger
	opts     Options
}

func NewServer(importer Importer, orders Orders, store *view.Store, exporter *export.Exporter, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = view.NewStore()
	}
	if exporter == nil {
		exporter = export.NewExporter()
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 7
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		importer: importer,
		orders:   orders,
		store:    store,
		exporter: exporter,
		logger:   logger.With(zap.String("component", "httpapi")),
		opts:     opts,
	}
}

// Routes builds the router with CORS, access logging and the per-request order loader.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.LoggingMiddleware(s.logger))
	r.Use(middleware.DataLoaderMiddleware(s.orders))

	r.Get("/healthz", s.handleHealth)
	r.Get("/view", s.handleView)

	r.Route("/imports", func(r chi.Router) {
		r.Post("/", s.handleImport)
		r.Get("/{batchID}/logs", s.handleImportLogs)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", s.handleReload)
		r.Post("/status", s.handleBulkStatus)
		r.Patch("/{id}/status", s.handleStatus)
	})

	r.Get("/exports/current", s.handleExport)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"ETag", "Content-Disposition"},
	})
	return corsHandler.Handler(r)
}

// HTTPServer wraps Routes in an http.Server with the given timeouts.
func (s *Server) HTTPServer(addr string, read, write, idle time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}
}

func (s *Server) windowStart(days int) time.Time {
	now := s.opts.Now().In(s.opts.Location)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.opts.Location)
	return midnight.AddDate(0, 0, -days)
}

// reload fetches the window starting at since and publishes it.
func (s *Server) reload(ctx context.Context, since time.Time) (view.State, error) {
	orders, err := s.orders.FetchSince(ctx, since)
	if err != nil {
		return view.State{}, err
	}
	return s.store.Reload(since, s.opts.Now(), orders), nil
}
