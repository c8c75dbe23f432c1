// Package app wires configuration into the running components shared by the
// server and the CLI commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/consulta/internal/config"
	"github.com/rpattn/consulta/internal/db"
	"github.com/rpattn/consulta/internal/export"
	"github.com/rpattn/consulta/internal/gateway"
	"github.com/rpattn/consulta/internal/httpapi"
	"github.com/rpattn/consulta/internal/ingestion"
	"github.com/rpattn/consulta/internal/repository"
	"github.com/rpattn/consulta/internal/view"

	"go.uber.org/zap"
)

// App holds the wired components.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Location *time.Location
	Gateway  *gateway.Gateway
	Importer *ingestion.Service
	Exporter *export.Exporter
	View     *view.Store

	conn *db.Connection
	now  func() time.Time
}

// Options customizes wiring.
type Options struct {
	// Memory replaces Postgres with in-process repositories.
	Memory bool
	Now    func() time.Time
}

// New connects to storage and builds every component from cfg.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc, err := cfg.Ingestion.Location()
	if err != nil {
		return nil, err
	}

	var (
		conn   *db.Connection
		orders repository.OrderRepository
		logs   repository.ImportLogRepository
	)
	if opts.Memory {
		orders = repository.NewMemoryOrderRepository(now)
		logs = repository.NewMemoryImportLogRepository()
		logger.Warn("using in-memory storage, data is lost on exit")
	} else {
		conn, err = db.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		orders = repository.NewOrderRepository(conn)
		logs = repository.NewImportLogRepository(conn.Pool)
	}

	gw := gateway.New(orders, logger, gateway.WithClock(now), gateway.WithLocation(loc))

	return &App{
		Config:   cfg,
		Logger:   logger,
		Location: loc,
		Gateway:  gw,
		Importer: ingestion.NewService(NewExtractor(cfg.Ingestion, loc), gw, logs, logger),
		Exporter: export.NewExporter(
			export.WithFilePrefix(cfg.Export.FilePrefix),
			export.WithSheetName(cfg.Export.SheetName),
			export.WithClock(func() time.Time { return now().In(loc) }),
			export.WithLogger(logger),
		),
		View: view.NewStore(),
		conn: conn,
		now:  now,
	}, nil
}

// NewExtractor builds the row extractor described by cfg.
func NewExtractor(cfg config.IngestionConfig, loc *time.Location) *ingestion.Extractor {
	opts := []ingestion.ExtractorOption{
		ingestion.WithColumns(ingestion.Columns{
			Reference:   cfg.ReferenceColumn,
			Event:       cfg.EventColumn,
			EventAt:     cfg.EventAtColumn,
			Merchandise: cfg.MerchandiseColumn,
		}),
	}
	if cfg.ResolveByHeader {
		opts = append(opts, ingestion.WithHeaderResolution(ingestion.HeaderNames{
			Reference:   cfg.ReferenceHeader,
			Event:       cfg.EventHeader,
			EventAt:     cfg.EventAtHeader,
			Merchandise: cfg.MerchandiseHeader,
		}))
	}
	return ingestion.NewExtractor(ingestion.NewDateNormalizer(loc), opts...)
}

// WindowStart is local midnight days before now.
func (a *App) WindowStart(days int) time.Time {
	if days < 0 {
		days = a.Config.Display.WindowDays
	}
	now := a.now().In(a.Location)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.Location)
	return midnight.AddDate(0, 0, -days)
}

// Reload fetches the display window and publishes it to the view store.
func (a *App) Reload(ctx context.Context, days int) (view.State, error) {
	since := a.WindowStart(days)
	orders, err := a.Gateway.FetchSince(ctx, since)
	if err != nil {
		return view.State{}, err
	}
	return a.View.Reload(since, a.now(), orders), nil
}

// Server builds the HTTP API over the wired components.
func (a *App) Server() *httpapi.Server {
	return httpapi.NewServer(a.Importer, a.Gateway, a.View, a.Exporter, a.Logger, httpapi.Options{
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		WindowDays:     a.Config.Display.WindowDays,
		MaxUploadBytes: a.Config.Server.MaxUploadBytes,
		Location:       a.Location,
		Now:            a.now,
	})
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.conn != nil {
		a.conn.Close()
	}
}
