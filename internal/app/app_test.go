package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rpattn/consulta/internal/config"
	"github.com/rpattn/consulta/internal/domain"
	"github.com/rpattn/consulta/internal/ingestion"
)

func memoryApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Ingestion.Timezone = "UTC"
	if mutate != nil {
		mutate(&cfg)
	}
	now := func() time.Time { return time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC) }
	application, err := New(context.Background(), cfg, nil, Options{Memory: true, Now: now})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(application.Close)
	return application
}

func TestWindowStartIsLocalMidnight(t *testing.T) {
	application := memoryApp(t, nil)

	want := time.Date(2024, 4, 24, 0, 0, 0, 0, time.UTC)
	if got := application.WindowStart(-1); !got.Equal(want) {
		t.Fatalf("expected default window start %v, got %v", want, got)
	}
	if got := application.WindowStart(0); !got.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected zero-day window %v", got)
	}
}

func TestMemoryAppImportsAndReloads(t *testing.T) {
	application := memoryApp(t, func(cfg *config.Config) {
		cfg.Ingestion.ReferenceColumn = "A"
		cfg.Ingestion.EventColumn = "B"
		cfg.Ingestion.EventAtColumn = "C"
		cfg.Ingestion.MerchandiseColumn = "D"
	})
	ctx := context.Background()

	csvPayload := "ref,event,at,value\nREF1,Coletado,01/02/2023 08:15,9.9\n"
	summary, err := application.Importer.Import(ctx, ingestion.Request{FileName: "x.csv", Data: bytes.NewBufferString(csvPayload)})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Imported != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	state, err := application.Reload(ctx, 1)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(state.Orders) != 1 || state.Orders[0].ValorMercadoria != "9.90" || state.Orders[0].Status != domain.StatusPending {
		t.Fatalf("unexpected view %+v", state)
	}
	if application.Exporter.CurrentFileName() != "ConsultaDafiti-01-05-2024.xlsx" {
		t.Fatalf("unexpected export name %q", application.Exporter.CurrentFileName())
	}
}

func TestNewExtractorResolvesHeaders(t *testing.T) {
	cfg := config.Default().Ingestion
	cfg.ResolveByHeader = true

	sheet := ingestion.Sheet{Rows: [][]string{{"Referência", "Última Ocorrência"}}}
	if _, _, err := NewExtractor(cfg, time.UTC).Extract(sheet); err == nil {
		t.Fatalf("expected missing column error in header mode")
	}
}

func TestNewRejectsUnknownTimezone(t *testing.T) {
	cfg := config.Default()
	cfg.Ingestion.Timezone = "Nowhere/Special"
	if _, err := New(context.Background(), cfg, nil, Options{Memory: true}); err == nil {
		t.Fatalf("expected timezone error")
	}
}
