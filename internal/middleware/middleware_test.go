package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpattn/consulta/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type nopSource struct{}

func (nopSource) Load(context.Context, []uuid.UUID) ([]domain.DisplayOrder, error) {
	return nil, nil
}

func TestLoggingMiddlewareRecordsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := LoggingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/view", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) || fields["path"] != "/view" || fields["bytes"] != int64(15) {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestDataLoaderMiddlewareAttachesFreshLoader(t *testing.T) {
	var seen []any
	handler := DataLoaderMiddleware(nopSource{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loader := OrderLoaderFromContext(r.Context())
		if loader == nil {
			t.Fatalf("loader missing from context")
		}
		seen = append(seen, loader)
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if len(seen) != 2 || seen[0] == seen[1] {
		t.Fatalf("each request needs its own loader")
	}
	if OrderLoaderFromContext(context.Background()) != nil {
		t.Fatalf("expected nil outside a request")
	}
}
