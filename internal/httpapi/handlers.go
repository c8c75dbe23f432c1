package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/consulta/internal/domain"
	"github.com/rpattn/consulta/internal/export"
	"github.com/rpattn/consulta/internal/gateway"
	"github.com/rpattn/consulta/internal/ingestion"
	"github.com/rpattn/consulta/internal/middleware"
	"github.com/rpattn/consulta/internal/view"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sinceLayout = "2006-01-02"

type importResponse struct {
	Summary ingestion.Summary `json:"summary"`
	View    view.State        `json:"view"`
}

type statusPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type statusResponse struct {
	Order   domain.DisplayOrder `json:"order"`
	Version uint64              `json:"version"`
}

type bulkResult struct {
	ID     string               `json:"id"`
	Order  *domain.DisplayOrder `json:"order,omitempty"`
	Error  string               `json:"error,omitempty"`
	Status int                  `json:"status"`
}

type bulkResponse struct {
	Results []bulkResult `json:"results"`
	Version uint64       `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	state := s.store.Current()
	setVersion(w, state.Version)
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("file field is required: %w", err))
		return
	}
	defer file.Close()

	summary, err := s.importer.Import(r.Context(), ingestion.Request{FileName: header.Filename, Data: file})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, gateway.ErrStorage) {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]any{"error": err.Error(), "summary": summary})
		return
	}

	state, err := s.reload(r.Context(), s.windowStart(s.opts.WindowDays))
	if err != nil {
		s.fail(w, err)
		return
	}
	setVersion(w, state.Version)
	writeJSON(w, http.StatusCreated, importResponse{Summary: summary, View: state})
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid batch identifier: %w", err))
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 200)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	entries, err := s.importer.Logs(r.Context(), batchID, limit, offset)
	if err != nil {
		s.fail(w, fmt.Errorf("%w: %w", gateway.ErrStorage, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	since, err := s.parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	state, err := s.reload(r.Context(), since)
	if err != nil {
		s.fail(w, err)
		return
	}
	setVersion(w, state.Version)
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid order identifier: %w", err))
		return
	}
	var payload statusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	status, err := domain.ParseStatus(payload.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", gateway.ErrInvalidStatus, err))
		return
	}

	expected, guarded, err := ifMatch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if guarded {
		if err := s.store.Check(expected); err != nil {
			s.fail(w, err)
			return
		}
	}

	if _, err := s.orders.UpdateStatus(r.Context(), id, status); err != nil {
		s.fail(w, err)
		return
	}

	order, err := s.loadOrder(r, id)
	if err != nil {
		s.fail(w, err)
		return
	}
	state, err := s.publish(expected, guarded, func(current view.State) view.State {
		next, ok := current.WithOrder(order)
		if !ok {
			return current
		}
		return next
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	setVersion(w, state.Version)
	writeJSON(w, http.StatusOK, statusResponse{Order: order, Version: state.Version})
}

func (s *Server) handleBulkStatus(w http.ResponseWriter, r *http.Request) {
	var payload []statusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	expected, guarded, err := ifMatch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if guarded {
		if err := s.store.Check(expected); err != nil {
			s.fail(w, err)
			return
		}
	}

	results := make([]bulkResult, len(payload))
	updated := make([]uuid.UUID, 0, len(payload))
	slots := make([]int, 0, len(payload))
	for i, item := range payload {
		results[i] = bulkResult{ID: item.ID, Status: http.StatusOK}
		id, err := uuid.Parse(strings.TrimSpace(item.ID))
		if err != nil {
			results[i].Status, results[i].Error = http.StatusBadRequest, fmt.Sprintf("invalid order identifier: %v", err)
			continue
		}
		status, err := domain.ParseStatus(item.Status)
		if err != nil {
			results[i].Status, results[i].Error = http.StatusBadRequest, fmt.Errorf("%w: %w", gateway.ErrInvalidStatus, err).Error()
			continue
		}
		if _, err := s.orders.UpdateStatus(r.Context(), id, status); err != nil {
			results[i].Status, results[i].Error = statusFor(err), err.Error()
			continue
		}
		updated = append(updated, id)
		slots = append(slots, i)
	}

	orders, errs := s.loadOrders(r, updated)
	for n, slot := range slots {
		if n < len(errs) && errs[n] != nil {
			results[slot].Status, results[slot].Error = statusFor(errs[n]), errs[n].Error()
			continue
		}
		order := orders[n]
		results[slot].Order = &order
	}

	state, err := s.publish(expected, guarded, func(current view.State) view.State {
		next := current
		for _, result := range results {
			if result.Order == nil {
				continue
			}
			if candidate, ok := next.WithOrder(*result.Order); ok {
				next = candidate
			}
		}
		return next
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	setVersion(w, state.Version)
	writeJSON(w, http.StatusOK, bulkResponse{Results: results, Version: state.Version})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	state := s.store.Current()

	var buf bytes.Buffer
	if _, err := s.exporter.Export(&buf, state.Orders); err != nil {
		s.logger.Error("export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", s.exporter.CurrentFileName()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	setVersion(w, state.Version)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) loadOrder(r *http.Request, id uuid.UUID) (domain.DisplayOrder, error) {
	if loader := middleware.OrderLoaderFromContext(r.Context()); loader != nil {
		return loader.Load(r.Context(), id)
	}
	orders, err := s.orders.Load(r.Context(), []uuid.UUID{id})
	if err != nil {
		return domain.DisplayOrder{}, err
	}
	if len(orders) == 0 {
		return domain.DisplayOrder{}, fmt.Errorf("%w: %s", gateway.ErrOrderNotFound, id)
	}
	return orders[0], nil
}

func (s *Server) loadOrders(r *http.Request, ids []uuid.UUID) ([]domain.DisplayOrder, []error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if loader := middleware.OrderLoaderFromContext(r.Context()); loader != nil {
		return loader.LoadMany(r.Context(), ids)
	}
	orders := make([]domain.DisplayOrder, len(ids))
	var errs []error
	for i, id := range ids {
		order, err := s.loadOrder(r, id)
		if err != nil {
			if errs == nil {
				errs = make([]error, len(ids))
			}
			errs[i] = err
			continue
		}
		orders[i] = order
	}
	return orders, errs
}

// publish replaces the edited order in the latest state. Orders outside the
// shown window leave the state as it is.
// publish applies fn to the view. When the request carried If-Match the
// version is re-checked atomically with the publish, so a reload that landed
// after the write turns the response into ErrStale.
func (s *Server) publish(expected uint64, guarded bool, fn func(view.State) view.State) (view.State, error) {
	if !guarded {
		return s.store.Apply(fn), nil
	}
	state, err := s.store.ApplyAt(expected, fn)
	if err != nil {
		return state, fmt.Errorf("status stored but the view changed, reload it: %w", err)
	}
	return state, nil
}

func (s *Server) parseWindow(r *http.Request) (time.Time, error) {
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("since")); raw != "" {
		since, err := time.ParseInLocation(sinceLayout, raw, s.opts.Location)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid since date %q, expected YYYY-MM-DD", raw)
		}
		return since, nil
	}
	days := s.opts.WindowDays
	if raw := strings.TrimSpace(query.Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return time.Time{}, fmt.Errorf("invalid days %q", raw)
		}
		days = parsed
	}
	return s.windowStart(days), nil
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, view.ErrStale):
		return http.StatusConflict
	case errors.Is(err, gateway.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, gateway.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrStorage):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ifMatch parses an If-Match header carrying a view version, quoted or bare.
func ifMatch(r *http.Request) (uint64, bool, error) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" || raw == "*" {
		return 0, false, nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	raw = strings.Trim(raw, `"`)
	version, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid If-Match version %q", raw)
	}
	return version, true, nil
}

func setVersion(w http.ResponseWriter, version uint64) {
	w.Header().Set("ETag", strconv.Quote(strconv.FormatUint(version, 10)))
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
