package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/consulta/internal/domain"
	"github.com/rpattn/consulta/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoQualifyingRows is returned when no row survives filtering.
var ErrNoQualifyingRows = errors.New("no qualifying rows found")

// Inserter persists a reduced batch.
type Inserter interface {
	InsertBatch(ctx context.Context, orders []domain.Order) error
}

// Service runs the import pipeline: read, extract, reduce, persist.
type Service struct {
	extractor *Extractor
	store     Inserter
	logRepo   repository.ImportLogRepository
	logger    *zap.Logger
	newID     func() uuid.UUID
}

// NewService creates a new import service. logRepo may be nil.
func NewService(extractor *Extractor, store Inserter, logRepo repository.ImportLogRepository, logger *zap.Logger) *Service {
	if extractor == nil {
		extractor = NewExtractor(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		extractor: extractor,
		store:     store,
		logRepo:   logRepo,
		logger:    logger.With(zap.String("component", "ingestion")),
		newID:     uuid.New,
	}
}

// Request describes the import input.
type Request struct {
	FileName string
	Data     io.Reader
}

// Summary returns import level metrics.
type Summary struct {
	BatchID     uuid.UUID    `json:"batchId"`
	FileName    string       `json:"fileName"`
	RowsScanned int          `json:"rowsScanned"`
	Candidates  int          `json:"candidates"`
	Dropped     int          `json:"dropped"`
	Duplicates  int          `json:"duplicates"`
	Imported    int          `json:"imported"`
	ParseIssues []ParseIssue `json:"parseIssues"`
	// BlockingIssues are the parse issues carried into the stored batch. They
	// are set only when storage rejected the batch.
	BlockingIssues []ParseIssue `json:"blockingIssues,omitempty"`
}

// Import reads the uploaded file and persists the reduced batch. Parse issues
// are reported and the raw values passed on; input and storage errors abort.
// When storage rejects a batch that carried raw dates, BlockingIssues and the
// returned error name the offending rows.
func (s *Service) Import(ctx context.Context, req Request) (Summary, error) {
	summary := Summary{
		BatchID:     s.newID(),
		FileName:    req.FileName,
		ParseIssues: []ParseIssue{},
	}
	logger := s.logger.With(zap.Stringer("batch", summary.BatchID), zap.String("file", req.FileName))

	if req.Data == nil {
		return summary, s.fail(ctx, summary, logger, domain.ImportLogInput, errors.New("data reader is required"))
	}
	if s.store == nil {
		return summary, s.fail(ctx, summary, logger, domain.ImportLogStorage, errors.New("import store is not configured"))
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return summary, s.fail(ctx, summary, logger, domain.ImportLogInput, fmt.Errorf("failed to read upload: %w", err))
	}

	sheet, err := ReadSheet(req.FileName, payload)
	if err != nil {
		return summary, s.fail(ctx, summary, logger, domain.ImportLogInput, err)
	}

	candidates, issues, err := s.extractor.Extract(sheet)
	if err != nil {
		return summary, s.fail(ctx, summary, logger, domain.ImportLogInput, err)
	}
	summary.RowsScanned = max(sheet.LastRow()-1, 0)
	summary.Candidates = len(candidates)

	for _, issue := range issues {
		summary.ParseIssues = append(summary.ParseIssues, issue)
		logger.Warn("date left unnormalized", zap.Int("row", issue.Row), zap.String("column", issue.Column), zap.String("value", issue.Value))
		s.record(ctx, summary, &issue.Row, domain.ImportLogParse, issue.String())
	}

	allowed := FilterAllowed(candidates)
	reduced := Deduplicate(allowed)
	summary.Dropped = len(candidates) - len(allowed)
	summary.Duplicates = len(allowed) - len(reduced)

	if len(reduced) == 0 {
		return summary, s.fail(ctx, summary, logger, domain.ImportLogInput,
			fmt.Errorf("%w in %s (accepted events: %q, %q)", ErrNoQualifyingRows, displayName(req.FileName), domain.EventReceivedAtBase, domain.EventCollected))
	}

	if err := s.store.InsertBatch(ctx, reduced); err != nil {
		summary.BlockingIssues = blockingIssues(reduced, summary.ParseIssues)
		if len(summary.BlockingIssues) > 0 {
			rows := issueRows(summary.BlockingIssues)
			logger.Warn("batch carried unnormalized dates", zap.Ints("rows", rows))
			err = fmt.Errorf("%w (unrecognized dates in rows %s)", err, joinRows(rows))
		}
		return summary, s.fail(ctx, summary, logger, domain.ImportLogStorage, err)
	}
	summary.Imported = len(reduced)

	logger.Info("import completed",
		zap.Int("rows", summary.RowsScanned),
		zap.Int("candidates", summary.Candidates),
		zap.Int("dropped", summary.Dropped),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("imported", summary.Imported),
		zap.Int("parse_issues", len(summary.ParseIssues)),
	)
	return summary, nil
}

// Logs lists diagnostics recorded for a batch.
func (s *Service) Logs(ctx context.Context, batchID uuid.UUID, limit, offset int) ([]domain.ImportLogEntry, error) {
	if s.logRepo == nil {
		return []domain.ImportLogEntry{}, nil
	}
	return s.logRepo.List(ctx, batchID, limit, offset)
}

func (s *Service) fail(ctx context.Context, summary Summary, logger *zap.Logger, kind domain.ImportLogKind, err error) error {
	logger.Error("import failed", zap.String("kind", string(kind)), zap.Error(err))
	s.record(ctx, summary, nil, kind, err.Error())
	return err
}

func (s *Service) record(ctx context.Context, summary Summary, rowNumber *int, kind domain.ImportLogKind, message string) {
	if s.logRepo == nil {
		return
	}
	entry := domain.ImportLogEntry{
		BatchID:   summary.BatchID,
		FileName:  summary.FileName,
		RowNumber: rowNumber,
		Kind:      kind,
		Message:   message,
	}
	if err := s.logRepo.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record import log", zap.Error(err))
	}
}

// blockingIssues returns, for each reduced order still holding a raw date,
// the issue of the row it was taken from.
func blockingIssues(reduced []domain.Order, issues []ParseIssue) []ParseIssue {
	var blocking []ParseIssue
	for _, order := range reduced {
		if _, err := time.Parse(domain.CanonicalLayout, order.LastEventAt); err == nil {
			continue
		}
		for i := len(issues) - 1; i >= 0; i-- {
			if issues[i].Reference == order.Reference && issues[i].Value == order.LastEventAt {
				blocking = append(blocking, issues[i])
				break
			}
		}
	}
	return blocking
}

func issueRows(issues []ParseIssue) []int {
	rows := make([]int, len(issues))
	for i, issue := range issues {
		rows[i] = issue.Row
	}
	return rows
}

func joinRows(rows []int) string {
	parts := make([]string, len(rows))
	for i, row := range rows {
		parts[i] = strconv.Itoa(row)
	}
	return strings.Join(parts, ", ")
}

func displayName(fileName string) string {
	if strings.TrimSpace(fileName) == "" {
		return "upload"
	}
	return fileName
}
