package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// ErrRunNotFound is returned for unknown or expired run ids.
	ErrRunNotFound = errors.New("import run not found")
	// ErrNoReport is returned when a run recorded no errors.
	ErrNoReport = errors.New("no error report for this run")
	// ErrNoFile is returned when an import is started without a file.
	ErrNoFile = errors.New("no file provided")
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid import request")
)

// Default service settings.
const (
	DefaultImportTimeout   = 10 * time.Minute
	DefaultResultRetention = time.Hour
)

// ServiceConfig holds the import service settings.
type ServiceConfig struct {
	MaxConcurrent   int
	MaxWait         time.Duration
	Timeout         time.Duration
	ResultRetention time.Duration
	ReportPrefix    string
}

// ImportRequest describes one import run.
type ImportRequest struct {
	Actor    string `validate:"required,max=100"`
	FileName string `validate:"required,max=255"`
	DryRun   bool
}

// ImportRun is a finished run kept for later retrieval.
type ImportRun struct {
	ID         string     `json:"run_id"`
	FileName   string     `json:"file_name"`
	Actor      string     `json:"actor"`
	DryRun     bool       `json:"dry_run"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	BytesRead  int64      `json:"bytes_read"`
	Result     *RunResult `json:"result"`
	Report     *Report    `json:"-"`
}

// Service runs imports and exports and retains run results.
type Service struct {
	store    RecordStore
	taxonomy Taxonomy
	exporter *Exporter
	fields   *Registry
	limiter  *ImportLimiter
	validate *validator.Validate
	cfg      ServiceConfig
	now      func() time.Time
	logFor   func(context.Context) *slog.Logger

	mu   sync.RWMutex
	runs map[string]*ImportRun
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithFieldRegistry replaces the default field registry.
func WithFieldRegistry(reg *Registry) ServiceOption {
	return func(s *Service) { s.fields = reg }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithContextLogger derives run loggers from the request context, so that
// request ids reach the run's log lines.
func WithContextLogger(fn func(context.Context) *slog.Logger) ServiceOption {
	return func(s *Service) { s.logFor = fn }
}

// NewService creates the import service.
func NewService(store RecordStore, taxonomy Taxonomy, source ExportSource, cfg ServiceConfig, opts ...ServiceOption) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultImportTimeout
	}
	if cfg.ResultRetention <= 0 {
		cfg.ResultRetention = DefaultResultRetention
	}
	if cfg.ReportPrefix == "" {
		cfg.ReportPrefix = DefaultReportPrefix
	}

	s := &Service{
		store:    store,
		taxonomy: taxonomy,
		fields:   defaultRegistry,
		limiter:  NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		validate: validator.New(),
		cfg:      cfg,
		now:      time.Now,
		logFor:   func(context.Context) *slog.Logger { return slog.Default() },
		runs:     make(map[string]*ImportRun),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.exporter = NewExporter(source, s.fields)
	return s
}

// Limiter exposes the run limiter for health reporting and shutdown.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// Import reconciles the file in r and retains the result.
//
// Run-fatal failures (unreadable or empty file, busy importer) return an
// error and retain nothing. Row and field failures are part of the result.
func (s *Service) Import(ctx context.Context, req ImportRequest, r io.Reader) (*ImportRun, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if r == nil {
		return nil, ErrNoFile
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	run := &ImportRun{
		ID:        uuid.New().String(),
		FileName:  req.FileName,
		Actor:     req.Actor,
		DryRun:    req.DryRun,
		StartedAt: s.now(),
	}
	logger := s.logFor(ctx).With(
		"run_id", run.ID,
		"file", req.FileName,
		"actor", req.Actor,
	)
	logger.Info("import started", "dry_run", req.DryRun)

	counter := NewCountingReader(r)
	src, err := OpenSource(counter, req.FileName)
	if err != nil {
		logger.Warn("import rejected", "error", err)
		return nil, err
	}
	defer src.Close()

	reconciler := NewReconciler(s.store, s.taxonomy,
		WithRegistry(s.fields),
		WithDryRun(req.DryRun),
		WithLogger(logger),
	)
	result, err := reconciler.Run(ctx, Actor{ID: req.Actor}, src)
	if err != nil {
		logger.Warn("import failed", "error", err, "bytes", counter.BytesRead)
		return nil, err
	}

	run.FinishedAt = s.now()
	run.BytesRead = counter.BytesRead
	run.Result = result

	report, err := BuildErrorReport(result.Errors, s.cfg.ReportPrefix, run.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("build error report: %w", err)
	}
	run.Report = report

	s.mu.Lock()
	s.pruneLocked(run.FinishedAt)
	s.runs[run.ID] = run
	s.mu.Unlock()

	logger.Info("import completed",
		"bytes", run.BytesRead,
		"duration", run.FinishedAt.Sub(run.StartedAt),
		"report", report != nil,
	)
	return run, nil
}

// Run returns a retained run.
func (s *Service) Run(runID string) (*ImportRun, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()

	if !ok || s.expired(run, s.now()) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

// Report returns the error report of a retained run.
func (s *Service) Report(runID string) (*Report, error) {
	run, err := s.Run(runID)
	if err != nil {
		return nil, err
	}
	if run.Report == nil {
		return nil, ErrNoReport
	}
	return run.Report, nil
}

// Runs lists retained runs, most recent first.
func (s *Service) Runs() []*ImportRun {
	now := s.now()

	s.mu.RLock()
	out := make([]*ImportRun, 0, len(s.runs))
	for _, run := range s.runs {
		if !s.expired(run, now) {
			out = append(out, run)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FinishedAt.After(out[j].FinishedAt) })
	return out
}

// Export writes the catalog to w.
func (s *Service) Export(ctx context.Context, w io.Writer) (int, error) {
	return s.exporter.Export(ctx, w)
}

// Stats counts the records Export would write.
func (s *Service) Stats(ctx context.Context) (ExportStats, error) {
	return s.exporter.Stats(ctx)
}

// Codes returns the error code catalogue.
func (s *Service) Codes() []CodeInfo {
	return Codes()
}

func (s *Service) expired(run *ImportRun, now time.Time) bool {
	return now.Sub(run.FinishedAt) > s.cfg.ResultRetention
}

func (s *Service) pruneLocked(now time.Time) {
	for id, run := range s.runs {
		if s.expired(run, now) {
			delete(s.runs, id)
		}
	}
}
