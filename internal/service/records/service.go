// Package records groups table rows on behalf of the API and CLI: it resolves
// the source table, builds and runs the plan, reduces the metadata, and
// applies the optional group filter.
package records

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"duck-grouper/internal/domain"
	"duck-grouper/internal/grouping"
)

// Engine is the subset of the DuckDB engine the service needs.
type Engine interface {
	LookupTable(ctx context.Context, schema, name string) (*grouping.StaticTable, error)
	FileTable(ctx context.Context, path string) (*grouping.StaticTable, error)
	Run(ctx context.Context, plan *grouping.Plan) ([]domain.Record, error)
}

// Request asks for one table, or one file, to be grouped.
type Request struct {
	Table     string           `json:"table,omitempty" yaml:"table"`
	Schema    string           `json:"schema,omitempty" yaml:"schema"`
	Path      string           `json:"path,omitempty" yaml:"path"`
	Columns   []string         `json:"columns" yaml:"columns"`
	Mode      domain.GroupMode `json:"mode" yaml:"mode"`
	NumGroups int              `json:"num_groups,omitempty" yaml:"num_groups"`
	Filter    string           `json:"filter,omitempty" yaml:"filter"`
}

// GroupBy returns the grouping specification of the request.
func (r Request) GroupBy() grouping.GroupBy {
	return grouping.NewGroupBy(r.Columns, r.Mode, r.NumGroups)
}

// Source names the table or file the request reads.
func (r Request) Source() string {
	if r.Path != "" {
		return r.Path
	}
	if r.Schema != "" {
		return r.Schema + "." + r.Table
	}
	return r.Table
}

// Validate checks the request without touching the engine.
func (r Request) Validate() error {
	table := strings.TrimSpace(r.Table)
	path := strings.TrimSpace(r.Path)
	switch {
	case table == "" && path == "":
		return domain.ErrValidation("one of table or path is required")
	case table != "" && path != "":
		return domain.ErrValidation("table and path are mutually exclusive")
	case path != "" && r.Schema != "":
		return domain.ErrValidation("schema only applies to table requests")
	}
	return r.GroupBy().Validate()
}

// Result is the outcome of a grouping request. Groups is nil only when no
// row carried group metadata, which happens for empty tables.
type Result struct {
	RequestID string                 `json:"request_id"`
	SQL       string                 `json:"sql"`
	Records   []domain.Record        `json:"records"`
	Groups    []domain.GroupMetadata `json:"groups"`
}

// FileSources controls which path requests a Service accepts.
type FileSources int

const (
	// FileSourcesDisabled rejects every path request.
	FileSourcesDisabled FileSources = iota
	// FileSourcesLocal accepts plain local paths. URLs and glob patterns are
	// rejected.
	FileSourcesLocal
	// FileSourcesAny hands paths to the engine unchanged.
	FileSourcesAny
)

// DefaultMaxBatchSize is the GroupBatch limit unless WithMaxBatchSize is set.
const DefaultMaxBatchSize = 100

// Option configures a Service.
type Option func(*Service)

// WithFileSources sets the path request policy. The default is
// FileSourcesDisabled.
func WithFileSources(policy FileSources) Option {
	return func(s *Service) { s.fileSources = policy }
}

// WithMaxBatchSize bounds the number of requests in one GroupBatch call.
// Values below 1 keep DefaultMaxBatchSize.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// Service executes grouping requests.
type Service struct {
	engine       Engine
	logger       *slog.Logger
	concurrency  int
	fileSources  FileSources
	maxBatchSize int
}

// NewService creates a Service. concurrency bounds GroupBatch; values below 1
// mean one request at a time.
func NewService(engine Engine, logger *slog.Logger, concurrency int, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	s := &Service{
		engine:       engine,
		logger:       logger,
		concurrency:  concurrency,
		fileSources:  FileSourcesDisabled,
		maxBatchSize: DefaultMaxBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// checkSource applies the file source policy to req.
func (s *Service) checkSource(req Request) error {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return nil
	}
	switch s.fileSources {
	case FileSourcesAny:
		return nil
	case FileSourcesLocal:
		if strings.Contains(path, "://") {
			return domain.ErrValidation("path %q: remote file sources are not allowed", path)
		}
		if strings.ContainsAny(path, "*?[{") {
			return domain.ErrValidation("path %q: glob patterns are not allowed", path)
		}
		return nil
	default:
		return domain.ErrValidation("file sources are disabled; group a table instead")
	}
}

// Plan builds the grouping query for req without executing it.
func (s *Service) Plan(ctx context.Context, req Request) (*Result, error) {
	plan, _, err := s.plan(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Result{RequestID: requestID(ctx), SQL: plan.SQL()}, nil
}

// Group runs req and returns the stripped records and their groups. When a
// filter is set, only groups matching it and their records are returned.
func (s *Service) Group(ctx context.Context, req Request) (*Result, error) {
	id := requestID(ctx)
	start := time.Now()

	plan, filter, err := s.plan(ctx, req)
	if err != nil {
		return nil, err
	}

	rows, err := s.engine.Run(ctx, plan)
	if err != nil {
		s.logger.Warn("group request failed", "request_id", id, "source", req.Source(), "error", err)
		return nil, err
	}

	records, groups, err := grouping.ExtractGroupMetadata(rows)
	if err != nil {
		return nil, fmt.Errorf("extract group metadata: %w", err)
	}

	if filter != nil {
		records, groups, err = filter.apply(records, groups)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("group request",
		"request_id", id,
		"source", req.Source(),
		"mode", plan.Mode,
		"rows", len(records),
		"groups", len(groups),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		RequestID: id,
		SQL:       plan.SQL(),
		Records:   records,
		Groups:    groups,
	}, nil
}

// GroupBatch runs independent requests concurrently. Results keep request
// order; the first failure cancels the remaining requests.
func (s *Service) GroupBatch(ctx context.Context, reqs []Request) ([]*Result, error) {
	if len(reqs) == 0 {
		return nil, domain.ErrValidation("batch must contain at least one request")
	}
	if len(reqs) > s.maxBatchSize {
		return nil, domain.ErrValidation("batch has %d requests, at most %d are allowed", len(reqs), s.maxBatchSize)
	}
	for i, req := range reqs {
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		if err := s.checkSource(req); err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
	}

	results := make([]*Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	batchID := RequestIDFromContext(ctx)
	for i := range reqs {
		g.Go(func() error {
			rctx := gctx
			if batchID != "" {
				rctx = WithRequestID(gctx, fmt.Sprintf("%s-%d", batchID, i))
			}
			res, err := s.Group(rctx, reqs[i])
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type requestIDKey struct{}

// WithRequestID returns ctx carrying the id reported in results.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID returns the caller's id, or a fresh UUID.
func requestID(ctx context.Context) string {
	if id := RequestIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// plan validates req, resolves its source, and builds the plan. Grouping
// errors are returned before the engine is consulted.
func (s *Service) plan(ctx context.Context, req Request) (*grouping.Plan, *groupFilter, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	if err := s.checkSource(req); err != nil {
		return nil, nil, err
	}

	var filter *groupFilter
	if strings.TrimSpace(req.Filter) != "" {
		var err error
		if filter, err = compileFilter(req.Filter); err != nil {
			return nil, nil, err
		}
	}

	var (
		table *grouping.StaticTable
		err   error
	)
	if req.Path != "" {
		table, err = s.engine.FileTable(ctx, req.Path)
	} else {
		table, err = s.engine.LookupTable(ctx, req.Schema, req.Table)
	}
	if err != nil {
		return nil, nil, err
	}

	plan, err := grouping.BuildPlan(table, req.GroupBy())
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("plan built", "source", req.Source(), "mode", plan.Mode, "sql", plan.SQL())
	return plan, filter, nil
}
