package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/JonMunkholm/catalogsheet/internal/config"
	"github.com/JonMunkholm/catalogsheet/internal/logging"
)

// RuleSource returns the attribute rules for a scope.
type RuleSource interface {
	FetchRules(ctx context.Context, scope Scope) ([]RuleRecord, error)
}

// CatalogSource looks up previously saved catalog records by sku.
type CatalogSource interface {
	FetchExisting(ctx context.Context, scope Scope, skus []string) (map[string]*CatalogRecord, error)
}

// CatalogSaver persists reconciled records.
type CatalogSaver interface {
	SaveRecords(ctx context.Context, records []*CatalogRecord) error
}

// Sources bundles the external collaborators the service depends on.
type Sources struct {
	CategoryRules RuleSource
	AccountRules  RuleSource
	Catalog       CatalogSource
	Warehouses    WarehouseDirectory
	Saver         CatalogSaver // optional
}

// Service is the entry point for compile, parse and render operations.
// It holds no per-sheet state; every call builds its own model.
type Service struct {
	sources        Sources
	limiter        *ParseLimiter
	rowConcurrency int
	validationRows int
	localChecks    bool
}

// NewService creates a service from its collaborators and configuration.
func NewService(sources Sources, cfg *config.Config) (*Service, error) {
	if sources.CategoryRules == nil {
		return nil, errors.New("category rule source is required")
	}
	if sources.Catalog == nil {
		return nil, errors.New("catalog source is required")
	}
	if sources.Warehouses == nil {
		sources.Warehouses = StaticDirectory(nil)
	}

	return &Service{
		sources:        sources,
		limiter:        NewParseLimiter(cfg.Parse.MaxConcurrent, cfg.Parse.MaxWaitTime),
		rowConcurrency: cfg.Parse.RowConcurrency,
		validationRows: cfg.Render.ValidationRows,
		localChecks:    cfg.Parse.LocalChecks,
	}, nil
}

// CompileSchema fetches the category and account rules concurrently and
// compiles them into a model. Any source failure aborts the compile.
func (s *Service) CompileSchema(ctx context.Context, scope Scope) (*Model, error) {
	start := time.Now()

	var categoryRules, accountRules []RuleRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rules, err := s.sources.CategoryRules.FetchRules(gctx, scope)
		if err != nil {
			return fmt.Errorf("%w: category rules: %w", ErrRuleSource, err)
		}
		categoryRules = rules
		return nil
	})
	if s.sources.AccountRules != nil {
		g.Go(func() error {
			rules, err := s.sources.AccountRules.FetchRules(gctx, scope)
			if err != nil {
				return fmt.Errorf("%w: account rules: %w", ErrRuleSource, err)
			}
			accountRules = rules
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rules := make([]RuleRecord, 0, len(categoryRules)+len(accountRules))
	rules = append(rules, categoryRules...)
	rules = append(rules, accountRules...)

	model := NewModel(scope, Compile(rules))

	logging.WithScope(ctx, scope.Key()).Debug("schema compiled",
		"rules", len(rules),
		"columns", model.Len(),
		"image_columns", len(model.ImageColumns()),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return model, nil
}

// ParseResult is the outcome of parsing one sheet.
type ParseResult struct {
	Scope     Scope       `json:"scope"`
	Results   []RowResult `json:"results"`
	Unchanged int         `json:"unchanged"`
	Duration  string      `json:"duration"`
}

// ParseSheet reads every row of src and reconciles it against the catalog.
func (s *Service) ParseSheet(ctx context.Context, scope Scope, src RowSource) (*ParseResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	model, err := s.CompileSchema(ctx, scope)
	if err != nil {
		return nil, err
	}

	rows, err := ReadRows(ctx, model, src)
	if err != nil {
		return nil, err
	}

	results, unchanged, err := s.ReconcileRows(ctx, model, rows)
	if err != nil {
		return nil, err
	}

	logging.WithScope(ctx, scope.Key()).Info("sheet parsed",
		"rows", len(rows),
		"reconciled", len(results),
		"unchanged", unchanged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &ParseResult{
		Scope:     scope,
		Results:   results,
		Unchanged: unchanged,
		Duration:  time.Since(start).Round(time.Millisecond).String(),
	}, nil
}

// ReconcileRows reconciles rows in parallel. Rows the source reports as
// unmodified are skipped and counted. Existing records are fetched with one
// bulk lookup and the warehouse directory at most once per supplier.
func (s *Service) ReconcileRows(ctx context.Context, model *Model, rows []Row) ([]RowResult, int, error) {
	pending := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Modified {
			pending = append(pending, r)
		}
	}
	unchanged := len(rows) - len(pending)
	if len(pending) == 0 {
		return nil, unchanged, nil
	}

	rec := NewReconciler(model, newDirectoryMemo(s.sources.Warehouses))
	var checks *RecordValidator
	if s.localChecks {
		checks = NewRecordValidator(model)
	}

	// Phase 1: scan every row.
	drafts := make([]*Draft, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit())
	for i, row := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			drafts[i] = rec.Scan(row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, unchanged, err
	}

	existing, err := s.fetchExisting(ctx, model.Scope, drafts)
	if err != nil {
		return nil, unchanged, err
	}

	// Phase 2: merge with existing records.
	results := make([]RowResult, len(drafts))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.limit())
	for i, d := range drafts {
		g.Go(func() error {
			res, err := rec.Merge(gctx, d, existing[d.SKU])
			if err != nil {
				return fmt.Errorf("row %d: %w", d.Row, err)
			}
			if checks != nil && !res.EmptyRow {
				res.Record.Compliance = checks.ValidateRecord(res.Record).Compliance()
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, unchanged, err
	}
	return results, unchanged, nil
}

func (s *Service) fetchExisting(ctx context.Context, scope Scope, drafts []*Draft) (map[string]*CatalogRecord, error) {
	seen := make(map[string]bool)
	var skus []string
	for _, d := range drafts {
		if d.SKU != "" && !seen[d.SKU] {
			seen[d.SKU] = true
			skus = append(skus, d.SKU)
		}
	}
	if len(skus) == 0 {
		return map[string]*CatalogRecord{}, nil
	}

	existing, err := s.sources.Catalog.FetchExisting(ctx, scope, skus)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogSource, err)
	}
	if existing == nil {
		existing = map[string]*CatalogRecord{}
	}
	return existing, nil
}

func (s *Service) limit() int {
	if s.rowConcurrency <= 0 {
		return 8
	}
	return s.rowConcurrency
}

// RenderSheet compiles the schema and renders the records for skus, in the
// order given. Unknown skus are skipped.
func (s *Service) RenderSheet(ctx context.Context, scope Scope, skus []string) (Grid, *Model, error) {
	model, err := s.CompileSchema(ctx, scope)
	if err != nil {
		return Grid{}, nil, err
	}

	if len(skus) > 0 {
		existing, err := s.sources.Catalog.FetchExisting(ctx, scope, skus)
		if err != nil {
			return Grid{}, nil, fmt.Errorf("%w: %w", ErrCatalogSource, err)
		}
		for _, sku := range skus {
			if rec, ok := existing[sku]; ok && rec != nil {
				model.Records = append(model.Records, rec)
			}
		}
	}

	return Render(model, model.Records), model, nil
}

// ValidationRows is how many rows a sink should cover with validations.
func (s *Service) ValidationRows() int {
	if s.validationRows <= 0 {
		return DefaultValidationRows
	}
	return s.validationRows
}

// SaveResults persists the modified, non-empty records of a parse.
// It returns the number of records handed to the saver.
func (s *Service) SaveResults(ctx context.Context, results []RowResult) (int, error) {
	if s.sources.Saver == nil {
		return 0, errors.New("no catalog saver configured")
	}
	var records []*CatalogRecord
	for _, r := range results {
		if r.Modified && !r.EmptyRow && r.Record.SKU() != "" {
			records = append(records, r.Record)
		}
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := s.sources.Saver.SaveRecords(ctx, records); err != nil {
		return 0, fmt.Errorf("save records: %w", err)
	}
	return len(records), nil
}

// LimiterStatus reports the parse limiter state.
func (s *Service) LimiterStatus() ParseLimiterStatus {
	return s.limiter.Status()
}

// WaitForParses blocks until in-flight parses finish or ctx is done.
func (s *Service) WaitForParses(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// directoryMemo fetches each supplier's warehouse directory once per batch,
// sharing the in-flight call between concurrent rows.
type directoryMemo struct {
	src   WarehouseDirectory
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string][]Warehouse
}

func newDirectoryMemo(src WarehouseDirectory) *directoryMemo {
	return &directoryMemo{src: src, cache: make(map[string][]Warehouse)}
}

// Warehouses implements WarehouseDirectory.
func (m *directoryMemo) Warehouses(ctx context.Context, supplierID string) ([]Warehouse, error) {
	m.mu.RLock()
	ws, ok := m.cache[supplierID]
	m.mu.RUnlock()
	if ok {
		return ws, nil
	}

	v, err, _ := m.group.Do(supplierID, func() (any, error) {
		// a call that finished between our cache miss and Do already stored it
		m.mu.RLock()
		ws, ok := m.cache[supplierID]
		m.mu.RUnlock()
		if ok {
			return ws, nil
		}

		ws, err := m.src.Warehouses(ctx, supplierID)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.cache[supplierID] = ws
		m.mu.Unlock()
		return ws, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Warehouse), nil
}
