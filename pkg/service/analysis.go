package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/duynguyendang/relpat/internal/manager"
	"github.com/duynguyendang/relpat/pkg/analysis"
	"github.com/duynguyendang/relpat/pkg/common/errors"
	"github.com/duynguyendang/relpat/pkg/dataset"
)

// DatasetManager abstracts dataset lookup by id. Acquired datasets stay open
// until release is called.
type DatasetManager interface {
	Acquire(id string) (ds dataset.Dataset, release func(), err error)
	List() ([]manager.DatasetInfo, error)
}

// AnalysisService runs dataset analyses on behalf of the HTTP, MCP and CLI surfaces.
type AnalysisService struct {
	manager    DatasetManager
	classifier *analysis.Classifier
	logger     *slog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	warmup cron.EntryID
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(m DatasetManager, classifier *analysis.Classifier, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		manager:    m,
		classifier: classifier,
		logger:     logger,
		cron:       cron.New(),
	}
}

// ListDatasets returns the available datasets.
func (s *AnalysisService) ListDatasets() ([]manager.DatasetInfo, error) {
	return s.manager.List()
}

func (s *AnalysisService) acquire(id string) (dataset.Dataset, func(), error) {
	if id == "" {
		return nil, nil, errors.Invalidf("missing dataset id")
	}
	return s.manager.Acquire(id)
}

// ClassifyRelations categorizes the relations of a dataset by logical pattern.
func (s *AnalysisService) ClassifyRelations(ctx context.Context, id string, opts analysis.ClassifyOptions) (*analysis.PatternTable, error) {
	ds, release, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.classifier.ClassifyRelations(ctx, ds, opts)
}

// CardinalityTypes classifies relations into the four cardinality types.
func (s *AnalysisService) CardinalityTypes(ctx context.Context, id string, parts []string, addLabels bool) ([]analysis.CardinalityRow, error) {
	ds, release, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()
	return analysis.RelationCardinalityTypes(ctx, ds, parts, addLabels)
}

// Functionality computes (inverse) functionality per relation.
func (s *AnalysisService) Functionality(ctx context.Context, id string, parts []string, addLabels bool) ([]analysis.FunctionalityRow, error) {
	ds, release, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()
	return analysis.RelationFunctionality(ctx, ds, parts, addLabels)
}

// RelationCounts returns per-part triple counts per relation, with the part names.
func (s *AnalysisService) RelationCounts(ctx context.Context, id string) ([]analysis.RelationCountRow, []string, error) {
	ds, release, err := s.acquire(id)
	if err != nil {
		return nil, nil, err
	}
	defer release()
	rows, err := analysis.RelationCounts(ctx, ds)
	return rows, ds.Parts(), err
}

// EntityCounts returns per-part head/tail counts per entity, with the part names.
func (s *AnalysisService) EntityCounts(ctx context.Context, id string) ([]analysis.EntityCountRow, []string, error) {
	ds, release, err := s.acquire(id)
	if err != nil {
		return nil, nil, err
	}
	defer release()
	rows, err := analysis.EntityCounts(ctx, ds)
	return rows, ds.Parts(), err
}

// CoOccurrence returns per-part entity/relation head and tail counts, with the
// relation names indexing the count slices.
func (s *AnalysisService) CoOccurrence(ctx context.Context, id string) ([]analysis.CoOccurrenceRow, []string, error) {
	ds, release, err := s.acquire(id)
	if err != nil {
		return nil, nil, err
	}
	defer release()
	rows, err := analysis.EntityRelationCoOccurrence(ctx, ds)
	return rows, analysis.RelationNames(ds), err
}

// Warmup classifies every dataset with default options so later requests hit the cache.
// It continues past failing datasets and returns the first error.
func (s *AnalysisService) Warmup(ctx context.Context) error {
	infos, err := s.manager.List()
	if err != nil {
		return err
	}
	var first error
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return err
		}
		table, err := s.ClassifyRelations(ctx, info.ID, analysis.DefaultClassifyOptions())
		if err != nil {
			s.logger.Error("warmup failed", "dataset", info.ID, "error", err)
			if first == nil {
				first = fmt.Errorf("dataset %s: %w", info.ID, err)
			}
			continue
		}
		s.logger.Info("warmed up dataset", "dataset", info.ID, "key", table.CacheKey, "cached", table.Cached)
	}
	return first
}

// ScheduleWarmup runs Warmup on a standard cron schedule, replacing any previous schedule.
func (s *AnalysisService) ScheduleWarmup(spec string) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return errors.Invalidf("invalid cron expression %q: %v", spec, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.warmup != 0 {
		s.cron.Remove(s.warmup)
	}
	s.warmup = s.cron.Schedule(schedule, cron.FuncJob(func() {
		if err := s.Warmup(context.Background()); err != nil {
			s.logger.Warn("scheduled warmup finished with errors", "error", err)
		}
	}))
	s.cron.Start()
	s.logger.Info("scheduled cache warmup", "schedule", spec)
	return nil
}

// Stop stops the warmup scheduler and waits for a running warmup to finish.
func (s *AnalysisService) Stop() {
	<-s.cron.Stop().Done()
}
