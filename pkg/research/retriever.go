package research

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// perSourceLimit is how many candidates each source contributes before
// ranking.
const perSourceLimit = 10

// Source is one paper search backend.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Paper, error)
}

// Retriever returns the topK most relevant papers for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Paper, error)
}

// MultiRetriever queries several sources concurrently, ranks the union and
// keeps the top results. A failing source is skipped.
type MultiRetriever struct {
	sources []Source
	logger  zerolog.Logger
}

// NewMultiRetriever builds a retriever over sources.
func NewMultiRetriever(logger zerolog.Logger, sources ...Source) *MultiRetriever {
	return &MultiRetriever{sources: sources, logger: logger}
}

// Retrieve fans out to every source. It fails only when every source
// failed.
func (m *MultiRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Paper, error) {
	if len(m.sources) == 0 {
		return nil, nil
	}

	var (
		mu     sync.Mutex
		all    = make([][]Paper, len(m.sources))
		errs   []error
		failed int
	)

	var g errgroup.Group
	for i, src := range m.sources {
		g.Go(func() error {
			papers, err := src.Search(ctx, query, perSourceLimit)
			if err != nil {
				m.logger.Warn().Err(err).Str("source", src.Name()).Msg("paper search failed")
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
				failed++
				mu.Unlock()
				return nil
			}
			all[i] = papers
			return nil
		})
	}
	_ = g.Wait()

	if failed == len(m.sources) {
		return nil, errors.Join(errs...)
	}

	var merged []Paper
	for _, papers := range all {
		merged = append(merged, papers...)
	}
	Rank(merged)
	if topK > 0 && len(merged) > topK {
		merged = merged[:topK]
	}
	for i := range merged {
		merged[i].Citation = FormatCitation(merged[i])
	}
	return merged, nil
}
