package papersources

import (
	"context"
	"sync"
	"time"

	"github.com/helixir/paper-triage-service/internal/domain"
)

// SourceResult holds the result of a search from one source.
type SourceResult struct {
	// Source identifies which paper source provided the result.
	Source domain.SourceType

	// Result is nil when Error is set.
	Result *SearchResult

	// Error contains the provider failure, if any.
	Error error

	// Duration is how long the provider call took.
	Duration time.Duration
}

// Registry manages paper sources and runs searches across them.
// Registration is thread-safe; searches are sequential.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceType]PaperSource
	order   []domain.SourceType
}

// NewRegistry creates a new source registry with an empty source map.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.SourceType]PaperSource),
	}
}

// Register adds a source to the registry, replacing one of the same type.
func (r *Registry) Register(source PaperSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := source.SourceType()
	if _, exists := r.sources[st]; !exists {
		r.order = append(r.order, st)
	}
	r.sources[st] = source
}

// Get returns a source by type, or nil if not found.
func (r *Registry) Get(sourceType domain.SourceType) PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[sourceType]
}

// EnabledSources returns enabled sources in registration order.
func (r *Registry) EnabledSources() []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]PaperSource, 0, len(r.order))
	for _, st := range r.order {
		if s := r.sources[st]; s.IsEnabled() {
			sources = append(sources, s)
		}
	}
	return sources
}

// SearchEach searches the named sources one after another, in the order
// given. Empty sourceTypes means every enabled source. Unknown or disabled
// sources are skipped. A failing provider is reported in its SourceResult and
// never stops the remaining ones.
func (r *Registry) SearchEach(ctx context.Context, sourceTypes []domain.SourceType, params SearchParams) []SourceResult {
	var sources []PaperSource
	if len(sourceTypes) == 0 {
		sources = r.EnabledSources()
	} else {
		r.mu.RLock()
		for _, st := range sourceTypes {
			if s, ok := r.sources[st]; ok && s.IsEnabled() {
				sources = append(sources, s)
			}
		}
		r.mu.RUnlock()
	}

	results := make([]SourceResult, 0, len(sources))
	for _, s := range sources {
		if ctx.Err() != nil {
			results = append(results, SourceResult{Source: s.SourceType(), Error: ctx.Err()})
			continue
		}
		start := time.Now()
		res, err := s.Search(ctx, params)
		results = append(results, SourceResult{
			Source:   s.SourceType(),
			Result:   res,
			Error:    err,
			Duration: time.Since(start),
		})
	}
	return results
}
