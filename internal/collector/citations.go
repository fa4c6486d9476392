package collector

import (
	"context"
	"time"

	"github.com/helixir/paper-triage-service/internal/citation"
	"github.com/helixir/paper-triage-service/internal/domain"
)

// SeedExplorer explores up to maxSeeds citation seeds.
type SeedExplorer interface {
	Explore(ctx context.Context, maxSeeds int) (*citation.RunResult, error)
}

// CitationCollector adapts the citation explorer to the orchestrator report.
type CitationCollector struct {
	explorer SeedExplorer
	deps     Deps
}

// NewCitationCollector creates a CitationCollector.
func NewCitationCollector(deps Deps, explorer SeedExplorer) *CitationCollector {
	return &CitationCollector{explorer: explorer, deps: deps}
}

// Run explores up to maxSeeds seeds. Seeds are logged by the explorer itself.
func (c *CitationCollector) Run(ctx context.Context, maxSeeds int) (*Report, error) {
	started := time.Now()
	res, err := c.explorer.Explore(ctx, maxSeeds)
	if err != nil {
		return nil, err
	}

	report := newReport()
	for _, s := range res.Seeds {
		report.add(UnitResult{
			Origin:      domain.LogOriginSeed,
			ID:          s.SeedPaperID,
			Name:        s.SeedTitle,
			Status:      s.Status,
			PapersFound: s.PapersFound,
			Message:     s.Message,
			Breakdown:   s.Breakdown,
		})
	}
	if len(res.Seeds) > 0 {
		status := domain.LogStatusSuccess
		if report.Summary.Errors == len(res.Seeds) {
			status = domain.LogStatusError
		}
		c.deps.Metrics.RecordCollection(string(domain.LogOriginSeed), string(status), report.Summary.TotalPapersFound, time.Since(started).Seconds())
	}
	return report, nil
}
