package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/helixir/paper-triage-service/internal/app"
	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/repository"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import keywords, feeds and manual interests from a YAML seed file",
	Long: `Import keywords, feeds and manual interests from a YAML seed file.
Entries that already exist are skipped.

Example file:

  keywords:
    - keyword: graph neural networks
      category: ml
      sources: [arXiv, OpenAlex]
  feeds:
    - name: Nature
      url: https://www.nature.com/nature.rss
  interests:
    - label: protein design
      weight: 1.5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seeds, err := readSeedFile(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			var res importResult
			err := a.DB.WithTransaction(ctx, func(tx pgx.Tx) error {
				var err error
				res, err = importSeeds(ctx, savepointUnit(tx), seeds, time.Now().UTC())
				return err
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		})
	},
}

// unitOfWork runs fn against stores whose writes succeed or fail together.
type unitOfWork func(ctx context.Context, fn func(seedStores) error) error

// savepointUnit runs each unit in a savepoint of tx, so a duplicate entry is
// rolled back alone and the import as a whole stays atomic.
func savepointUnit(tx pgx.Tx) unitOfWork {
	return func(ctx context.Context, fn func(seedStores) error) error {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin savepoint: %w", err)
		}
		stores := seedStores{
			keywords:  repository.NewPgKeywordRepository(sp),
			feeds:     repository.NewPgFeedRepository(sp),
			interests: repository.NewPgInterestRepository(sp),
		}
		if err := fn(stores); err != nil {
			if rbErr := sp.Rollback(ctx); rbErr != nil {
				return errors.Join(err, rbErr)
			}
			return err
		}
		return sp.Commit(ctx)
	}
}

type seedFile struct {
	Keywords  []keywordSeed  `yaml:"keywords"`
	Feeds     []feedSeed     `yaml:"feeds"`
	Interests []interestSeed `yaml:"interests"`
}

type keywordSeed struct {
	Keyword  string   `yaml:"keyword"`
	Category string   `yaml:"category"`
	Sources  []string `yaml:"sources"`
	Journals []string `yaml:"journals"`
	Inactive bool     `yaml:"inactive"`
}

type feedSeed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type interestSeed struct {
	Label  string   `yaml:"label"`
	Weight *float64 `yaml:"weight"`
}

type importCounts struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

type importResult struct {
	Keywords  importCounts `json:"keywords"`
	Feeds     importCounts `json:"feeds"`
	Interests importCounts `json:"interests"`
}

type keywordCreator interface {
	Create(ctx context.Context, kw *domain.Keyword) error
}

type feedCreator interface {
	Create(ctx context.Context, feed *domain.Feed) error
}

type interestCreator interface {
	CreateInterest(ctx context.Context, interest *domain.Interest) error
}

type seedStores struct {
	keywords  keywordCreator
	feeds     feedCreator
	interests interestCreator
}

func readSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parseSeedFile(data)
}

// parseSeedFile decodes and validates a seed file. Unknown fields are rejected.
func parseSeedFile(data []byte) (*seedFile, error) {
	var seeds seedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&seeds); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	for i, k := range seeds.Keywords {
		if strings.TrimSpace(k.Keyword) == "" {
			return nil, fmt.Errorf("keywords[%d]: keyword is required", i)
		}
		for _, src := range k.Sources {
			if !domain.IsValidSourceType(domain.SourceType(src)) {
				return nil, fmt.Errorf("keywords[%d]: unknown source %q", i, src)
			}
		}
	}
	for i, f := range seeds.Feeds {
		if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.URL) == "" {
			return nil, fmt.Errorf("feeds[%d]: name and url are required", i)
		}
	}
	for i, in := range seeds.Interests {
		if strings.TrimSpace(in.Label) == "" {
			return nil, fmt.Errorf("interests[%d]: label is required", i)
		}
	}
	return &seeds, nil
}

// importSeeds creates every seed entry, each in its own unit. Entries rejected
// as duplicates are counted as skipped; any other store error aborts the import.
func importSeeds(ctx context.Context, unit unitOfWork, seeds *seedFile, now time.Time) (importResult, error) {
	var res importResult

	for _, k := range seeds.Keywords {
		kw := &domain.Keyword{
			ID:        uuid.New(),
			Keyword:   strings.TrimSpace(k.Keyword),
			Category:  domain.StringPtr(k.Category),
			Sources:   k.Sources,
			Journals:  k.Journals,
			IsActive:  !k.Inactive,
			CreatedAt: now,
		}
		err := unit(ctx, func(s seedStores) error { return s.keywords.Create(ctx, kw) })
		if err := tally(&res.Keywords, err); err != nil {
			return res, fmt.Errorf("import keyword %q: %w", k.Keyword, err)
		}
	}

	for _, f := range seeds.Feeds {
		feed := &domain.Feed{
			ID:        uuid.New(),
			Name:      strings.TrimSpace(f.Name),
			FeedURL:   strings.TrimSpace(f.URL),
			IsActive:  true,
			CreatedAt: now,
		}
		err := unit(ctx, func(s seedStores) error { return s.feeds.Create(ctx, feed) })
		if err := tally(&res.Feeds, err); err != nil {
			return res, fmt.Errorf("import feed %q: %w", f.URL, err)
		}
	}

	for _, in := range seeds.Interests {
		weight := domain.DefaultInterestWeight
		if in.Weight != nil {
			weight = *in.Weight
		}
		interest := &domain.Interest{
			ID:        uuid.New(),
			Label:     strings.TrimSpace(in.Label),
			Weight:    domain.ClampWeight(weight),
			Type:      domain.InterestTypeManual,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err := unit(ctx, func(s seedStores) error { return s.interests.CreateInterest(ctx, interest) })
		if err := tally(&res.Interests, err); err != nil {
			return res, fmt.Errorf("import interest %q: %w", in.Label, err)
		}
	}

	return res, nil
}

func tally(c *importCounts, err error) error {
	switch {
	case err == nil:
		c.Created++
	case domain.IsAlreadyExists(err):
		c.Skipped++
	default:
		return err
	}
	return nil
}
