package httpserver

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/paper-triage-service/internal/collector"
	"github.com/helixir/paper-triage-service/internal/database"
	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/repository"
	"github.com/helixir/paper-triage-service/internal/scoring"
)

// ---------------------------------------------------------------------------
// Repository mocks
// ---------------------------------------------------------------------------

type mockPaperRepo struct {
	createFn             func(ctx context.Context, p *domain.Paper) (*domain.Paper, error)
	existingKeysFn       func(ctx context.Context, dois, titles []string) (*domain.PaperKeys, error)
	getByIDFn            func(ctx context.Context, id uuid.UUID) (*domain.Paper, error)
	listFn               func(ctx context.Context, filter repository.PaperFilter) ([]*domain.Paper, int64, error)
	updateFn             func(ctx context.Context, id uuid.UUID, update repository.PaperUpdate) (*domain.Paper, error)
	deleteFn             func(ctx context.Context, id uuid.UUID) error
	reviewQueueFn        func(ctx context.Context, sort repository.ReviewSort, limit int) ([]*domain.Paper, int64, error)
	updateReviewStatusFn func(ctx context.Context, id uuid.UUID, status domain.ReviewStatus) (*domain.Paper, error)
	bulkResolvePendingFn func(ctx context.Context, bound repository.ScoreBound, status domain.ReviewStatus) (int64, error)
}

func (m *mockPaperRepo) InsertPaper(context.Context, *domain.Paper) (bool, error) { return true, nil }

func (m *mockPaperRepo) Create(ctx context.Context, p *domain.Paper) (*domain.Paper, error) {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return p, nil
}

func (m *mockPaperRepo) ExistingKeys(ctx context.Context, dois, titles []string) (*domain.PaperKeys, error) {
	if m.existingKeysFn != nil {
		return m.existingKeysFn(ctx, dois, titles)
	}
	return &domain.PaperKeys{}, nil
}

func (m *mockPaperRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.NewNotFoundError("paper", id.String())
}

func (m *mockPaperRepo) List(ctx context.Context, filter repository.PaperFilter) ([]*domain.Paper, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, 0, nil
}

func (m *mockPaperRepo) Update(ctx context.Context, id uuid.UUID, update repository.PaperUpdate) (*domain.Paper, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, update)
	}
	return nil, domain.NewNotFoundError("paper", id.String())
}

func (m *mockPaperRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockPaperRepo) ListSeeds(context.Context, int) ([]*domain.Paper, error) { return nil, nil }

func (m *mockPaperRepo) MarkCitationExplored(context.Context, uuid.UUID, time.Time) error {
	return nil
}

func (m *mockPaperRepo) ReviewQueue(ctx context.Context, sort repository.ReviewSort, limit int) ([]*domain.Paper, int64, error) {
	if m.reviewQueueFn != nil {
		return m.reviewQueueFn(ctx, sort, limit)
	}
	return nil, 0, nil
}

func (m *mockPaperRepo) ListPending(context.Context, int) ([]*domain.Paper, error) { return nil, nil }

func (m *mockPaperRepo) UpdateReviewStatus(ctx context.Context, id uuid.UUID, status domain.ReviewStatus) (*domain.Paper, error) {
	if m.updateReviewStatusFn != nil {
		return m.updateReviewStatusFn(ctx, id, status)
	}
	return nil, domain.NewNotFoundError("paper", id.String())
}

func (m *mockPaperRepo) BulkResolvePending(ctx context.Context, bound repository.ScoreBound, status domain.ReviewStatus) (int64, error) {
	if m.bulkResolvePendingFn != nil {
		return m.bulkResolvePendingFn(ctx, bound, status)
	}
	return 0, nil
}

func (m *mockPaperRepo) UpdateScore(context.Context, uuid.UUID, int, domain.ReviewStatus) error {
	return nil
}

func (m *mockPaperRepo) LinkKeyword(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type mockKeywordRepo struct {
	created  []*domain.Keyword
	keywords []*domain.Keyword
	updateFn func(ctx context.Context, id uuid.UUID, update repository.KeywordUpdate) (*domain.Keyword, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockKeywordRepo) Create(_ context.Context, kw *domain.Keyword) error {
	m.created = append(m.created, kw)
	return nil
}

func (m *mockKeywordRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Keyword, error) {
	return nil, domain.NewNotFoundError("keyword", id.String())
}

func (m *mockKeywordRepo) List(context.Context) ([]*domain.Keyword, error) { return m.keywords, nil }

func (m *mockKeywordRepo) ListActiveKeywords(context.Context) ([]*domain.Keyword, error) {
	return m.keywords, nil
}

func (m *mockKeywordRepo) Update(ctx context.Context, id uuid.UUID, update repository.KeywordUpdate) (*domain.Keyword, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, update)
	}
	return nil, domain.NewNotFoundError("keyword", id.String())
}

func (m *mockKeywordRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockFeedRepo struct {
	created []*domain.Feed
	feeds   []*domain.Feed
	err     error
}

func (m *mockFeedRepo) Create(_ context.Context, f *domain.Feed) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, f)
	return nil
}

func (m *mockFeedRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Feed, error) {
	return nil, domain.NewNotFoundError("feed", id.String())
}

func (m *mockFeedRepo) List(context.Context) ([]*domain.Feed, error) { return m.feeds, m.err }

func (m *mockFeedRepo) ListActiveFeeds(context.Context) ([]*domain.Feed, error) {
	return m.feeds, m.err
}

func (m *mockFeedRepo) Update(_ context.Context, id uuid.UUID, update repository.FeedUpdate) (*domain.Feed, error) {
	for _, f := range m.feeds {
		if f.ID == id {
			if update.Name != nil {
				f.Name = *update.Name
			}
			if update.IsActive != nil {
				f.IsActive = *update.IsActive
			}
			return f, nil
		}
	}
	return nil, domain.NewNotFoundError("feed", id.String())
}

func (m *mockFeedRepo) Delete(context.Context, uuid.UUID) error { return m.err }

func (m *mockFeedRepo) MarkFeedFetched(context.Context, uuid.UUID, time.Time) error { return nil }

type mockInterestRepo struct {
	interests []*domain.Interest
	created   []*domain.Interest
	updateFn  func(ctx context.Context, id uuid.UUID, update repository.InterestUpdate) (*domain.Interest, error)
	err       error
}

func (m *mockInterestRepo) ListInterests(context.Context) ([]*domain.Interest, error) {
	return m.interests, m.err
}

func (m *mockInterestRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Interest, error) {
	return nil, domain.NewNotFoundError("interest", id.String())
}

func (m *mockInterestRepo) CreateInterest(_ context.Context, in *domain.Interest) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, in)
	return nil
}

func (m *mockInterestRepo) UpdateInterestWeight(context.Context, uuid.UUID, float64) error {
	return nil
}

func (m *mockInterestRepo) Update(ctx context.Context, id uuid.UUID, update repository.InterestUpdate) (*domain.Interest, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, update)
	}
	return nil, domain.NewNotFoundError("interest", id.String())
}

func (m *mockInterestRepo) Delete(context.Context, uuid.UUID) error { return m.err }

type mockSettingsRepo struct {
	settings domain.ReviewSettings
	saved    *domain.ReviewSettings
	getErr   error
}

func newMockSettings() *mockSettingsRepo {
	return &mockSettingsRepo{settings: domain.DefaultReviewSettings()}
}

func (m *mockSettingsRepo) GetReviewSettings(context.Context) (domain.ReviewSettings, error) {
	return m.settings, m.getErr
}

func (m *mockSettingsRepo) UpdateReviewSettings(_ context.Context, s domain.ReviewSettings) error {
	m.saved = &s
	m.settings = s
	return nil
}

type mockLogRepo struct {
	entries []*repository.CollectionLogEntry
	filter  repository.LogFilter
}

func (m *mockLogRepo) InsertCollectionLog(context.Context, *domain.CollectionLog) error { return nil }

func (m *mockLogRepo) ListCollectionLogs(_ context.Context, filter repository.LogFilter) ([]*repository.CollectionLogEntry, error) {
	m.filter = filter
	return m.entries, nil
}

type mockFeedbackRepo struct {
	inserted []*domain.ScoringFeedback
	feedback []*domain.ScoringFeedback
	err      error
}

func (m *mockFeedbackRepo) InsertFeedback(_ context.Context, f *domain.ScoringFeedback) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, f)
	return nil
}

func (m *mockFeedbackRepo) ListFeedback(context.Context) ([]*domain.ScoringFeedback, error) {
	return m.feedback, m.err
}

// ---------------------------------------------------------------------------
// Collaborator mocks
// ---------------------------------------------------------------------------

type mockHealth struct {
	status database.HealthStatus
}

func (m *mockHealth) Health(context.Context) database.HealthStatus { return m.status }

type mockPublisher struct {
	decisions []domain.ReviewDecision
	err       error
}

func (m *mockPublisher) PublishReviewDecision(_ context.Context, d domain.ReviewDecision) error {
	m.decisions = append(m.decisions, d)
	return m.err
}

type mockScorer struct {
	detail scoring.Detail
	paper  *domain.Paper
}

func (m *mockScorer) ScoreDetailed(_ context.Context, p *domain.Paper, _ []*domain.Interest) scoring.Detail {
	m.paper = p
	return m.detail
}

type mockStage struct {
	report *collector.Report
	err    error
	calls  int
}

func (m *mockStage) Run(context.Context) (*collector.Report, error) {
	m.calls++
	return m.report, m.err
}

type mockSeeds struct {
	report   *collector.Report
	err      error
	maxSeeds []int
}

func (m *mockSeeds) Run(_ context.Context, maxSeeds int) (*collector.Report, error) {
	m.maxSeeds = append(m.maxSeeds, maxSeeds)
	return m.report, m.err
}

type mockCombined struct {
	report *collector.CombinedReport
	err    error
	opts   []collector.RunOptions
}

func (m *mockCombined) Run(_ context.Context, opts collector.RunOptions) (*collector.CombinedReport, error) {
	m.opts = append(m.opts, opts)
	return m.report, m.err
}

type mockRescorer struct {
	result *collector.RescoreResult
	err    error
	limit  int
}

func (m *mockRescorer) Run(_ context.Context, limit int) (*collector.RescoreResult, error) {
	m.limit = limit
	return m.result, m.err
}

// ---------------------------------------------------------------------------
// Test fixture
// ---------------------------------------------------------------------------

type fixture struct {
	papers    *mockPaperRepo
	keywords  *mockKeywordRepo
	feeds     *mockFeedRepo
	interests *mockInterestRepo
	settings  *mockSettingsRepo
	logs      *mockLogRepo
	feedback  *mockFeedbackRepo
	publisher *mockPublisher
	scorer    *mockScorer
	kwStage   *mockStage
	feedStage *mockStage
	seeds     *mockSeeds
	combined  *mockCombined
	rescorer  *mockRescorer
	health    *mockHealth
}

func newFixture() *fixture {
	empty := &collector.Report{Results: []collector.UnitResult{}}
	return &fixture{
		papers:    &mockPaperRepo{},
		keywords:  &mockKeywordRepo{},
		feeds:     &mockFeedRepo{},
		interests: &mockInterestRepo{},
		settings:  newMockSettings(),
		logs:      &mockLogRepo{},
		feedback:  &mockFeedbackRepo{},
		publisher: &mockPublisher{},
		scorer:    &mockScorer{},
		kwStage:   &mockStage{report: empty},
		feedStage: &mockStage{report: empty},
		seeds:     &mockSeeds{report: empty},
		combined:  &mockCombined{report: &collector.CombinedReport{}},
		rescorer:  &mockRescorer{result: &collector.RescoreResult{Results: []collector.RescoreItem{}}},
		health:    &mockHealth{status: database.HealthStatus{Status: "healthy"}},
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Health:            f.health,
		Papers:            f.papers,
		Keywords:          f.keywords,
		Feeds:             f.feeds,
		Interests:         f.interests,
		Settings:          f.settings,
		Logs:              f.logs,
		Feedback:          f.feedback,
		Publisher:         f.publisher,
		Scorer:            f.scorer,
		KeywordCollector:  f.kwStage,
		FeedCollector:     f.feedStage,
		CitationCollector: f.seeds,
		Combined:          f.combined,
		Rescorer:          f.rescorer,
	}
}
