// Package service is the application layer shared by the HTTP API and the
// eatctl CLI. It validates input, gathers the catalog and history snapshots
// and hands them to the recommendation engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eatdecider/backend/internal/catalog"
	"eatdecider/backend/internal/domain"
	"eatdecider/backend/internal/events"
	"eatdecider/backend/internal/history"
	"eatdecider/backend/internal/logging"
	"eatdecider/backend/internal/metrics"
	"eatdecider/backend/internal/recommendation"
	"eatdecider/backend/internal/store"
	"eatdecider/backend/internal/validation"
	"eatdecider/backend/internal/xid"
)

// CatalogCollector gathers the merged catalog for a query.
type CatalogCollector interface {
	Collect(ctx context.Context, query string) []domain.MenuItem
}

// ShareFetcher resolves a share link into a catalog item.
type ShareFetcher interface {
	Import(ctx context.Context, rawURL string) (domain.MenuItem, error)
}

// Repository is the subset of store.Repository the service writes to
// directly; history goes through history.Store.
type Repository interface {
	store.ImportedItemRepository
	store.FeedbackRepository
}

type Service struct {
	engine    *recommendation.Engine
	catalog   CatalogCollector
	history   *history.Store
	repo      Repository
	publisher events.FeedbackPublisher
	importer  ShareFetcher
	now       func() time.Time
}

type Options struct {
	Engine    *recommendation.Engine
	Catalog   CatalogCollector
	History   *history.Store
	Repo      Repository
	Publisher events.FeedbackPublisher
	Importer  ShareFetcher
}

func New(opts Options) *Service {
	if opts.Publisher == nil {
		opts.Publisher = events.NoopPublisher{}
	}
	if opts.Importer == nil {
		opts.Importer = catalog.NewShareImporter(0)
	}
	return &Service{
		engine:    opts.Engine,
		catalog:   opts.Catalog,
		history:   opts.History,
		repo:      opts.Repo,
		publisher: opts.Publisher,
		importer:  opts.Importer,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Recommend(ctx context.Context, req domain.RecommendationRequest) (domain.RecommendationResponse, error) {
	req.Query = strings.TrimSpace(req.Query)
	req.Strategy = strings.ToLower(strings.TrimSpace(req.Strategy))
	if err := validation.Validate(req); err != nil {
		return domain.RecommendationResponse{}, err
	}
	if req.Strategy == "" {
		req.Strategy = domain.StrategyRanked
	}
	req.Count = recommendation.ClampCount(req.Count)

	items := s.catalog.Collect(ctx, req.Query)
	hist := s.history.Load(ctx)

	resp := s.engine.Recommend(ctx, req, items, hist)

	outcome := "picks"
	if len(resp.Picks) == 0 {
		outcome = "empty"
	}
	metrics.RecommendationsTotal.WithLabelValues(resp.Strategy, outcome).Inc()
	logging.Ctx(ctx).Debug().
		Str("component", "service").
		Str("strategy", resp.Strategy).
		Int("catalog_items", len(items)).
		Int("candidates", resp.TotalCandidates).
		Int("picks", len(resp.Picks)).
		Msg("recommendation served")
	return resp, nil
}

// RecordFeedback records a selection of req.ItemID in the history and stores
// the feedback event. When the history cannot be saved the computed state is
// still returned alongside an error wrapping domain.ErrPersistence. When it
// cannot be read nothing is saved and the same error is returned.
func (s *Service) RecordFeedback(ctx context.Context, req domain.FeedbackRequest) (domain.FeedbackResponse, error) {
	req.ItemID = strings.TrimSpace(req.ItemID)
	req.Outcome = strings.ToLower(strings.TrimSpace(req.Outcome))
	if err := validation.Validate(req); err != nil {
		return domain.FeedbackResponse{}, err
	}
	if req.Outcome == "" {
		req.Outcome = domain.OutcomeSelected
	}

	state, cuisine, saveErr := s.history.Update(ctx, req.ItemID, s.lookupCuisine)
	metrics.FeedbackTotal.WithLabelValues(req.Outcome).Inc()

	event := domain.FeedbackEvent{
		ID:        xid.New("fb"),
		ItemID:    req.ItemID,
		Cuisine:   cuisine,
		Outcome:   req.Outcome,
		Rating:    req.Rating,
		CreatedAt: s.now(),
	}
	log := logging.Ctx(ctx).With().Str("component", "service").Str("event_id", event.ID).Logger()
	if err := s.repo.CreateFeedbackEvent(ctx, event); err != nil {
		log.Warn().Err(err).Msg("failed to store feedback event")
	}
	if err := s.publisher.PublishFeedback(ctx, event); err != nil {
		metrics.EventPublishFailures.Inc()
		log.Warn().Err(err).Msg("failed to publish feedback event")
	}

	resp := domain.FeedbackResponse{OK: saveErr == nil, History: state}
	if saveErr != nil {
		log.Error().Err(saveErr).Str("item_id", req.ItemID).Msg("history save failed")
		return resp, saveErr
	}
	log.Info().Str("item_id", req.ItemID).Str("cuisine", cuisine).Str("outcome", req.Outcome).Msg("feedback recorded")
	return resp, nil
}

// lookupCuisine searches every known catalog, unfiltered.
func (s *Service) lookupCuisine(ctx context.Context, itemID string) (string, bool) {
	item, ok := catalog.FindItem(s.catalog.Collect(ctx, ""), itemID)
	if !ok {
		return "", false
	}
	return item.Cuisine, true
}

func (s *Service) Menu(ctx context.Context) domain.MenuResponse {
	items := s.catalog.Collect(ctx, "")
	if items == nil {
		items = []domain.MenuItem{}
	}
	return domain.MenuResponse{Items: items}
}

func (s *Service) ImportShare(ctx context.Context, req domain.ShareImportRequest) (domain.ShareImportResponse, error) {
	req.URL = strings.TrimSpace(req.URL)
	if err := validation.Validate(req); err != nil {
		return domain.ShareImportResponse{}, err
	}

	item, err := s.importer.Import(ctx, req.URL)
	if err != nil {
		return domain.ShareImportResponse{}, fmt.Errorf("%w: %v", ErrImportFailed, err)
	}
	if err := s.repo.SaveImportedItem(ctx, item); err != nil {
		return domain.ShareImportResponse{}, fmt.Errorf("save imported item: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("component", "service").
		Str("item_id", item.ID).
		Float64("price", item.Price).
		Msg("share link imported")
	return domain.ShareImportResponse{OK: true, Item: item}, nil
}

func (s *Service) History(ctx context.Context) domain.HistoryState {
	return s.history.Load(ctx)
}

func (s *Service) FeedbackEvents(ctx context.Context, limit int) ([]domain.FeedbackEvent, error) {
	list, err := s.repo.ListFeedbackEvents(ctx, store.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list feedback events: %w", err)
	}
	if list == nil {
		list = []domain.FeedbackEvent{}
	}
	return list, nil
}

// ErrImportFailed marks a share link that could not be fetched or parsed.
var ErrImportFailed = errors.New("share import failed")
