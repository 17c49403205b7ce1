package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/modules/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type RecommendationService interface {
	// RecommendNext returns nil when the KC has no content.
	RecommendNext(ctx context.Context, studentID, kcID uuid.UUID) (*types.ScoredItem, error)
	// ListCandidates scores the whole pool in catalog order.
	ListCandidates(ctx context.Context, studentID, kcID uuid.UUID) ([]types.ScoredItem, error)
}

type recommendationService struct {
	log     *logger.Logger
	store   KnowledgeStateStore
	catalog Catalog
	repo    Persistence
}

func NewRecommendationService(log *logger.Logger, store KnowledgeStateStore, catalog Catalog, repo Persistence) RecommendationService {
	return &recommendationService{
		log:     log.With("service", "RecommendationService"),
		store:   store,
		catalog: catalog,
		repo:    repo,
	}
}

type candidatePool struct {
	mastery float64
	items   []*types.ContentItem
	seen    map[uuid.UUID]bool
}

func (s *recommendationService) RecommendNext(ctx context.Context, studentID, kcID uuid.UUID) (*types.ScoredItem, error) {
	pool, err := s.load(ctx, studentID, kcID)
	if err != nil || pool == nil {
		return nil, err
	}
	best := mastery.SelectNext(pool.items, pool.seen, pool.mastery)
	if best != nil {
		s.log.Debug("recommended item",
			append([]interface{}{
				"student_id", studentID.String(),
				"kc_id", kcID.String(),
				"content_item_id", best.Item.ID.String(),
				"score", best.Score,
				"target_difficulty", best.TargetDifficulty,
			}, ctxutil.LogFields(ctx)...)...)
	}
	return best, nil
}

func (s *recommendationService) ListCandidates(ctx context.Context, studentID, kcID uuid.UUID) ([]types.ScoredItem, error) {
	pool, err := s.load(ctx, studentID, kcID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return []types.ScoredItem{}, nil
	}
	return mastery.ScoreCandidates(pool.items, pool.seen, pool.mastery), nil
}

// load reads the state and the pool concurrently. State is only created once
// the KC is known to have content, so empty KCs leave no rows behind.
func (s *recommendationService) load(ctx context.Context, studentID, kcID uuid.UUID) (*candidatePool, error) {
	var (
		state *types.KnowledgeState
		items []*types.ContentItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, err := s.repo.LoadKnowledgeState(dbctx.From(gctx), studentID, kcID)
		if err != nil {
			return fmt.Errorf("load knowledge state: %w", err)
		}
		state = st
		return nil
	})
	g.Go(func() error {
		rows, err := s.catalog.ListContentItemsForKC(dbctx.From(gctx), kcID)
		if err != nil {
			return fmt.Errorf("list content items: %w", err)
		}
		items = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if state == nil {
		st, err := s.store.GetOrCreate(ctx, studentID, kcID)
		if err != nil {
			return nil, err
		}
		state = st
	}
	if len(items) == 0 {
		return nil, nil
	}

	itemIDs := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if it != nil {
			itemIDs = append(itemIDs, it.ID)
		}
	}
	recent, err := s.repo.LoadRecentItemResponses(dbctx.From(ctx), studentID, itemIDs, mastery.RecentItemLimit)
	if err != nil {
		return nil, fmt.Errorf("load recent responses: %w", err)
	}
	seen := make(map[uuid.UUID]bool, len(recent))
	for _, ev := range recent {
		if ev != nil {
			seen[ev.ContentItemID] = true
		}
	}

	return &candidatePool{mastery: state.PMastery, items: items, seen: seen}, nil
}
