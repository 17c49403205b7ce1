package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

// MasteryService is the caller-facing API of the mastery core.
type MasteryService interface {
	ProcessResponse(ctx context.Context, in ResponseInput) (*types.ResponseResult, error)
	// RecommendNext returns (nil, nil) when the KC has no content.
	RecommendNext(ctx context.Context, studentID, kcID uuid.UUID) (*types.ScoredItem, error)
	ListCandidates(ctx context.Context, studentID, kcID uuid.UUID) ([]types.ScoredItem, error)
	GetKnowledgeState(ctx context.Context, studentID, kcID uuid.UUID) (*types.KnowledgeState, error)
	ReseedKnowledgeState(ctx context.Context, studentID, kcID uuid.UUID, resetMastery bool) (*types.KnowledgeState, error)
	GetParameters(ctx context.Context, kcID uuid.UUID) types.BktParameters
}

type masteryService struct {
	log       *logger.Logger
	params    ParameterProvider
	store     KnowledgeStateStore
	recommend RecommendationService
	pipeline  ResponsePipeline
}

func NewMasteryService(
	log *logger.Logger,
	params ParameterProvider,
	store KnowledgeStateStore,
	recommend RecommendationService,
	pipeline ResponsePipeline,
) MasteryService {
	return &masteryService{
		log:       log.With("service", "MasteryService"),
		params:    params,
		store:     store,
		recommend: recommend,
		pipeline:  pipeline,
	}
}

func (s *masteryService) ProcessResponse(ctx context.Context, in ResponseInput) (*types.ResponseResult, error) {
	return s.pipeline.Process(ctx, in)
}

func (s *masteryService) RecommendNext(ctx context.Context, studentID, kcID uuid.UUID) (*types.ScoredItem, error) {
	if err := requireIDs(studentID, kcID); err != nil {
		return nil, err
	}
	return s.recommend.RecommendNext(ctx, studentID, kcID)
}

func (s *masteryService) ListCandidates(ctx context.Context, studentID, kcID uuid.UUID) ([]types.ScoredItem, error) {
	if err := requireIDs(studentID, kcID); err != nil {
		return nil, err
	}
	return s.recommend.ListCandidates(ctx, studentID, kcID)
}

func (s *masteryService) GetKnowledgeState(ctx context.Context, studentID, kcID uuid.UUID) (*types.KnowledgeState, error) {
	if err := requireIDs(studentID, kcID); err != nil {
		return nil, err
	}
	return s.store.GetOrCreate(ctx, studentID, kcID)
}

func (s *masteryService) ReseedKnowledgeState(ctx context.Context, studentID, kcID uuid.UUID, resetMastery bool) (*types.KnowledgeState, error) {
	if err := requireIDs(studentID, kcID); err != nil {
		return nil, err
	}
	return s.store.Reseed(ctx, studentID, kcID, resetMastery)
}

func (s *masteryService) GetParameters(ctx context.Context, kcID uuid.UUID) types.BktParameters {
	return s.params.GetParameters(ctx, kcID)
}

func requireIDs(studentID, kcID uuid.UUID) error {
	if studentID == uuid.Nil {
		return &types.InvalidInputError{Field: "student_id", Reason: "required"}
	}
	if kcID == uuid.Nil {
		return &types.InvalidInputError{Field: "kc_id", Reason: "required"}
	}
	return nil
}
