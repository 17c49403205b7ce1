package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type KnowledgeStateStore interface {
	// GetOrCreate returns the stored state, seeding and persisting a new one
	// from the KC's current parameters when none exists.
	GetOrCreate(ctx context.Context, studentID, kcID uuid.UUID) (*types.KnowledgeState, error)
	// Get returns a *types.NotFoundError when no state exists.
	Get(ctx context.Context, studentID, kcID uuid.UUID) (*types.KnowledgeState, error)
	// Persist writes the full record. Pass a transaction in dbc to group it
	// with other writes.
	Persist(dbc dbctx.Context, state *types.KnowledgeState) error
	// Reseed re-snapshots transit/slip/guess from the current parameters and
	// optionally resets mastery to PInitial.
	Reseed(ctx context.Context, studentID, kcID uuid.UUID, resetMastery bool) (*types.KnowledgeState, error)
	Lock(ctx context.Context, studentID, kcID uuid.UUID) (func(), error)
}

type knowledgeStateStore struct {
	log     *logger.Logger
	repo    Persistence
	params  ParameterProvider
	locker  KeyLocker
	nowFunc func() time.Time
}

func NewKnowledgeStateStore(log *logger.Logger, repo Persistence, params ParameterProvider, locker KeyLocker) KnowledgeStateStore {
	if locker == nil {
		locker = NewLocalKeyLocker()
	}
	return &knowledgeStateStore{
		log:     log.With("service", "KnowledgeStateStore"),
		repo:    repo,
		params:  params,
		locker:  locker,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func (s *knowledgeStateStore) GetOrCreate(ctx context.Context, studentID, kcID uuid.UUID) (*types.KnowledgeState, error) {
	dbc := dbctx.From(ctx)
	existing, err := s.repo.LoadKnowledgeState(dbc, studentID, kcID)
	if err != nil {
		return nil, fmt.Errorf("load knowledge state: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	params := s.params.GetParameters(ctx, kcID)
	state := types.NewKnowledgeState(studentID, kcID, params, s.nowFunc())
	err = s.repo.CreateKnowledgeState(dbc, state)
	if err == nil {
		s.log.Debug("seeded knowledge state",
			append([]interface{}{"student_id", studentID.String(), "kc_id", kcID.String(), "p_mastery", state.PMastery}, ctxutil.LogFields(ctx)...)...)
		return state, nil
	}
	if !errors.Is(err, types.ErrAlreadyExists) {
		return nil, fmt.Errorf("create knowledge state: %w", err)
	}

	// Lost the insert race; the winner's row is the state.
	winner, rerr := s.repo.LoadKnowledgeState(dbc, studentID, kcID)
	if rerr != nil {
		return nil, fmt.Errorf("reload knowledge state: %w", rerr)
	}
	if winner == nil {
		return nil, fmt.Errorf("create knowledge state: %w", err)
	}
	return winner, nil
}

func (s *knowledgeStateStore) Get(ctx context.Context, studentID, kcID uuid.UUID) (*types.KnowledgeState, error) {
	state, err := s.repo.LoadKnowledgeState(dbctx.From(ctx), studentID, kcID)
	if err != nil {
		return nil, fmt.Errorf("load knowledge state: %w", err)
	}
	if state == nil {
		return nil, &types.NotFoundError{
			Resource: "knowledge_state",
			ID:       studentID.String() + "/" + kcID.String(),
		}
	}
	return state, nil
}

func (s *knowledgeStateStore) Persist(dbc dbctx.Context, state *types.KnowledgeState) error {
	if state == nil {
		return errors.New("persist knowledge state: nil state")
	}
	if err := s.repo.SaveKnowledgeState(dbc, state); err != nil {
		return fmt.Errorf("save knowledge state: %w", err)
	}
	return nil
}

func (s *knowledgeStateStore) Reseed(ctx context.Context, studentID, kcID uuid.UUID, resetMastery bool) (*types.KnowledgeState, error) {
	unlock, err := s.Lock(ctx, studentID, kcID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, err := s.GetOrCreate(ctx, studentID, kcID)
	if err != nil {
		return nil, err
	}
	params := s.params.GetParameters(ctx, kcID)

	next := state.Clone()
	next.PTransit = params.PTransit
	next.PSlip = params.PSlip
	next.PGuess = params.PGuess
	if resetMastery {
		next.PMastery = params.PInitial
	}
	next.LastUpdate = s.nowFunc()

	if err := s.Persist(dbctx.From(ctx), next); err != nil {
		return nil, err
	}
	s.log.Info("reseeded knowledge state",
		append([]interface{}{"student_id", studentID.String(), "kc_id", kcID.String(), "reset_mastery", resetMastery}, ctxutil.LogFields(ctx)...)...)
	return next, nil
}

func (s *knowledgeStateStore) Lock(ctx context.Context, studentID, kcID uuid.UUID) (func(), error) {
	unlock, err := s.locker.Lock(ctx, stateLockKey(studentID, kcID))
	if err != nil {
		return nil, fmt.Errorf("lock knowledge state: %w", err)
	}
	return unlock, nil
}

func stateLockKey(studentID, kcID uuid.UUID) string {
	return "mastery:state:" + studentID.String() + ":" + kcID.String()
}
