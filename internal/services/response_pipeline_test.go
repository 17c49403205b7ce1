package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/modules/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type pipelineFixture struct {
	repo     *fakePersistence
	catalog  *fakeCatalog
	tx       *fakeTx
	store    KnowledgeStateStore
	pipeline ResponsePipeline
	kc       uuid.UUID
	item     *types.ContentItem
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	kc := uuid.New()
	item := linkedItem(kc, 2)
	repo := newFakePersistence()
	catalog := newFakeCatalog(item)
	store := newTestStore(t, repo, nil)
	tx := &fakeTx{}
	return &pipelineFixture{
		repo:     repo,
		catalog:  catalog,
		tx:       tx,
		store:    store,
		pipeline: NewResponsePipeline(logger.Nop(), catalog, store, repo, tx, mastery.DefaultThresholds()),
		kc:       kc,
		item:     item,
	}
}

func TestProcessCorrectResponseWithoutTime(t *testing.T) {
	f := newPipelineFixture(t)
	student := uuid.New()

	res, err := f.pipeline.Process(context.Background(), ResponseInput{
		StudentID: student, ContentItemID: f.item.ID, Correct: true,
	})
	require.NoError(t, err)
	assert.Equal(t, f.kc, res.KnowledgeComponentID)
	assert.InDelta(t, 0.3, res.PreviousMastery, 1e-9)
	assert.InDelta(t, 0.6893, res.NewMastery, 1e-4)
	assert.InDelta(t, res.NewMastery-0.3, res.MasteryChange, 1e-12)
	assert.False(t, res.FuzzyApplied)
	assert.False(t, res.Mastered)

	stored := f.repo.stateFor(student, f.kc)
	require.NotNil(t, stored)
	assert.InDelta(t, res.NewMastery, stored.PMastery, 1e-12)
	assert.Equal(t, 1, f.repo.eventCount())
	assert.Equal(t, 1, f.tx.calls)
}

func TestProcessIncorrectResponseWithoutTime(t *testing.T) {
	f := newPipelineFixture(t)
	res, err := f.pipeline.Process(context.Background(), ResponseInput{
		StudentID: uuid.New(), ContentItemID: f.item.ID, Correct: false,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.1363, res.NewMastery, 1e-3)
	assert.Less(t, res.MasteryChange, 0.0)
}

func TestProcessAppliesFuzzyLayer(t *testing.T) {
	f := newPipelineFixture(t)
	// difficulty 2 expects 20s; 4s is fast
	res, err := f.pipeline.Process(context.Background(), ResponseInput{
		StudentID: uuid.New(), ContentItemID: f.item.ID, Correct: true, TimeSpent: ptr(4),
	})
	require.NoError(t, err)
	assert.True(t, res.FuzzyApplied)
	assert.InDelta(t, 0.6893+0.05, res.NewMastery, 1e-4)
}

func TestProcessRecordsEvent(t *testing.T) {
	f := newPipelineFixture(t)
	student := uuid.New()
	interaction := &types.InteractionData{HintsUsed: 1, Attempts: 2}

	res, err := f.pipeline.Process(context.Background(), ResponseInput{
		StudentID: student, ContentItemID: f.item.ID, Correct: true, TimeSpent: ptr(30), Interaction: interaction,
	})
	require.NoError(t, err)

	require.Equal(t, 1, f.repo.eventCount())
	ev := f.repo.events[0]
	assert.Equal(t, res.EventID, ev.ID)
	assert.Equal(t, student, ev.StudentID)
	assert.Equal(t, f.kc, ev.KnowledgeComponentID)
	assert.Equal(t, f.item.ID, ev.ContentItemID)
	require.NotNil(t, ev.TimeSpent)
	assert.Equal(t, 30.0, *ev.TimeSpent)
	decoded := ev.Interaction()
	require.NotNil(t, decoded)
	assert.Equal(t, 1, decoded.HintsUsed)
	assert.Nil(t, decoded.RecentPerformance, "computed signal is not stored on the event")
}

func TestProcessUnknownItem(t *testing.T) {
	f := newPipelineFixture(t)
	_, err := f.pipeline.Process(context.Background(), ResponseInput{StudentID: uuid.New(), ContentItemID: uuid.New(), Correct: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)

	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StageResolveKC, perr.Stage)
	assert.Equal(t, 0, f.repo.eventCount())
}

func TestProcessItemWithoutKC(t *testing.T) {
	f := newPipelineFixture(t)
	orphan := &types.ContentItem{ID: uuid.New(), Difficulty: 1, Type: "question"}
	f.catalog.items[orphan.ID] = orphan

	_, err := f.pipeline.Process(context.Background(), ResponseInput{StudentID: uuid.New(), ContentItemID: orphan.ID, Correct: true})
	var nf *types.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "knowledge_component", nf.Resource)
}

func TestProcessRejectsInvalidInput(t *testing.T) {
	f := newPipelineFixture(t)
	cases := []ResponseInput{
		{ContentItemID: f.item.ID},
		{StudentID: uuid.New()},
		{StudentID: uuid.New(), ContentItemID: f.item.ID, TimeSpent: ptr(-1)},
		{StudentID: uuid.New(), ContentItemID: f.item.ID, Interaction: &types.InteractionData{HintsUsed: -1}},
		{StudentID: uuid.New(), ContentItemID: f.item.ID, Interaction: &types.InteractionData{
			RecentPerformance: &types.RecentPerformance{CorrectRate: ptr(1.5)},
		}},
	}
	for _, in := range cases {
		_, err := f.pipeline.Process(context.Background(), in)
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	}
	assert.Equal(t, 0, f.repo.eventCount())
}

func TestProcessSignalFailureIsNotFatal(t *testing.T) {
	f := newPipelineFixture(t)
	f.repo.historyErr = errors.New("replica lagging")

	res, err := f.pipeline.Process(context.Background(), ResponseInput{
		StudentID: uuid.New(), ContentItemID: f.item.ID, Correct: true, TimeSpent: ptr(4),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.7393, res.NewMastery, 1e-4)
	assert.Equal(t, 1, f.repo.historyCalls)
}

func TestProcessCallerSignalWins(t *testing.T) {
	f := newPipelineFixture(t)
	res, err := f.pipeline.Process(context.Background(), ResponseInput{
		StudentID:     uuid.New(),
		ContentItemID: f.item.ID,
		Correct:       true,
		TimeSpent:     ptr(20),
		Interaction: &types.InteractionData{
			RecentPerformance: &types.RecentPerformance{CorrectRate: ptr(0.4)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, f.repo.historyCalls)
	// mid speed, penalty 0.05*(1-0.4)
	assert.InDelta(t, 0.6893-0.03, res.NewMastery, 1e-4)
}

func TestProcessCeilingUsesHistory(t *testing.T) {
	f := newPipelineFixture(t)
	student := uuid.New()
	ctx := context.Background()

	state, err := f.store.GetOrCreate(ctx, student, f.kc)
	require.NoError(t, err)
	state.PMastery = 0.7
	require.NoError(t, f.store.Persist(dbctx.From(ctx), state))

	lucky := ResponseInput{StudentID: student, ContentItemID: f.item.ID, Correct: true, TimeSpent: ptr(2)}
	res, err := f.pipeline.Process(ctx, lucky)
	require.NoError(t, err)
	assert.InDelta(t, 0.79, res.NewMastery, 1e-9)

	// the first answer is now recent history with a perfect correct rate
	res, err = f.pipeline.Process(ctx, lucky)
	require.NoError(t, err)
	assert.Greater(t, res.NewMastery, 0.8)
	assert.True(t, res.Mastered)
}

func TestProcessPersistFailureIsFatal(t *testing.T) {
	f := newPipelineFixture(t)
	f.repo.saveErr = errors.New("disk full")

	_, err := f.pipeline.Process(context.Background(), ResponseInput{StudentID: uuid.New(), ContentItemID: f.item.ID, Correct: true})
	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StagePersist, perr.Stage)
	assert.Equal(t, 0, f.repo.eventCount())
}

func TestProcessRecordFailureIsFatal(t *testing.T) {
	f := newPipelineFixture(t)
	f.repo.appendErr = errors.New("constraint")

	_, err := f.pipeline.Process(context.Background(), ResponseInput{StudentID: uuid.New(), ContentItemID: f.item.ID, Correct: true})
	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StageRecordEvent, perr.Stage)
}

func TestProcessSerializesConcurrentResponses(t *testing.T) {
	f := newPipelineFixture(t)
	student := uuid.New()
	const n = 25

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.pipeline.Process(context.Background(), ResponseInput{StudentID: student, ContentItemID: f.item.ID, Correct: true})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	want := 0.3
	for i := 0; i < n; i++ {
		want = mastery.Update(types.DefaultBktParameters(), want, true)
	}
	assert.InDelta(t, want, f.repo.stateFor(student, f.kc).PMastery, 1e-12)
	assert.Equal(t, n, f.repo.eventCount())
}

func TestProcessHonoursCancelledContextWhileWaiting(t *testing.T) {
	f := newPipelineFixture(t)
	student := uuid.New()

	unlock, err := f.store.Lock(context.Background(), student, f.kc)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.pipeline.Process(ctx, ResponseInput{StudentID: student, ContentItemID: f.item.ID, Correct: true})
	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StageLoadState, perr.Stage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
