package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
)

type stateKey struct {
	student uuid.UUID
	kc      uuid.UUID
}

type fakePersistence struct {
	mu     sync.Mutex
	states map[stateKey]*types.KnowledgeState
	events []*types.ResponseEvent

	historyErr   error
	saveErr      error
	appendErr    error
	historyCalls int
	createCalls  int
	beforeCreate func(state *types.KnowledgeState)
}

func newFakePersistence() *fakePersistence {
	return &fakePersistence{states: map[stateKey]*types.KnowledgeState{}}
}

func (f *fakePersistence) LoadKnowledgeState(dbc dbctx.Context, studentID, kcID uuid.UUID) (*types.KnowledgeState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[stateKey{studentID, kcID}].Clone(), nil
}

func (f *fakePersistence) CreateKnowledgeState(dbc dbctx.Context, state *types.KnowledgeState) error {
	if hook := f.beforeCreate; hook != nil {
		f.beforeCreate = nil
		hook(state)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	k := stateKey{state.StudentID, state.KnowledgeComponentID}
	if _, ok := f.states[k]; ok {
		return fmt.Errorf("insert knowledge_state: %w", types.ErrAlreadyExists)
	}
	f.states[k] = state.Clone()
	return nil
}

func (f *fakePersistence) SaveKnowledgeState(dbc dbctx.Context, state *types.KnowledgeState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.states[stateKey{state.StudentID, state.KnowledgeComponentID}] = state.Clone()
	return nil
}

func (f *fakePersistence) AppendResponseEvent(dbc dbctx.Context, event *types.ResponseEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	cp := *event
	f.events = append(f.events, &cp)
	return nil
}

func (f *fakePersistence) LoadRecentResponses(dbc dbctx.Context, studentID uuid.UUID, kcIDs []uuid.UUID, since time.Time, limit int) ([]*types.ResponseEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	kcs := map[uuid.UUID]bool{}
	for _, id := range kcIDs {
		kcs[id] = true
	}
	var out []*types.ResponseEvent
	for _, e := range f.events {
		if e.StudentID == studentID && kcs[e.KnowledgeComponentID] && !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return newestFirst(out, limit), nil
}

func (f *fakePersistence) LoadRecentItemResponses(dbc dbctx.Context, studentID uuid.UUID, itemIDs []uuid.UUID, limit int) ([]*types.ResponseEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := map[uuid.UUID]bool{}
	for _, id := range itemIDs {
		items[id] = true
	}
	var out []*types.ResponseEvent
	for _, e := range f.events {
		if e.StudentID == studentID && items[e.ContentItemID] {
			out = append(out, e)
		}
	}
	return newestFirst(out, limit), nil
}

func (f *fakePersistence) stateFor(studentID, kcID uuid.UUID) *types.KnowledgeState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[stateKey{studentID, kcID}].Clone()
}

func (f *fakePersistence) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func newestFirst(in []*types.ResponseEvent, limit int) []*types.ResponseEvent {
	sort.SliceStable(in, func(i, j int) bool { return in[i].CreatedAt.After(in[j].CreatedAt) })
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	return in
}

type fakeCatalog struct {
	items map[uuid.UUID]*types.ContentItem
	order []uuid.UUID
	err   error
}

func newFakeCatalog(items ...*types.ContentItem) *fakeCatalog {
	c := &fakeCatalog{items: map[uuid.UUID]*types.ContentItem{}}
	for _, it := range items {
		c.items[it.ID] = it
		c.order = append(c.order, it.ID)
	}
	return c
}

func (c *fakeCatalog) GetContentItem(dbc dbctx.Context, itemID uuid.UUID) (*types.ContentItem, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.items[itemID], nil
}

func (c *fakeCatalog) ListContentItemsForKC(dbc dbctx.Context, kcID uuid.UUID) ([]*types.ContentItem, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []*types.ContentItem
	for _, id := range c.order {
		if it := c.items[id]; it.KCID() == kcID {
			out = append(out, it)
		}
	}
	return out, nil
}

type fakeConfigSource struct {
	mu        sync.Mutex
	overrides map[uuid.UUID]*types.ParameterOverrides
	err       error
	calls     int
	// honorCtx makes lookups fail once the caller's context is done.
	honorCtx bool
}

func (s *fakeConfigSource) GetParameterOverrides(ctx context.Context, kcID uuid.UUID) (*types.ParameterOverrides, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.honorCtx && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return s.overrides[kcID], nil
}

type fakeTx struct {
	mu    sync.Mutex
	calls int
}

func (t *fakeTx) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	return fn(dbctx.Context{Ctx: ctx})
}

func ptr(v float64) *float64 { return &v }

func linkedItem(kcID uuid.UUID, difficulty int) *types.ContentItem {
	id := kcID
	return &types.ContentItem{ID: uuid.New(), KnowledgeComponentID: &id, Difficulty: difficulty, Type: "question"}
}
