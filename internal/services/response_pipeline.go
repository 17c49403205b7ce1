package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/modules/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

// Stage names one step of response processing.
type Stage string

const (
	StageResolveKC     Stage = "RESOLVE_KC"
	StageLoadState     Stage = "LOAD_STATE"
	StageComputeSignal Stage = "COMPUTE_SIGNAL"
	StageBktUpdate     Stage = "BKT_UPDATE"
	StageFuzzyAdjust   Stage = "FUZZY_ADJUST"
	StagePersist       Stage = "PERSIST"
	StageRecordEvent   Stage = "RECORD_EVENT"
	StageDone          Stage = "DONE"
)

// PipelineError records the stage a response failed in.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", strings.ToLower(string(e.Stage)), e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// ResponseInput is one submitted answer.
type ResponseInput struct {
	StudentID     uuid.UUID
	ContentItemID uuid.UUID
	Correct       bool
	// TimeSpent in seconds; nil when the client did not measure it.
	TimeSpent   *float64
	Interaction *types.InteractionData
}

func (in ResponseInput) Validate() error {
	if in.StudentID == uuid.Nil {
		return &types.InvalidInputError{Field: "student_id", Reason: "required"}
	}
	if in.ContentItemID == uuid.Nil {
		return &types.InvalidInputError{Field: "content_item_id", Reason: "required"}
	}
	if in.TimeSpent != nil && (math.IsNaN(*in.TimeSpent) || math.IsInf(*in.TimeSpent, 0) || *in.TimeSpent < 0) {
		return &types.InvalidInputError{Field: "time_spent", Reason: "must be a non-negative number of seconds"}
	}
	if d := in.Interaction; d != nil {
		if d.HintsUsed < 0 {
			return &types.InvalidInputError{Field: "hints_used", Reason: "must be >= 0"}
		}
		if d.Attempts < 0 {
			return &types.InvalidInputError{Field: "attempts", Reason: "must be >= 0"}
		}
		if rp := d.RecentPerformance; rp != nil {
			if rp.CorrectRate != nil && (math.IsNaN(*rp.CorrectRate) || *rp.CorrectRate < 0 || *rp.CorrectRate > 1) {
				return &types.InvalidInputError{Field: "correct_rate", Reason: "must be within [0,1]"}
			}
			if rp.ConsecutiveCorrect < 0 || rp.SessionsWithGoodPerformance < 0 {
				return &types.InvalidInputError{Field: "recent_performance", Reason: "counts must be >= 0"}
			}
		}
	}
	return nil
}

type ResponsePipeline interface {
	Process(ctx context.Context, in ResponseInput) (*types.ResponseResult, error)
}

type responsePipeline struct {
	log      *logger.Logger
	catalog  Catalog
	store    KnowledgeStateStore
	repo     Persistence
	tx       Transactor
	adjuster *mastery.Adjuster
	tracer   trace.Tracer
	nowFunc  func() time.Time
	notifier MasteryNotifier
	observer PipelineObserver
}

// NewResponsePipeline wires the stages. tx may be nil, in which case PERSIST
// and RECORD_EVENT run without a shared transaction.
func NewResponsePipeline(
	log *logger.Logger,
	catalog Catalog,
	store KnowledgeStateStore,
	repo Persistence,
	tx Transactor,
	thresholds mastery.Thresholds,
	opts ...PipelineOption,
) ResponsePipeline {
	p := &responsePipeline{
		log:      log.With("service", "ResponsePipeline"),
		catalog:  catalog,
		store:    store,
		repo:     repo,
		tx:       tx,
		adjuster: mastery.NewAdjuster(thresholds),
		tracer:   otel.Tracer("neurobridge-mastery/services"),
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// responseRun carries values between stages of a single Process call.
type responseRun struct {
	in       ResponseInput
	item     *types.ContentItem
	kcID     uuid.UUID
	state    *types.KnowledgeState
	signal   *types.RecentPerformance
	previous float64
	bkt      float64
	adjusted float64
	fuzzy    bool
	event    *types.ResponseEvent
}

func (p *responsePipeline) Process(ctx context.Context, in ResponseInput) (*types.ResponseResult, error) {
	start := time.Now()
	if err := in.Validate(); err != nil {
		p.observe(err, start, 0)
		return nil, err
	}

	ctx, span := p.tracer.Start(ctx, "mastery.process_response", trace.WithAttributes(
		attribute.String("content_item_id", in.ContentItemID.String()),
		attribute.Bool("correct", in.Correct),
	))
	defer span.End()

	run := &responseRun{in: in}

	if err := p.stage(ctx, StageResolveKC, run, p.resolveKC); err != nil {
		return nil, p.fail(span, err, start)
	}

	var unlock func()
	err := p.stage(ctx, StageLoadState, run, func(ctx context.Context, run *responseRun) error {
		u, err := p.store.Lock(ctx, in.StudentID, run.kcID)
		if err != nil {
			return err
		}
		unlock = u
		state, err := p.store.GetOrCreate(ctx, in.StudentID, run.kcID)
		if err != nil {
			return err
		}
		run.state = state.Clone()
		run.previous = state.PMastery
		return nil
	})
	if unlock != nil {
		defer unlock()
	}
	if err != nil {
		return nil, p.fail(span, err, start)
	}

	stages := []struct {
		name Stage
		fn   func(context.Context, *responseRun) error
	}{
		{StageComputeSignal, p.computeSignal},
		{StageBktUpdate, p.bktUpdate},
		{StageFuzzyAdjust, p.fuzzyAdjust},
	}
	for _, s := range stages {
		if err := p.stage(ctx, s.name, run, s.fn); err != nil {
			return nil, p.fail(span, err, start)
		}
	}

	if err := p.commit(ctx, run); err != nil {
		return nil, p.fail(span, err, start)
	}
	p.notify(ctx, run)

	res := &types.ResponseResult{
		KnowledgeComponentID: run.kcID,
		EventID:              run.event.ID,
		PreviousMastery:      run.previous,
		NewMastery:           run.adjusted,
		MasteryChange:        run.adjusted - run.previous,
		Mastered:             run.adjusted >= types.MasteredThreshold,
		FuzzyApplied:         run.fuzzy,
	}
	span.SetAttributes(
		attribute.String("kc_id", run.kcID.String()),
		attribute.Float64("mastery.previous", res.PreviousMastery),
		attribute.Float64("mastery.new", res.NewMastery),
	)
	p.log.Info("processed response", p.fields(ctx, run,
		"previous_mastery", res.PreviousMastery,
		"new_mastery", res.NewMastery,
		"fuzzy_applied", res.FuzzyApplied,
		"stage", string(StageDone),
	)...)
	p.observe(nil, start, res.MasteryChange)
	return res, nil
}

func (p *responsePipeline) resolveKC(ctx context.Context, run *responseRun) error {
	item, err := p.catalog.GetContentItem(dbctx.From(ctx), run.in.ContentItemID)
	if err != nil {
		return fmt.Errorf("load content item: %w", err)
	}
	if item == nil {
		return &types.NotFoundError{Resource: "content_item", ID: run.in.ContentItemID.String()}
	}
	kcID := item.KCID()
	if kcID == uuid.Nil {
		return &types.NotFoundError{
			Resource: "knowledge_component",
			ID:       run.in.ContentItemID.String(),
			Reason:   "content item is not linked to a knowledge component",
		}
	}
	run.item = item
	run.kcID = kcID
	return nil
}

// computeSignal never fails the response. A caller-supplied signal wins over
// the history lookup.
func (p *responsePipeline) computeSignal(ctx context.Context, run *responseRun) error {
	if run.in.Interaction != nil && run.in.Interaction.RecentPerformance != nil {
		run.signal = run.in.Interaction.RecentPerformance
		return nil
	}
	th := p.adjuster.Thresholds()
	now := p.nowFunc()
	history, err := p.repo.LoadRecentResponses(dbctx.From(ctx), run.in.StudentID, []uuid.UUID{run.kcID}, now.Add(-th.HistoryLookback), th.HistoryLimit)
	if err != nil {
		terr := &types.TransientSignalError{Err: err}
		trace.SpanFromContext(ctx).RecordError(terr)
		p.log.Warn("recent performance unavailable; continuing without it", p.fields(ctx, run, "error", terr)...)
		if p.observer != nil {
			p.observer.IncSignalFallback()
		}
		return nil
	}
	run.signal = mastery.ComputeRecentPerformance(now, history, th)
	return nil
}

func (p *responsePipeline) bktUpdate(ctx context.Context, run *responseRun) error {
	params := run.state.Params(0)
	run.bkt = mastery.Update(params, run.state.PMastery, run.in.Correct)
	return nil
}

func (p *responsePipeline) fuzzyAdjust(ctx context.Context, run *responseRun) error {
	var interaction *types.InteractionData
	if run.in.Interaction != nil {
		cp := *run.in.Interaction
		interaction = &cp
	}
	if run.signal != nil {
		if interaction == nil {
			interaction = &types.InteractionData{}
		}
		interaction.RecentPerformance = run.signal
	}
	in := mastery.AdjustInput{
		Mastery:         run.bkt,
		PreviousMastery: run.previous,
		Correct:         run.in.Correct,
		TimeSpent:       run.in.TimeSpent,
		Difficulty:      run.item.Difficulty,
		Interaction:     interaction,
	}
	run.fuzzy = p.adjuster.Applies(in)
	run.adjusted = p.adjuster.Adjust(in)
	return nil
}

// commit runs PERSIST and RECORD_EVENT in one transaction when a Transactor
// is configured.
func (p *responsePipeline) commit(ctx context.Context, run *responseRun) error {
	write := func(dbc dbctx.Context) error {
		if err := p.stage(dbc.Context(), StagePersist, run, func(ctx context.Context, run *responseRun) error {
			run.state.PMastery = run.adjusted
			run.state.LastUpdate = p.nowFunc()
			return p.store.Persist(dbctx.Context{Ctx: ctx, Tx: dbc.Tx}, run.state)
		}); err != nil {
			return err
		}
		return p.stage(dbc.Context(), StageRecordEvent, run, func(ctx context.Context, run *responseRun) error {
			payload, err := types.EncodeInteraction(run.in.Interaction)
			if err != nil {
				return fmt.Errorf("encode interaction data: %w", err)
			}
			ev := &types.ResponseEvent{
				ID:                   uuid.New(),
				StudentID:            run.in.StudentID,
				KnowledgeComponentID: run.kcID,
				ContentItemID:        run.item.ID,
				Correct:              run.in.Correct,
				TimeSpent:            run.in.TimeSpent,
				InteractionData:      payload,
				CreatedAt:            p.nowFunc(),
			}
			if err := p.repo.AppendResponseEvent(dbctx.Context{Ctx: ctx, Tx: dbc.Tx}, ev); err != nil {
				return fmt.Errorf("append response event: %w", err)
			}
			run.event = ev
			return nil
		})
	}

	var err error
	if p.tx == nil {
		err = write(dbctx.From(ctx))
	} else {
		err = p.tx.InTx(ctx, write)
	}
	if err == nil {
		return nil
	}
	var perr *PipelineError
	if errors.As(err, &perr) {
		return err
	}
	return &PipelineError{Stage: StageRecordEvent, Err: err}
}

func (p *responsePipeline) stage(ctx context.Context, name Stage, run *responseRun, fn func(context.Context, *responseRun) error) error {
	ctx, span := p.tracer.Start(ctx, "mastery.stage."+strings.ToLower(string(name)))
	defer span.End()
	if err := fn(ctx, run); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &PipelineError{Stage: name, Err: err}
	}
	return nil
}

func (p *responsePipeline) fail(span trace.Span, err error, start time.Time) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.observe(err, start, 0)
	return err
}

func (p *responsePipeline) fields(ctx context.Context, run *responseRun, kv ...interface{}) []interface{} {
	out := []interface{}{
		"student_id", run.in.StudentID.String(),
		"content_item_id", run.in.ContentItemID.String(),
	}
	if run.kcID != uuid.Nil {
		out = append(out, "kc_id", run.kcID.String())
	}
	out = append(out, kv...)
	return append(out, ctxutil.LogFields(ctx)...)
}
