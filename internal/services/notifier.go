package services

import (
	"context"
	"errors"
	"time"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

// MasteryNotifier is told about every committed response. Failures are
// logged by the caller and never undo the commit.
type MasteryNotifier interface {
	MasteryUpdated(ctx context.Context, u types.MasteryUpdate) error
}

// PipelineObserver receives per-response outcomes for metrics.
// failedStage is empty on success.
type PipelineObserver interface {
	ObserveResponse(failedStage string, dur time.Duration, delta float64)
	IncSignalFallback()
}

type PipelineOption func(*responsePipeline)

func WithNotifier(n MasteryNotifier) PipelineOption {
	return func(p *responsePipeline) { p.notifier = n }
}

func WithObserver(o PipelineObserver) PipelineOption {
	return func(p *responsePipeline) { p.observer = o }
}

func (p *responsePipeline) notify(ctx context.Context, run *responseRun) {
	if p.notifier == nil || run.event == nil {
		return
	}
	u := types.MasteryUpdate{
		StudentID:            run.in.StudentID,
		KnowledgeComponentID: run.kcID,
		ContentItemID:        run.in.ContentItemID,
		EventID:              run.event.ID,
		Correct:              run.in.Correct,
		PreviousMastery:      run.previous,
		NewMastery:           run.adjusted,
		Mastered:             run.adjusted >= types.MasteredThreshold,
		At:                   run.event.CreatedAt,
	}
	if err := p.notifier.MasteryUpdated(ctx, u); err != nil {
		p.log.Warn("mastery update notification failed", p.fields(ctx, run, "error", err)...)
	}
}

func (p *responsePipeline) observe(err error, start time.Time, delta float64) {
	if p.observer == nil {
		return
	}
	failed := ""
	if err != nil {
		failed = "VALIDATE"
		var perr *PipelineError
		if errors.As(err, &perr) {
			failed = string(perr.Stage)
		}
	}
	p.observer.ObserveResponse(failed, time.Since(start), delta)
}
