package mastery

import (
	"math"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

// AdjustInput is everything the fuzzy layer looks at for one response.
type AdjustInput struct {
	// Mastery is the BKT posterior for this response.
	Mastery float64
	// PreviousMastery is the stored belief before this response.
	PreviousMastery float64
	Correct         bool
	// TimeSpent in seconds; nil skips the layer entirely.
	TimeSpent   *float64
	Difficulty  int
	Interaction *types.InteractionData
}

// Adjuster nudges a BKT posterior using response time, help-seeking and the
// recent-performance trend, and keeps a single lucky streak from crossing the
// mastery line.
type Adjuster struct {
	th Thresholds
}

func NewAdjuster(th Thresholds) *Adjuster {
	return &Adjuster{th: th}
}

func (a *Adjuster) Thresholds() Thresholds { return a.th }

// Applies reports whether Adjust would change anything for this input.
func (a *Adjuster) Applies(in AdjustInput) bool {
	return in.TimeSpent != nil && *in.TimeSpent >= 0 && !math.IsNaN(*in.TimeSpent)
}

func (a *Adjuster) Adjust(in AdjustInput) float64 {
	if !a.Applies(in) {
		return in.Mastery
	}

	difficulty := in.Difficulty
	if difficulty < types.MinDifficulty {
		difficulty = types.MinDifficulty
	}
	expected := a.th.SecondsPerDifficulty * float64(difficulty)
	ratio := *in.TimeSpent / expected

	delta := a.baseDelta(in.Correct, ratio)

	var signal *types.RecentPerformance
	if in.Interaction != nil {
		delta = a.helpPenalty(delta, in.Correct, in.Interaction)
		signal = in.Interaction.RecentPerformance
	}

	if signal != nil && signal.CorrectRate != nil && *signal.CorrectRate < a.th.LowPerformanceRate {
		delta -= a.th.LowPerformanceWeight * (1 - *signal.CorrectRate)
	}

	out := clamp01(in.Mastery + delta)
	if out >= a.th.MasteryCeiling && !a.ceilingEarned(in.PreviousMastery, signal) {
		out = a.th.MasteryCeiling - a.th.CeilingMargin
	}
	return out
}

func (a *Adjuster) baseDelta(correct bool, ratio float64) float64 {
	if correct {
		switch {
		case ratio < a.th.FastRatio:
			return 0.05
		case ratio < a.th.QuickRatio:
			return 0.025
		case ratio > a.th.SlowRatio:
			return -0.01
		}
		return 0
	}
	switch {
	case ratio < a.th.FastRatio:
		// fast and wrong reads as careless
		return -0.05
	case ratio > a.th.SlowRatio:
		return -0.015
	}
	return -0.03
}

// helpPenalty charges hints and retries against a positive delta. A heavily
// assisted correct answer can end up below zero.
func (a *Adjuster) helpPenalty(delta float64, correct bool, d *types.InteractionData) float64 {
	if delta <= 0 {
		return delta
	}
	if d.HintsUsed > 0 {
		delta -= math.Min(a.th.HintPenaltyStep*float64(d.HintsUsed), a.th.PenaltyCap)
	}
	if correct && d.Attempts > 1 {
		delta -= math.Min(a.th.AttemptPenaltyStep*float64(d.Attempts-1), a.th.PenaltyCap)
	}
	return delta
}

func (a *Adjuster) ceilingEarned(previous float64, signal *types.RecentPerformance) bool {
	if previous >= a.th.MasteryCeiling {
		return true
	}
	if signal == nil {
		return false
	}
	if signal.CorrectRate != nil && *signal.CorrectRate >= a.th.CeilingCorrectRate {
		return true
	}
	return signal.ConsecutiveCorrect >= a.th.CeilingConsecutive ||
		signal.SessionsWithGoodPerformance >= a.th.CeilingGoodSessions
}
