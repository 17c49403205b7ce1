package mastery

import (
	"time"

	"github.com/yungbote/neurobridge-mastery/internal/platform/envutil"
)

// Thresholds holds the tunable constants of the fuzzy layer. The defaults are
// product decisions, not derived values.
type Thresholds struct {
	SecondsPerDifficulty float64
	FastRatio            float64
	QuickRatio           float64
	SlowRatio            float64

	HintPenaltyStep    float64
	AttemptPenaltyStep float64
	PenaltyCap         float64

	RecentWindow         time.Duration
	RecentLimit          int
	LowPerformanceRate   float64
	LowPerformanceWeight float64

	MasteryCeiling        float64
	CeilingMargin         float64
	CeilingCorrectRate    float64
	CeilingConsecutive    int
	CeilingGoodSessions   int
	SessionGap            time.Duration
	SessionMinResponses   int
	SessionMinCorrectRate float64
	HistoryLookback       time.Duration
	HistoryLimit          int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		SecondsPerDifficulty: 10,
		FastRatio:            0.5,
		QuickRatio:           0.8,
		SlowRatio:            2.0,

		HintPenaltyStep:    0.01,
		AttemptPenaltyStep: 0.01,
		PenaltyCap:         0.03,

		RecentWindow:         10 * time.Minute,
		RecentLimit:          10,
		LowPerformanceRate:   0.6,
		LowPerformanceWeight: 0.05,

		MasteryCeiling:        0.8,
		CeilingMargin:         0.01,
		CeilingCorrectRate:    0.7,
		CeilingConsecutive:    3,
		CeilingGoodSessions:   2,
		SessionGap:            30 * time.Minute,
		SessionMinResponses:   3,
		SessionMinCorrectRate: 0.7,
		HistoryLookback:       30 * 24 * time.Hour,
		HistoryLimit:          200,
	}
}

// ThresholdsFromEnv starts from the defaults and applies MASTERY_* overrides.
func ThresholdsFromEnv() Thresholds {
	d := DefaultThresholds()
	return Thresholds{
		SecondsPerDifficulty: clampRange(envutil.Float("MASTERY_SECONDS_PER_DIFFICULTY", d.SecondsPerDifficulty), 1, 600),
		FastRatio:            clampRange(envutil.Float("MASTERY_FAST_RATIO", d.FastRatio), 0, 10),
		QuickRatio:           clampRange(envutil.Float("MASTERY_QUICK_RATIO", d.QuickRatio), 0, 10),
		SlowRatio:            clampRange(envutil.Float("MASTERY_SLOW_RATIO", d.SlowRatio), 0, 50),

		HintPenaltyStep:    clamp01(envutil.Float("MASTERY_HINT_PENALTY_STEP", d.HintPenaltyStep)),
		AttemptPenaltyStep: clamp01(envutil.Float("MASTERY_ATTEMPT_PENALTY_STEP", d.AttemptPenaltyStep)),
		PenaltyCap:         clamp01(envutil.Float("MASTERY_PENALTY_CAP", d.PenaltyCap)),

		RecentWindow:         envutil.Duration("MASTERY_RECENT_WINDOW", d.RecentWindow),
		RecentLimit:          atLeast(envutil.Int("MASTERY_RECENT_LIMIT", d.RecentLimit), 1),
		LowPerformanceRate:   clamp01(envutil.Float("MASTERY_LOW_PERFORMANCE_RATE", d.LowPerformanceRate)),
		LowPerformanceWeight: clamp01(envutil.Float("MASTERY_LOW_PERFORMANCE_WEIGHT", d.LowPerformanceWeight)),

		MasteryCeiling:        clamp01(envutil.Float("MASTERY_CEILING", d.MasteryCeiling)),
		CeilingMargin:         clamp01(envutil.Float("MASTERY_CEILING_MARGIN", d.CeilingMargin)),
		CeilingCorrectRate:    clamp01(envutil.Float("MASTERY_CEILING_CORRECT_RATE", d.CeilingCorrectRate)),
		CeilingConsecutive:    atLeast(envutil.Int("MASTERY_CEILING_CONSECUTIVE", d.CeilingConsecutive), 1),
		CeilingGoodSessions:   atLeast(envutil.Int("MASTERY_CEILING_GOOD_SESSIONS", d.CeilingGoodSessions), 1),
		SessionGap:            envutil.Duration("MASTERY_SESSION_GAP", d.SessionGap),
		SessionMinResponses:   atLeast(envutil.Int("MASTERY_SESSION_MIN_RESPONSES", d.SessionMinResponses), 1),
		SessionMinCorrectRate: clamp01(envutil.Float("MASTERY_SESSION_MIN_CORRECT_RATE", d.SessionMinCorrectRate)),
		HistoryLookback:       envutil.Duration("MASTERY_HISTORY_LOOKBACK", d.HistoryLookback),
		HistoryLimit:          atLeast(envutil.Int("MASTERY_HISTORY_LIMIT", d.HistoryLimit), 1),
	}
}

func atLeast(v, min int) int {
	if v < min {
		return min
	}
	return v
}
