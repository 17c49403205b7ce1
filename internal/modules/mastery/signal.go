package mastery

import (
	"sort"
	"time"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

// ComputeRecentPerformance derives the trend signal from a student's response
// history for one KC. Events may arrive in any order. Returns nil when there
// is no history.
func ComputeRecentPerformance(now time.Time, events []*types.ResponseEvent, th Thresholds) *types.RecentPerformance {
	hist := make([]*types.ResponseEvent, 0, len(events))
	for _, e := range events {
		if e != nil {
			hist = append(hist, e)
		}
	}
	if len(hist) == 0 {
		return nil
	}
	// newest first
	sort.SliceStable(hist, func(i, j int) bool {
		return hist[i].CreatedAt.After(hist[j].CreatedAt)
	})

	out := &types.RecentPerformance{}

	cutoff := now.Add(-th.RecentWindow)
	var seen, correct int
	for _, e := range hist {
		if seen >= th.RecentLimit {
			break
		}
		if e.CreatedAt.Before(cutoff) {
			break
		}
		seen++
		if e.Correct {
			correct++
		}
	}
	if seen > 0 {
		rate := float64(correct) / float64(seen)
		out.CorrectRate = &rate
	}

	for _, e := range hist {
		if !e.Correct {
			break
		}
		out.ConsecutiveCorrect++
	}

	out.SessionsWithGoodPerformance = countGoodSessions(hist, th)
	return out
}

// countGoodSessions walks newest-first history. A gap longer than SessionGap
// between neighbours starts a new session.
func countGoodSessions(hist []*types.ResponseEvent, th Thresholds) int {
	good := 0
	total, correct := 0, 0
	flush := func() {
		if total >= th.SessionMinResponses && float64(correct)/float64(total) >= th.SessionMinCorrectRate {
			good++
		}
		total, correct = 0, 0
	}
	for i, e := range hist {
		if i > 0 && hist[i-1].CreatedAt.Sub(e.CreatedAt) > th.SessionGap {
			flush()
		}
		total++
		if e.Correct {
			correct++
		}
	}
	flush()
	return good
}
