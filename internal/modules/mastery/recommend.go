package mastery

import (
	"math"

	"github.com/google/uuid"
	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

const (
	baseScore        = 10
	seenPenalty      = 5
	difficultyWeight = 2

	// RecentItemLimit bounds how many of the latest responses count as
	// "recently seen".
	RecentItemLimit = 10
)

// TargetDifficulty maps a mastery belief onto the 1..5 difficulty scale.
func TargetDifficulty(mastery float64) int {
	t := int(math.Ceil(mastery * types.MaxDifficulty))
	if t < types.MinDifficulty {
		return types.MinDifficulty
	}
	if t > types.MaxDifficulty {
		return types.MaxDifficulty
	}
	return t
}

// ScoreCandidates scores every item in pool order.
func ScoreCandidates(pool []*types.ContentItem, seen map[uuid.UUID]bool, mastery float64) []types.ScoredItem {
	target := TargetDifficulty(mastery)
	out := make([]types.ScoredItem, 0, len(pool))
	for _, item := range pool {
		if item == nil {
			continue
		}
		recent := seen[item.ID]
		score := baseScore - difficultyWeight*absInt(item.Difficulty-target)
		if recent {
			score -= seenPenalty
		}
		out = append(out, types.ScoredItem{
			Item:             item,
			Score:            score,
			RecentlySeen:     recent,
			TargetDifficulty: target,
		})
	}
	return out
}

// SelectNext returns the highest scoring candidate; ties go to the earliest
// item in the pool. Returns nil for an empty pool.
func SelectNext(pool []*types.ContentItem, seen map[uuid.UUID]bool, mastery float64) *types.ScoredItem {
	scored := ScoreCandidates(pool, seen, mastery)
	if len(scored) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[best].Score {
			best = i
		}
	}
	return &scored[best]
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
