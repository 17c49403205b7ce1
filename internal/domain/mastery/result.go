package mastery

import (
	"time"

	"github.com/google/uuid"
)

// MasteredThreshold is the belief at which a KC counts as mastered.
const MasteredThreshold = 0.8

// ResponseResult is returned to the caller after a response is processed.
type ResponseResult struct {
	KnowledgeComponentID uuid.UUID `json:"knowledge_component_id"`
	EventID              uuid.UUID `json:"event_id"`
	PreviousMastery      float64   `json:"previous_mastery"`
	NewMastery           float64   `json:"new_mastery"`
	MasteryChange        float64   `json:"mastery_change"`
	Mastered             bool      `json:"mastered"`
	FuzzyApplied         bool      `json:"fuzzy_applied"`
}

// ScoredItem pairs a candidate content item with its recommendation score.
type ScoredItem struct {
	Item             *ContentItem `json:"item"`
	Score            int          `json:"score"`
	RecentlySeen     bool         `json:"recently_seen"`
	TargetDifficulty int          `json:"target_difficulty"`
}

// MasteryUpdate is broadcast after a response has been committed.
type MasteryUpdate struct {
	StudentID            uuid.UUID `json:"student_id"`
	KnowledgeComponentID uuid.UUID `json:"knowledge_component_id"`
	ContentItemID        uuid.UUID `json:"content_item_id"`
	EventID              uuid.UUID `json:"event_id"`
	Correct              bool      `json:"correct"`
	PreviousMastery      float64   `json:"previous_mastery"`
	NewMastery           float64   `json:"new_mastery"`
	Mastered             bool      `json:"mastered"`
	At                   time.Time `json:"at"`
}
