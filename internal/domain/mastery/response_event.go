package mastery

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ResponseEvent is the immutable record of one submitted answer.
type ResponseEvent struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID            uuid.UUID `gorm:"type:uuid;not null;index:idx_response_event_student_kc_created,priority:1" json:"student_id"`
	KnowledgeComponentID uuid.UUID `gorm:"type:uuid;not null;index:idx_response_event_student_kc_created,priority:2" json:"knowledge_component_id"`
	ContentItemID        uuid.UUID `gorm:"type:uuid;not null;index" json:"content_item_id"`

	Correct         bool           `gorm:"not null" json:"correct"`
	TimeSpent       *float64       `gorm:"column:time_spent" json:"time_spent,omitempty"`
	InteractionData datatypes.JSON `gorm:"column:interaction_data" json:"interaction_data,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_response_event_student_kc_created,priority:3" json:"created_at"`
}

func (ResponseEvent) TableName() string { return "response_event" }

func (e *ResponseEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Interaction decodes the stored interaction payload. A missing or malformed
// payload yields nil.
func (e *ResponseEvent) Interaction() *InteractionData {
	if e == nil || len(e.InteractionData) == 0 || string(e.InteractionData) == "null" {
		return nil
	}
	var out InteractionData
	if err := json.Unmarshal(e.InteractionData, &out); err != nil {
		return nil
	}
	return &out
}

// InteractionData describes help-seeking during a single response.
type InteractionData struct {
	HintsUsed         int                `json:"hints_used"`
	Attempts          int                `json:"attempts"`
	RecentPerformance *RecentPerformance `json:"recent_performance,omitempty"`
}

// RecentPerformance is the short-term trend signal used by the fuzzy layer.
// CorrectRate is nil when no response fell inside the rolling window.
type RecentPerformance struct {
	CorrectRate                 *float64 `json:"correct_rate,omitempty"`
	ConsecutiveCorrect          int      `json:"consecutive_correct"`
	SessionsWithGoodPerformance int      `json:"sessions_with_good_performance"`
}

// EncodeInteraction serialises interaction data for storage; nil stays nil.
func EncodeInteraction(d *InteractionData) (datatypes.JSON, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
