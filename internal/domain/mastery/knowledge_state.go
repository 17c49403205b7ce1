package mastery

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KnowledgeState is the belief about one student's mastery of one knowledge
// component. Transit/slip/guess are a snapshot taken when the row was created
// and only change through an explicit reseed.
type KnowledgeState struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_knowledge_state_student_kc,priority:1" json:"student_id"`
	KnowledgeComponentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_knowledge_state_student_kc,priority:2;index" json:"knowledge_component_id"`

	PMastery float64 `gorm:"column:p_mastery;not null" json:"p_mastery"`
	PTransit float64 `gorm:"column:p_transit;not null" json:"p_transit"`
	PSlip    float64 `gorm:"column:p_slip;not null" json:"p_slip"`
	PGuess   float64 `gorm:"column:p_guess;not null" json:"p_guess"`

	LastUpdate time.Time `gorm:"column:last_update;not null" json:"last_update"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (KnowledgeState) TableName() string { return "knowledge_state" }

func (s *KnowledgeState) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// NewKnowledgeState seeds a state from the parameters active for the KC.
func NewKnowledgeState(studentID, kcID uuid.UUID, params BktParameters, now time.Time) *KnowledgeState {
	return &KnowledgeState{
		ID:                   uuid.New(),
		StudentID:            studentID,
		KnowledgeComponentID: kcID,
		PMastery:             params.PInitial,
		PTransit:             params.PTransit,
		PSlip:                params.PSlip,
		PGuess:               params.PGuess,
		LastUpdate:           now,
	}
}

// Params rebuilds the parameter set the state was seeded with. PInitial is
// not snapshotted, so the caller supplies it.
func (s *KnowledgeState) Params(pInitial float64) BktParameters {
	return BktParameters{
		PInitial: pInitial,
		PTransit: s.PTransit,
		PSlip:    s.PSlip,
		PGuess:   s.PGuess,
	}
}

// Clone returns a detached copy so callers can mutate without aliasing a
// store's internal record.
func (s *KnowledgeState) Clone() *KnowledgeState {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
