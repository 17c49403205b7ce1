package mastery

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// ContentItem is a practice item owned by the content catalog. The mastery
// core only reads it.
type ContentItem struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	KnowledgeComponentID *uuid.UUID `gorm:"type:uuid;index" json:"knowledge_component_id,omitempty"`
	Difficulty           int        `gorm:"not null;default:1" json:"difficulty"`
	Type                 string     `gorm:"not null;default:'question'" json:"type"`
	Title                string     `json:"title,omitempty"`
	CreatedAt            time.Time  `gorm:"not null" json:"created_at"`
}

func (ContentItem) TableName() string { return "content_item" }

func (c *ContentItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// KCID returns the linked knowledge component, or uuid.Nil when unlinked.
func (c *ContentItem) KCID() uuid.UUID {
	if c == nil || c.KnowledgeComponentID == nil {
		return uuid.Nil
	}
	return *c.KnowledgeComponentID
}
