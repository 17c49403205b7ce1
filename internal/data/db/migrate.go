package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Catalog (owned elsewhere; migrated here for standalone runs)
		&types.KnowledgeComponent{},
		&types.ContentItem{},

		// Mastery tracking
		&types.KnowledgeState{},
		&types.ResponseEvent{},
	)
}
