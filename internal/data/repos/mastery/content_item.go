package mastery

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type ContentItemRepo interface {
	Create(dbc dbctx.Context, rows []*types.ContentItem) ([]*types.ContentItem, error)
	// GetByID returns (nil, nil) for an unknown item.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error)
	// ListByKC returns the pool in a stable order: oldest first, then by id.
	ListByKC(dbc dbctx.Context, kcID uuid.UUID) ([]*types.ContentItem, error)
}

type contentItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentItemRepo(db *gorm.DB, baseLog *logger.Logger) ContentItemRepo {
	return &contentItemRepo{db: db, log: baseLog.With("repo", "ContentItemRepo")}
}

func (r *contentItemRepo) Create(dbc dbctx.Context, rows []*types.ContentItem) ([]*types.ContentItem, error) {
	t := dbc.Conn(r.db)
	if len(rows) == 0 {
		return []*types.ContentItem{}, nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row == nil {
			continue
		}
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if row.Type == "" {
			row.Type = "question"
		}
		if row.Difficulty < types.MinDifficulty {
			row.Difficulty = types.MinDifficulty
		}
		if row.Difficulty > types.MaxDifficulty {
			row.Difficulty = types.MaxDifficulty
		}
	}
	if err := t.WithContext(dbc.Context()).Create(&rows).Error; err != nil {
		return nil, mapWriteError("create content_item", err)
	}
	return rows, nil
}

func (r *contentItemRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error) {
	t := dbc.Conn(r.db)
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.ContentItem
	err := t.WithContext(dbc.Context()).Where("id = ?", id).Limit(1).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *contentItemRepo) ListByKC(dbc dbctx.Context, kcID uuid.UUID) ([]*types.ContentItem, error) {
	t := dbc.Conn(r.db)
	out := []*types.ContentItem{}
	if kcID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Context()).
		Where("knowledge_component_id = ?", kcID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
