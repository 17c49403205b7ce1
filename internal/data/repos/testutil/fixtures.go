package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

func SeedKnowledgeComponent(tb testing.TB, ctx context.Context, tx *gorm.DB, key string) *types.KnowledgeComponent {
	tb.Helper()
	kc := &types.KnowledgeComponent{
		ID:   uuid.New(),
		Key:  key,
		Name: key,
	}
	if err := tx.WithContext(ctx).Create(kc).Error; err != nil {
		tb.Fatalf("seed knowledge component: %v", err)
	}
	return kc
}

func SeedContentItem(tb testing.TB, ctx context.Context, tx *gorm.DB, kcID *uuid.UUID, difficulty int, createdAt time.Time) *types.ContentItem {
	tb.Helper()
	item := &types.ContentItem{
		ID:                   uuid.New(),
		KnowledgeComponentID: kcID,
		Difficulty:           difficulty,
		Type:                 "question",
		Title:                "item",
		CreatedAt:            createdAt,
	}
	if err := tx.WithContext(ctx).Create(item).Error; err != nil {
		tb.Fatalf("seed content item: %v", err)
	}
	return item
}

func SeedResponseEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID, kcID, itemID uuid.UUID, correct bool, at time.Time) *types.ResponseEvent {
	tb.Helper()
	ev := &types.ResponseEvent{
		ID:                   uuid.New(),
		StudentID:            studentID,
		KnowledgeComponentID: kcID,
		ContentItemID:        itemID,
		Correct:              correct,
		CreatedAt:            at,
	}
	if err := tx.WithContext(ctx).Create(ev).Error; err != nil {
		tb.Fatalf("seed response event: %v", err)
	}
	return ev
}

func PtrUUID(id uuid.UUID) *uuid.UUID { return &id }

func PtrFloat(v float64) *float64 { return &v }
