package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
)

// Persistence is the storage the mastery core writes to. Load methods return
// (nil, nil) when the row does not exist. CreateKnowledgeState returns an
// error matching types.ErrAlreadyExists when the (student, KC) pair is taken.
type Persistence interface {
	LoadKnowledgeState(dbc dbctx.Context, studentID, kcID uuid.UUID) (*types.KnowledgeState, error)
	CreateKnowledgeState(dbc dbctx.Context, state *types.KnowledgeState) error
	SaveKnowledgeState(dbc dbctx.Context, state *types.KnowledgeState) error

	AppendResponseEvent(dbc dbctx.Context, event *types.ResponseEvent) error
	// LoadRecentResponses returns newest first.
	LoadRecentResponses(dbc dbctx.Context, studentID uuid.UUID, kcIDs []uuid.UUID, since time.Time, limit int) ([]*types.ResponseEvent, error)
	// LoadRecentItemResponses returns newest first, restricted to itemIDs.
	LoadRecentItemResponses(dbc dbctx.Context, studentID uuid.UUID, itemIDs []uuid.UUID, limit int) ([]*types.ResponseEvent, error)
}

// Catalog is the read-only content side. GetContentItem returns (nil, nil)
// for an unknown item.
type Catalog interface {
	GetContentItem(dbc dbctx.Context, itemID uuid.UUID) (*types.ContentItem, error)
	ListContentItemsForKC(dbc dbctx.Context, kcID uuid.UUID) ([]*types.ContentItem, error)
}

// KCConfigSource yields per-KC BKT overrides. (nil, nil) means none.
type KCConfigSource interface {
	GetParameterOverrides(ctx context.Context, kcID uuid.UUID) (*types.ParameterOverrides, error)
}

// Transactor runs fn inside one database transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

// KeyLocker serializes work per key. The returned func releases the lock and
// is safe to call more than once.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
