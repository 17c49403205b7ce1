package mastery

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

// ResponseEventRepo is append-only.
type ResponseEventRepo interface {
	Append(dbc dbctx.Context, row *types.ResponseEvent) error
	// ListRecentByKCs returns events at or after since, newest first.
	ListRecentByKCs(dbc dbctx.Context, studentID uuid.UUID, kcIDs []uuid.UUID, since time.Time, limit int) ([]*types.ResponseEvent, error)
	// ListRecentByItems returns the latest events on the given items, newest first.
	ListRecentByItems(dbc dbctx.Context, studentID uuid.UUID, itemIDs []uuid.UUID, limit int) ([]*types.ResponseEvent, error)
}

type responseEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResponseEventRepo(db *gorm.DB, baseLog *logger.Logger) ResponseEventRepo {
	return &responseEventRepo{db: db, log: baseLog.With("repo", "ResponseEventRepo")}
}

func (r *responseEventRepo) Append(dbc dbctx.Context, row *types.ResponseEvent) error {
	t := dbc.Conn(r.db)
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return mapWriteError("append response_event", t.WithContext(dbc.Context()).Create(row).Error)
}

func (r *responseEventRepo) ListRecentByKCs(dbc dbctx.Context, studentID uuid.UUID, kcIDs []uuid.UUID, since time.Time, limit int) ([]*types.ResponseEvent, error) {
	t := dbc.Conn(r.db)
	out := []*types.ResponseEvent{}
	ids := uniqueIDs(kcIDs)
	if studentID == uuid.Nil || len(ids) == 0 {
		return out, nil
	}
	q := t.WithContext(dbc.Context()).
		Where("student_id = ? AND knowledge_component_id IN ?", studentID, ids)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *responseEventRepo) ListRecentByItems(dbc dbctx.Context, studentID uuid.UUID, itemIDs []uuid.UUID, limit int) ([]*types.ResponseEvent, error) {
	t := dbc.Conn(r.db)
	out := []*types.ResponseEvent{}
	ids := uniqueIDs(itemIDs)
	if studentID == uuid.Nil || len(ids) == 0 {
		return out, nil
	}
	q := t.WithContext(dbc.Context()).
		Where("student_id = ? AND content_item_id IN ?", studentID, ids).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func uniqueIDs(in []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(in))
	seen := map[uuid.UUID]bool{}
	for _, id := range in {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
