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

type KnowledgeStateRepo interface {
	// Get returns (nil, nil) when the pair has no state yet.
	Get(dbc dbctx.Context, studentID, kcID uuid.UUID) (*types.KnowledgeState, error)
	// Create fails with types.ErrAlreadyExists when the pair is taken.
	Create(dbc dbctx.Context, row *types.KnowledgeState) error
	Save(dbc dbctx.Context, row *types.KnowledgeState) error
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.KnowledgeState, error)
}

type knowledgeStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeStateRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeStateRepo {
	return &knowledgeStateRepo{db: db, log: baseLog.With("repo", "KnowledgeStateRepo")}
}

func (r *knowledgeStateRepo) Get(dbc dbctx.Context, studentID, kcID uuid.UUID) (*types.KnowledgeState, error) {
	t := dbc.Conn(r.db)
	var row types.KnowledgeState
	err := t.WithContext(dbc.Context()).
		Where("student_id = ? AND knowledge_component_id = ?", studentID, kcID).
		Limit(1).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *knowledgeStateRepo) Create(dbc dbctx.Context, row *types.KnowledgeState) error {
	t := dbc.Conn(r.db)
	if row == nil {
		return nil
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.LastUpdate.IsZero() {
		row.LastUpdate = now
	}
	row.UpdatedAt = now
	return mapWriteError("create knowledge_state", t.WithContext(dbc.Context()).Create(row).Error)
}

func (r *knowledgeStateRepo) Save(dbc dbctx.Context, row *types.KnowledgeState) error {
	t := dbc.Conn(r.db)
	if row == nil || row.ID == uuid.Nil {
		return errors.New("save knowledge_state: missing id")
	}
	row.UpdatedAt = time.Now().UTC()
	res := t.WithContext(dbc.Context()).
		Model(&types.KnowledgeState{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"p_mastery":   row.PMastery,
			"p_transit":   row.PTransit,
			"p_slip":      row.PSlip,
			"p_guess":     row.PGuess,
			"last_update": row.LastUpdate,
			"updated_at":  row.UpdatedAt,
		})
	if res.Error != nil {
		return mapWriteError("save knowledge_state", res.Error)
	}
	if res.RowsAffected == 0 {
		return &types.NotFoundError{Resource: "knowledge_state", ID: row.ID.String()}
	}
	return nil
}

func (r *knowledgeStateRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.KnowledgeState, error) {
	t := dbc.Conn(r.db)
	out := []*types.KnowledgeState{}
	if studentID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Context()).
		Where("student_id = ?", studentID).
		Order("last_update DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
