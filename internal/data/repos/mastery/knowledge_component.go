package mastery

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type KnowledgeComponentRepo interface {
	// Ensure inserts the row unless its id or key already exists.
	Ensure(dbc dbctx.Context, row *types.KnowledgeComponent) error
	// GetByID returns (nil, nil) for an unknown KC.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.KnowledgeComponent, error)
	GetByKey(dbc dbctx.Context, key string) (*types.KnowledgeComponent, error)
	// SetParameterOverrides rejects probabilities outside [0,1]. Other keys
	// in the KC config are preserved.
	SetParameterOverrides(dbc dbctx.Context, id uuid.UUID, o *types.ParameterOverrides) error
	GetParameterOverrides(dbc dbctx.Context, id uuid.UUID) (*types.ParameterOverrides, error)
}

type knowledgeComponentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeComponentRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeComponentRepo {
	return &knowledgeComponentRepo{db: db, log: baseLog.With("repo", "KnowledgeComponentRepo")}
}

func (r *knowledgeComponentRepo) Ensure(dbc dbctx.Context, row *types.KnowledgeComponent) error {
	t := dbc.Conn(r.db)
	if row == nil {
		return nil
	}
	row.Key = strings.TrimSpace(row.Key)
	if row.Key == "" {
		return &types.InvalidInputError{Field: "key", Reason: "required"}
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	return mapWriteError("ensure knowledge_component", t.WithContext(dbc.Context()).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error)
}

func (r *knowledgeComponentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.KnowledgeComponent, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc, "id = ?", id)
}

func (r *knowledgeComponentRepo) GetByKey(dbc dbctx.Context, key string) (*types.KnowledgeComponent, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	return r.first(dbc, "key = ?", key)
}

func (r *knowledgeComponentRepo) first(dbc dbctx.Context, query string, arg interface{}) (*types.KnowledgeComponent, error) {
	t := dbc.Conn(r.db)
	var row types.KnowledgeComponent
	err := t.WithContext(dbc.Context()).Where(query, arg).Limit(1).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *knowledgeComponentRepo) SetParameterOverrides(dbc dbctx.Context, id uuid.UUID, o *types.ParameterOverrides) error {
	if err := o.Validate(); err != nil {
		return err
	}
	t := dbc.Conn(r.db)
	kc, err := r.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if kc == nil {
		return &types.NotFoundError{Resource: "knowledge_component", ID: id.String()}
	}
	cfg, err := kc.WithParameterOverrides(o)
	if err != nil {
		return err
	}
	if err := t.WithContext(dbc.Context()).
		Model(&types.KnowledgeComponent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"config":     cfg,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return err
	}
	r.log.Info("bkt overrides updated", "kc_id", id.String(), "cleared", o.IsEmpty())
	return nil
}

func (r *knowledgeComponentRepo) GetParameterOverrides(dbc dbctx.Context, id uuid.UUID) (*types.ParameterOverrides, error) {
	kc, err := r.GetByID(dbc, id)
	if err != nil || kc == nil {
		return nil, err
	}
	return kc.ParameterOverrides()
}
