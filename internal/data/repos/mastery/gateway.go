package mastery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

// Gateway bundles the mastery repos behind the method set the services
// layer depends on (persistence, catalog and KC config).
type Gateway struct {
	States KnowledgeStateRepo
	Events ResponseEventRepo
	Items  ContentItemRepo
	KCs    KnowledgeComponentRepo
	Tx     TxRunner
}

func NewGateway(db *gorm.DB, baseLog *logger.Logger) *Gateway {
	return &Gateway{
		States: NewKnowledgeStateRepo(db, baseLog),
		Events: NewResponseEventRepo(db, baseLog),
		Items:  NewContentItemRepo(db, baseLog),
		KCs:    NewKnowledgeComponentRepo(db, baseLog),
		Tx:     NewGormTxRunner(db),
	}
}

func (g *Gateway) LoadKnowledgeState(dbc dbctx.Context, studentID, kcID uuid.UUID) (*types.KnowledgeState, error) {
	return g.States.Get(dbc, studentID, kcID)
}

func (g *Gateway) CreateKnowledgeState(dbc dbctx.Context, state *types.KnowledgeState) error {
	return g.States.Create(dbc, state)
}

func (g *Gateway) SaveKnowledgeState(dbc dbctx.Context, state *types.KnowledgeState) error {
	return g.States.Save(dbc, state)
}

func (g *Gateway) AppendResponseEvent(dbc dbctx.Context, event *types.ResponseEvent) error {
	return g.Events.Append(dbc, event)
}

func (g *Gateway) LoadRecentResponses(dbc dbctx.Context, studentID uuid.UUID, kcIDs []uuid.UUID, since time.Time, limit int) ([]*types.ResponseEvent, error) {
	return g.Events.ListRecentByKCs(dbc, studentID, kcIDs, since, limit)
}

func (g *Gateway) LoadRecentItemResponses(dbc dbctx.Context, studentID uuid.UUID, itemIDs []uuid.UUID, limit int) ([]*types.ResponseEvent, error) {
	return g.Events.ListRecentByItems(dbc, studentID, itemIDs, limit)
}

func (g *Gateway) GetContentItem(dbc dbctx.Context, itemID uuid.UUID) (*types.ContentItem, error) {
	return g.Items.GetByID(dbc, itemID)
}

func (g *Gateway) ListContentItemsForKC(dbc dbctx.Context, kcID uuid.UUID) ([]*types.ContentItem, error) {
	return g.Items.ListByKC(dbc, kcID)
}

func (g *Gateway) GetParameterOverrides(ctx context.Context, kcID uuid.UUID) (*types.ParameterOverrides, error) {
	return g.KCs.GetParameterOverrides(dbctx.From(ctx), kcID)
}

func (g *Gateway) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return g.Tx.InTx(ctx, fn)
}
