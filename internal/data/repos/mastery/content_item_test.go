package mastery

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
)

func TestContentItemRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewContentItemRepo(db, testutil.Logger(t))

	kc := uuid.New()
	base := time.Now().UTC().Truncate(time.Second)

	created, err := repo.Create(dbc, []*types.ContentItem{
		{KnowledgeComponentID: testutil.PtrUUID(kc), Difficulty: 9, CreatedAt: base.Add(2 * time.Second)},
		{KnowledgeComponentID: testutil.PtrUUID(kc), Difficulty: 0, CreatedAt: base},
		{Difficulty: 3, CreatedAt: base},
	})
	if err != nil || len(created) != 3 {
		t.Fatalf("Create: err=%v len=%d", err, len(created))
	}
	if created[0].Difficulty != types.MaxDifficulty || created[1].Difficulty != types.MinDifficulty {
		t.Fatalf("Create: difficulty not clamped: %d, %d", created[0].Difficulty, created[1].Difficulty)
	}
	if created[2].Type != "question" {
		t.Fatalf("Create: default type not applied: %q", created[2].Type)
	}

	got, err := repo.GetByID(dbc, created[2].ID)
	if err != nil || got == nil || got.KCID() != uuid.Nil {
		t.Fatalf("GetByID unlinked: got=%v err=%v", got, err)
	}
	if got, err := repo.GetByID(dbc, uuid.New()); err != nil || got != nil {
		t.Fatalf("GetByID missing: got=%v err=%v", got, err)
	}

	pool, err := repo.ListByKC(dbc, kc)
	if err != nil || len(pool) != 2 {
		t.Fatalf("ListByKC: err=%v len=%d", err, len(pool))
	}
	if pool[0].ID != created[1].ID || pool[1].ID != created[0].ID {
		t.Fatalf("ListByKC: want oldest first")
	}
	if pool, err := repo.ListByKC(dbc, uuid.New()); err != nil || len(pool) != 0 {
		t.Fatalf("ListByKC empty: err=%v len=%d", err, len(pool))
	}
}
