package mastery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
)

func TestKnowledgeStateRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewKnowledgeStateRepo(db, testutil.Logger(t))

	student := uuid.New()
	kc := uuid.New()

	if got, err := repo.Get(dbc, student, kc); err != nil || got != nil {
		t.Fatalf("Get missing: got=%v err=%v", got, err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	state := types.NewKnowledgeState(student, kc, types.DefaultBktParameters(), now)
	if err := repo.Create(dbc, state); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// savepoint keeps the outer tx usable on postgres after the failed insert
	if err := tx.SavePoint("dup").Error; err != nil {
		t.Fatalf("SavePoint: %v", err)
	}
	dup := types.NewKnowledgeState(student, kc, types.DefaultBktParameters(), now)
	err := repo.Create(dbc, dup)
	if !errors.Is(err, types.ErrAlreadyExists) {
		t.Fatalf("Create duplicate: want ErrAlreadyExists, got %v", err)
	}
	if err := tx.RollbackTo("dup").Error; err != nil {
		t.Fatalf("RollbackTo: %v", err)
	}

	got, err := repo.Get(dbc, student, kc)
	if err != nil || got == nil || got.ID != state.ID {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	if got.PMastery != 0.3 || got.PSlip != 0.1 || got.PGuess != 0.2 || got.PTransit != 0.09 {
		t.Fatalf("Get: unexpected snapshot %+v", got)
	}

	got.PMastery = 0.6893
	got.LastUpdate = now.Add(time.Minute)
	if err := repo.Save(dbc, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reloaded, err := repo.Get(dbc, student, kc)
	if err != nil || reloaded == nil {
		t.Fatalf("Get after Save: got=%v err=%v", reloaded, err)
	}
	if reloaded.PMastery != 0.6893 {
		t.Fatalf("Save: want p_mastery 0.6893, got %v", reloaded.PMastery)
	}

	ghost := types.NewKnowledgeState(uuid.New(), kc, types.DefaultBktParameters(), now)
	if err := repo.Save(dbc, ghost); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("Save unknown: want ErrNotFound, got %v", err)
	}

	other := types.NewKnowledgeState(student, uuid.New(), types.DefaultBktParameters(), now)
	if err := repo.Create(dbc, other); err != nil {
		t.Fatalf("Create second kc: %v", err)
	}
	if rows, err := repo.ListByStudent(dbc, student); err != nil || len(rows) != 2 {
		t.Fatalf("ListByStudent: err=%v len=%d", err, len(rows))
	}
}
