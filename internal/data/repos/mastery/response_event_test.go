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

func TestResponseEventRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewResponseEventRepo(db, testutil.Logger(t))

	student := uuid.New()
	kcA, kcB := uuid.New(), uuid.New()
	item1, item2, item3 := uuid.New(), uuid.New(), uuid.New()
	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)

	spent := 12.5
	payload, err := types.EncodeInteraction(&types.InteractionData{HintsUsed: 2, Attempts: 1})
	if err != nil {
		t.Fatalf("EncodeInteraction: %v", err)
	}
	first := &types.ResponseEvent{
		StudentID:            student,
		KnowledgeComponentID: kcA,
		ContentItemID:        item1,
		Correct:              true,
		TimeSpent:            &spent,
		InteractionData:      payload,
		CreatedAt:            base,
	}
	if err := repo.Append(dbc, first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first.ID == uuid.Nil {
		t.Fatalf("Append: id not assigned")
	}

	testutil.SeedResponseEvent(t, ctx, tx, student, kcA, item2, false, base.Add(10*time.Minute))
	testutil.SeedResponseEvent(t, ctx, tx, student, kcA, item1, true, base.Add(20*time.Minute))
	testutil.SeedResponseEvent(t, ctx, tx, student, kcB, item3, true, base.Add(30*time.Minute))
	testutil.SeedResponseEvent(t, ctx, tx, uuid.New(), kcA, item1, true, base.Add(40*time.Minute))

	rows, err := repo.ListRecentByKCs(dbc, student, []uuid.UUID{kcA}, time.Time{}, 0)
	if err != nil || len(rows) != 3 {
		t.Fatalf("ListRecentByKCs: err=%v len=%d", err, len(rows))
	}
	if !rows[0].CreatedAt.After(rows[1].CreatedAt) || !rows[1].CreatedAt.After(rows[2].CreatedAt) {
		t.Fatalf("ListRecentByKCs: want newest first, got %v, %v, %v", rows[0].CreatedAt, rows[1].CreatedAt, rows[2].CreatedAt)
	}
	oldest := rows[2]
	if oldest.TimeSpent == nil || *oldest.TimeSpent != 12.5 {
		t.Fatalf("ListRecentByKCs: time_spent not round-tripped: %v", oldest.TimeSpent)
	}
	if d := oldest.Interaction(); d == nil || d.HintsUsed != 2 {
		t.Fatalf("ListRecentByKCs: interaction not round-tripped: %+v", d)
	}

	if rows, err := repo.ListRecentByKCs(dbc, student, []uuid.UUID{kcA}, base.Add(5*time.Minute), 0); err != nil || len(rows) != 2 {
		t.Fatalf("ListRecentByKCs since: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.ListRecentByKCs(dbc, student, []uuid.UUID{kcA, kcB}, time.Time{}, 2); err != nil || len(rows) != 2 || rows[0].KnowledgeComponentID != kcB {
		t.Fatalf("ListRecentByKCs limit: err=%v rows=%v", err, rows)
	}
	if rows, err := repo.ListRecentByKCs(dbc, student, nil, time.Time{}, 0); err != nil || len(rows) != 0 {
		t.Fatalf("ListRecentByKCs empty ids: err=%v len=%d", err, len(rows))
	}

	byItem, err := repo.ListRecentByItems(dbc, student, []uuid.UUID{item1, item2}, 10)
	if err != nil || len(byItem) != 3 {
		t.Fatalf("ListRecentByItems: err=%v len=%d", err, len(byItem))
	}
	if byItem[0].ContentItemID != item1 || !byItem[0].CreatedAt.Equal(base.Add(20*time.Minute)) {
		t.Fatalf("ListRecentByItems: unexpected head %+v", byItem[0])
	}
	if rows, err := repo.ListRecentByItems(dbc, student, []uuid.UUID{item1, item2}, 1); err != nil || len(rows) != 1 {
		t.Fatalf("ListRecentByItems limit: err=%v len=%d", err, len(rows))
	}
}
