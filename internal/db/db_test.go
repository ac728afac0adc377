package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/store"
	"github.com/google/go-cmp/cmp"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tasko.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOutboxLifecycle(t *testing.T) {
	db := openTest(t)

	first, err := db.Enqueue(OutboxEntry{Table: "tasks", Op: "insert", EntityID: "t1", Payload: []byte(`{"id":"t1"}`)})
	if err != nil {
		t.Fatal(err)
	}
	second, _ := db.Enqueue(OutboxEntry{Table: "tasks", Op: "update", EntityID: "t1", Payload: []byte(`{"title":"x"}`)})

	pending, err := db.Pending(0, 10, 3)
	if err != nil {
		t.Fatal(err)
	}
	var ids []int64
	for _, e := range pending {
		ids = append(ids, e.ID)
	}
	if !cmp.Equal(ids, []int64{first, second}) {
		t.Fatalf("pending ids = %v", ids)
	}
	if string(pending[0].Payload) != `{"id":"t1"}` {
		t.Errorf("payload = %s", pending[0].Payload)
	}

	if err := db.MarkDone(first); err != nil {
		t.Fatal(err)
	}
	rec := ErrorRecord{Code: "23505", Message: "duplicate", Details: "t1", Hint: "retry"}
	for i := 0; i < 3; i++ {
		if err := db.MarkFailed(second, rec); err != nil {
			t.Fatal(err)
		}
	}

	if pending, _ := db.Pending(0, 10, 3); len(pending) != 0 {
		t.Errorf("exhausted entry still pending: %+v", pending)
	}
	failures, err := db.Failures()
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 || failures[0].Attempts != 3 || failures[0].Error != rec {
		t.Errorf("failures = %+v", failures)
	}

	p, f, err := db.Counts()
	if err != nil || p != 0 || f != 1 {
		t.Errorf("counts = %d, %d, %v", p, f, err)
	}

	if n, _ := db.Retry(); n != 1 {
		t.Errorf("retry reset %d entries", n)
	}
	if pending, _ := db.Pending(0, 10, 3); len(pending) != 1 {
		t.Errorf("retried entry not pending")
	}

	if n, _ := db.PurgeDone(time.Now().Add(time.Minute)); n != 1 {
		t.Errorf("purged %d entries, want 1", n)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := openTest(t)

	if _, ok, err := db.LoadSnapshot(); ok || err != nil {
		t.Fatalf("empty db: ok=%v err=%v", ok, err)
	}

	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	want := store.State{
		Tasks:       []model.Task{{ID: "t1", Title: "x", ProjectID: "p1", CreatedAt: created, UpdatedAt: created, Tags: []string{"a"}}},
		Projects:    []model.Project{{ID: "p1", Name: "P", CreatedAt: created, Tasks: []string{"t1"}}},
		CurrentUser: &model.User{ID: "u1", Name: "Ada", Email: "ada@example.com"},
	}
	if err := db.SaveSnapshot(want); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveSnapshot(want); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, ok, err := db.LoadSnapshot()
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	if err := db.ClearSnapshot(); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := db.LoadSnapshot(); ok {
		t.Error("snapshot survived clear")
	}
}
