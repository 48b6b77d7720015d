package out_test

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	timerout "worktrack/internal/modules/timer/adapter/out"
	"worktrack/internal/modules/timer/domain"
	"worktrack/internal/platform/clock"
	"worktrack/internal/platform/database"
	apperrors "worktrack/internal/platform/errors"
	"worktrack/internal/platform/logging"
)

type seqIDs struct{ n int }

func (s *seqIDs) New() string {
	s.n++
	return fmt.Sprintf("sess-%d", s.n)
}

type movingClock struct{ now time.Time }

func (c *movingClock) Now() time.Time { return c.now }

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.DriverSQLite, filepath.Join(t.TempDir(), "wt.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(ctx, db, database.DriverSQLite, logging.Discard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestFileActiveSessionStorePerUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	vault := t.TempDir()
	alice := timerout.NewFileActiveSessionStore(vault, "alice")
	bob := timerout.NewFileActiveSessionStore(vault, "bob")

	if _, err := alice.LoadActive(ctx); !errors.Is(err, apperrors.ErrNoActiveSession) {
		t.Fatalf("expected empty slot, got %v", err)
	}
	want := domain.ActiveSession{SessionID: "s1", TaskID: "task-1", ProjectType: "web", StartedAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	if err := alice.SaveActive(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := bob.LoadActive(ctx); !errors.Is(err, apperrors.ErrNoActiveSession) {
		t.Fatalf("slots must be per user, got %v", err)
	}

	reopened := timerout.NewFileActiveSessionStore(vault, "alice")
	got, err := reopened.LoadActive(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.SessionID != want.SessionID || !got.StartedAt.Equal(want.StartedAt) {
		t.Fatalf("unexpected slot: %+v", got)
	}

	for i := 0; i < 2; i++ {
		if err := reopened.ClearActive(ctx); err != nil {
			t.Fatalf("clear pass %d: %v", i, err)
		}
	}
	if _, err := alice.LoadActive(ctx); !errors.Is(err, apperrors.ErrNoActiveSession) {
		t.Fatalf("expected cleared slot, got %v", err)
	}
}

func TestFileActiveSessionStoreDistinctUserIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	vault := t.TempDir()
	started := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	for _, pair := range [][2]string{{"田中", "佐藤"}, {"Alice", "alice"}} {
		first := timerout.NewFileActiveSessionStore(vault, pair[0])
		second := timerout.NewFileActiveSessionStore(vault, pair[1])
		if err := first.SaveActive(ctx, domain.ActiveSession{SessionID: "s-" + pair[0], TaskID: "task-1", ProjectType: "web", StartedAt: started}); err != nil {
			t.Fatalf("save %s: %v", pair[0], err)
		}
		if _, err := second.LoadActive(ctx); !errors.Is(err, apperrors.ErrNoActiveSession) {
			t.Fatalf("%s must not see the slot of %s, got %v", pair[1], pair[0], err)
		}
		if err := second.SaveActive(ctx, domain.ActiveSession{SessionID: "s-" + pair[1], TaskID: "task-2", ProjectType: "web", StartedAt: started}); err != nil {
			t.Fatalf("save %s: %v", pair[1], err)
		}
		got, err := first.LoadActive(ctx)
		if err != nil || got.SessionID != "s-"+pair[0] {
			t.Fatalf("%s slot overwritten: %+v %v", pair[0], got, err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(vault, ".worktrack", "active"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 slot files, got %d", len(entries))
	}
}

func TestFileActiveSessionStoreCorruptFile(t *testing.T) {
	t.Parallel()
	vault := t.TempDir()
	store := timerout.NewFileActiveSessionStore(vault, "alice")
	sum := sha256.Sum256([]byte("alice"))
	path := filepath.Join(vault, ".worktrack", "active", hex.EncodeToString(sum[:])+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := store.LoadActive(context.Background())
	if err == nil || errors.Is(err, apperrors.ErrNoActiveSession) {
		t.Fatalf("corrupt slot should be an error distinct from empty, got %v", err)
	}
}

func TestSQLSessionStoreLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := &movingClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	store := timerout.NewSQLSessionStore(openDB(t), clk, &seqIDs{})

	id, err := store.CreateRunningSession(ctx, "web", "task-1", "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateRunningSession(ctx, "web", "task-2", "alice"); !errors.Is(err, apperrors.ErrActiveSessionExists) {
		t.Fatalf("second running session must conflict, got %v", err)
	}
	if _, err := store.CreateRunningSession(ctx, "web", "task-2", "bob"); err != nil {
		t.Fatalf("other users may run timers: %v", err)
	}

	running, err := store.FindRunningSession(ctx, "web", "task-1", "alice")
	if err != nil || running == nil || running.ID != id {
		t.Fatalf("expected running session %s, got %+v %v", id, running, err)
	}
	if other, err := store.FindRunningSession(ctx, "web", "task-2", "alice"); err != nil || other != nil {
		t.Fatalf("no running session expected for task-2, got %+v %v", other, err)
	}

	clk.now = clk.now.Add(90 * time.Second)
	duration, err := store.CloseSession(ctx, id, "wrapped up")
	if err != nil || duration != 90 {
		t.Fatalf("close: %d %v", duration, err)
	}
	clk.now = clk.now.Add(time.Hour)
	again, err := store.CloseSession(ctx, id, "")
	if !errors.Is(err, apperrors.ErrSessionClosed) || again != 90 {
		t.Fatalf("second close should report frozen duration, got %d %v", again, err)
	}
	if _, err := store.CloseSession(ctx, "missing", ""); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	sessions, err := store.ListSessions(ctx, "web", "task-1", "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 || sessions[0].IsRunning() || sessions[0].DurationSec != 90 || sessions[0].Note != "wrapped up" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
	all, err := store.ListSessions(ctx, "web", "task-2", "")
	if err != nil || len(all) != 1 || all[0].UserID != "bob" {
		t.Fatalf("listing every user: %+v %v", all, err)
	}

	if _, err := store.CreateRunningSession(ctx, "web", "task-3", "alice"); err != nil {
		t.Fatalf("alice may start again after closing: %v", err)
	}
}

func TestVaultSessionJournalRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	vault := t.TempDir()
	journal := timerout.NewVaultSessionJournal(vault)

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, note := range []string{"first", "second"} {
		start := base.Add(time.Duration(i) * time.Hour)
		end := start.Add(65 * time.Second)
		path, err := journal.Append(ctx, domain.Session{
			ID: "s" + note, TaskID: "Task 1", ProjectType: "web", UserID: "alice",
			StartedAt: start, EndedAt: &end, DurationSec: 65, Note: note,
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if !strings.Contains(filepath.ToSlash(path), "sessions/2026/04/01/") {
			t.Fatalf("unexpected journal path %s", path)
		}
	}
	if err := os.WriteFile(filepath.Join(vault, "sessions", "2026", "04", "01", "junk.md"), []byte("no frontmatter"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}

	entries, err := journal.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].Session.Note != "second" || entries[1].Session.Note != "first" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	if entries[0].Session.EndedAt == nil || entries[0].Session.DurationSec != 65 {
		t.Fatalf("ended time and duration should round-trip: %+v", entries[0].Session)
	}
	limited, err := journal.List(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit: %d %v", len(limited), err)
	}

	empty, err := timerout.NewVaultSessionJournal(t.TempDir()).List(ctx, 5)
	if err != nil || len(empty) != 0 {
		t.Fatalf("missing journal dir should list nothing: %v %v", empty, err)
	}
}

var _ clock.Clock = (*movingClock)(nil)
