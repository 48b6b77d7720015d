//go:build e2e

package e2e

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	tasksdomain "worktrack/internal/modules/tasks/domain"
	tasksout "worktrack/internal/modules/tasks/adapter/out"
	timerout "worktrack/internal/modules/timer/adapter/out"
	"worktrack/internal/platform/clock"
	"worktrack/internal/platform/database"
	apperrors "worktrack/internal/platform/errors"
	"worktrack/internal/platform/id"
	"worktrack/internal/platform/logging"
)

func startMySQL(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_DATABASE":      "worktrack",
			"MYSQL_ROOT_PASSWORD": "secret",
			"MYSQL_USER":          "test",
			"MYSQL_PASSWORD":      "pass",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mysql container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("test:pass@tcp(%s:%s)/worktrack?parseTime=true&multiStatements=true", host, port.Port())
}

func openWithRetry(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	var lastErr error
	// The port opens before the server accepts logins.
	for attempt := 0; attempt < 30; attempt++ {
		db, err := database.Open(context.Background(), database.DriverMySQL, dsn)
		if err == nil {
			t.Cleanup(func() { _ = db.Close() })
			return db
		}
		lastErr = err
		time.Sleep(2 * time.Second)
	}
	t.Fatalf("open mysql: %v", lastErr)
	return nil
}

func TestMySQLStores(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	ctx := context.Background()
	db := openWithRetry(t, startMySQL(t))
	log := logging.Discard()

	if err := database.Migrate(ctx, db, database.DriverMySQL, log); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.Migrate(ctx, db, database.DriverMySQL, log); err != nil {
		t.Fatalf("migrate twice: %v", err)
	}

	tasks := tasksout.NewSQLTaskStore(db, log)
	updated := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		task := tasksdomain.Task{
			ID:          fmt.Sprintf("t%d", i),
			ProjectType: "web",
			Title:       fmt.Sprintf("task %d", i),
			FlowStatus:  tasksdomain.FlowTodo,
			AssigneeIDs: []string{"alice"},
			Order:       i,
			CreatedAt:   updated,
			UpdatedAt:   updated,
		}
		if err := tasks.UpsertTask(ctx, task); err != nil {
			t.Fatalf("upsert %s: %v", task.ID, err)
		}
	}
	page, err := tasks.ListTasks(ctx, "web", "", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Tasks) != 2 || !page.HasMore {
		t.Fatalf("first page: %d tasks hasMore=%t", len(page.Tasks), page.HasMore)
	}
	rest, err := tasks.ListTasks(ctx, "web", page.NextCursor, 2)
	if err != nil {
		t.Fatalf("list rest: %v", err)
	}
	if len(rest.Tasks) != 1 || rest.HasMore {
		t.Fatalf("second page: %d tasks hasMore=%t", len(rest.Tasks), rest.HasMore)
	}

	sessions := timerout.NewSQLSessionStore(db, clock.SystemClock{}, id.UUID{})
	sessionID, err := sessions.CreateRunningSession(ctx, "web", "t1", "alice")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := sessions.CreateRunningSession(ctx, "web", "t2", "alice"); !errors.Is(err, apperrors.ErrActiveSessionExists) {
		t.Fatalf("second running session: want conflict, got %v", err)
	}

	got, err := tasks.GetTask(ctx, "web", "t1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if !got.HasActiveTimer {
		t.Fatalf("t1 should report a running timer")
	}

	if _, err := sessions.CloseSession(ctx, sessionID, ""); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := sessions.CloseSession(ctx, sessionID, ""); !errors.Is(err, apperrors.ErrSessionClosed) {
		t.Fatalf("close twice: want session closed, got %v", err)
	}
}
