package service_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"worktrack/internal/modules/tasks/domain"
	"worktrack/internal/modules/tasks/service"
	"worktrack/internal/platform/clock"
	apperrors "worktrack/internal/platform/errors"
	"worktrack/internal/platform/logging"
)

var now = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu      sync.Mutex
	tasks   []domain.Task
	lists   []string
	gets    []string
	listErr error
	getErr  error
}

func (f *fakeSource) ListTasks(_ context.Context, _ string, cursor string, limit int) (domain.TaskPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, cursor)
	if f.listErr != nil {
		return domain.TaskPage{}, f.listErr
	}
	offset := 0
	if cursor != "" {
		offset, _ = strconv.Atoi(cursor)
	}
	end := min(offset+limit, len(f.tasks))
	page := domain.TaskPage{Tasks: append([]domain.Task(nil), f.tasks[offset:end]...)}
	if end < len(f.tasks) {
		page.HasMore = true
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (f *fakeSource) GetTask(_ context.Context, _ string, id string) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, id)
	if f.getErr != nil {
		return domain.Task{}, f.getErr
	}
	for _, task := range f.tasks {
		if task.ID == id {
			return task, nil
		}
	}
	return domain.Task{}, apperrors.ErrNotFound
}

func (f *fakeSource) set(i int, task domain.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[i] = task
}

func seeded(n int) *fakeSource {
	src := &fakeSource{}
	for i := 0; i < n; i++ {
		src.tasks = append(src.tasks, domain.Task{
			ID:         fmt.Sprintf("t%03d", i),
			FlowStatus: domain.FlowTodo,
			Order:      i,
			CreatedAt:  now.Add(-100 * 24 * time.Hour),
			UpdatedAt:  now.Add(-50 * 24 * time.Hour),
		})
	}
	return src
}

func newService(src *fakeSource, pageSize int) *service.TaskService {
	return service.NewTaskService(clock.Fixed(now), src, pageSize, logging.Discard())
}

func TestWindowFetchesOnlyWhatThePageNeeds(t *testing.T) {
	t.Parallel()
	src := seeded(100)
	svc := newService(src, 30)
	ctx := context.Background()

	w, err := svc.Window(ctx, "web", domain.FilterSpec{}, "", 1)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(w.Items) != 30 || len(src.lists) != 1 {
		t.Fatalf("page 1 should need one batch, got %d items after %d fetches", len(w.Items), len(src.lists))
	}
	if !w.CanGoNext || w.RangeLabel != "1-30 / 30+件" {
		t.Fatalf("unexpected window: %+v", w)
	}

	w, err = svc.Window(ctx, "web", domain.FilterSpec{}, "", 3)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(w.Items) != 30 || w.Items[0].ID != "t060" || len(src.lists) != 3 {
		t.Fatalf("page 3 should pull two more batches: first=%v fetches=%d", w.Items[0].ID, len(src.lists))
	}

	w, err = svc.Window(ctx, "web", domain.FilterSpec{}, "", 4)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(w.Items) != 10 || w.CanGoNext || w.HasMore || len(src.lists) != 4 {
		t.Fatalf("last page: items=%d next=%v fetches=%d", len(w.Items), w.CanGoNext, len(src.lists))
	}

	if _, err := svc.Window(ctx, "web", domain.FilterSpec{}, "", 2); err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(src.lists) != 4 {
		t.Fatalf("going back must not refetch, fetches=%d", len(src.lists))
	}
}

func TestWindowKeepsFetchingForSparseFilters(t *testing.T) {
	t.Parallel()
	src := seeded(90)
	src.tasks[75].LabelIDs = []string{"rare"}
	svc := newService(src, 30)

	w, err := svc.Window(context.Background(), "web", domain.FilterSpec{LabelIDs: []string{"rare"}}, "", 1)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(w.Items) != 1 || w.Items[0].ID != "t075" || w.HasMore {
		t.Fatalf("filter should have scanned every batch: %+v", w)
	}
	if len(src.lists) != 3 {
		t.Fatalf("expected 3 fetches, got %d", len(src.lists))
	}
}

func TestWindowFetchErrorSurfaces(t *testing.T) {
	t.Parallel()
	src := seeded(10)
	src.listErr = fmt.Errorf("%w: offline", apperrors.ErrTransient)
	svc := newService(src, 30)

	if _, err := svc.Window(context.Background(), "web", domain.FilterSpec{}, "", 1); !errors.Is(err, apperrors.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	src.listErr = nil
	w, err := svc.Window(context.Background(), "web", domain.FilterSpec{}, "", 1)
	if err != nil || len(w.Items) != 10 {
		t.Fatalf("retry should load the page: %d %v", len(w.Items), err)
	}
}

func TestWindowValidatesInput(t *testing.T) {
	t.Parallel()
	svc := newService(seeded(1), 30)
	if _, err := svc.Window(context.Background(), "", domain.FilterSpec{}, "", 1); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("missing project should fail, got %v", err)
	}
	if _, err := svc.Window(context.Background(), "web", domain.FilterSpec{Status: "bogus"}, "", 1); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("bad filter should fail, got %v", err)
	}
}

func TestInvalidateRefreshesOnlyThatTask(t *testing.T) {
	t.Parallel()
	src := seeded(5)
	svc := newService(src, 30)
	ctx := context.Background()
	if _, err := svc.Window(ctx, "web", domain.FilterSpec{}, "", 1); err != nil {
		t.Fatalf("window: %v", err)
	}

	updated := src.tasks[2]
	updated.HasActiveTimer = true
	src.set(2, updated)
	svc.Invalidate("web", "t002")

	on := true
	w, err := svc.Window(ctx, "web", domain.FilterSpec{TimerActive: &on}, "", 1)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(w.Items) != 1 || w.Items[0].ID != "t002" {
		t.Fatalf("refreshed task should match the timer filter: %+v", w.Items)
	}
	if len(src.lists) != 1 || len(src.gets) != 1 || src.gets[0] != "t002" {
		t.Fatalf("expected a single targeted read, lists=%v gets=%v", src.lists, src.gets)
	}
}

func TestInvalidateDropsVanishedTask(t *testing.T) {
	t.Parallel()
	src := seeded(3)
	svc := newService(src, 30)
	ctx := context.Background()
	if _, err := svc.Window(ctx, "web", domain.FilterSpec{}, "", 1); err != nil {
		t.Fatalf("window: %v", err)
	}
	src.mu.Lock()
	src.tasks = src.tasks[:2]
	src.mu.Unlock()
	svc.Invalidate("web", "t002")

	w, err := svc.Window(ctx, "web", domain.FilterSpec{}, "", 1)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(w.Items) != 2 || len(svc.Loaded("web")) != 2 {
		t.Fatalf("vanished task should be dropped: %+v", w.Items)
	}
}

func TestInvalidateFailureKeepsStaleCopy(t *testing.T) {
	t.Parallel()
	src := seeded(3)
	svc := newService(src, 30)
	ctx := context.Background()
	if _, err := svc.Window(ctx, "web", domain.FilterSpec{}, "", 1); err != nil {
		t.Fatalf("window: %v", err)
	}
	src.getErr = apperrors.ErrTransient
	svc.Invalidate("web", "t001")

	w, err := svc.Window(ctx, "web", domain.FilterSpec{}, "", 1)
	if err != nil || len(w.Items) != 3 {
		t.Fatalf("stale data should still render: %d %v", len(w.Items), err)
	}
	src.getErr = nil
	if _, err := svc.Window(ctx, "web", domain.FilterSpec{}, "", 1); err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(src.gets) != 2 {
		t.Fatalf("failed refresh should be retried on the next read, gets=%v", src.gets)
	}
}

func TestResetAndEmptyInvalidateDropFeed(t *testing.T) {
	t.Parallel()
	src := seeded(3)
	svc := newService(src, 30)
	ctx := context.Background()
	for _, drop := range []func(){
		func() { svc.Reset("web") },
		func() { svc.Invalidate("web", "") },
	} {
		if _, err := svc.Window(ctx, "web", domain.FilterSpec{}, "", 1); err != nil {
			t.Fatalf("window: %v", err)
		}
		drop()
		if svc.Loaded("web") != nil {
			t.Fatalf("feed should be dropped")
		}
	}
	if len(src.lists) != 2 {
		t.Fatalf("each drop should force a fresh read, lists=%v", src.lists)
	}
}

func TestStuckCursorStops(t *testing.T) {
	t.Parallel()
	svc := service.NewTaskService(clock.Fixed(now), stuckSource{}, 30, logging.Discard())
	w, err := svc.Window(context.Background(), "web", domain.FilterSpec{}, "", 2)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if w.HasMore || !w.Empty {
		t.Fatalf("a cursor that never advances must end the feed: %+v", w)
	}
}

type stuckSource struct{}

func (stuckSource) ListTasks(context.Context, string, string, int) (domain.TaskPage, error) {
	return domain.TaskPage{Tasks: []domain.Task{{ID: "only", FlowStatus: domain.FlowTodo}}, HasMore: true}, nil
}

func (stuckSource) GetTask(context.Context, string, string) (domain.Task, error) {
	return domain.Task{}, apperrors.ErrNotFound
}
