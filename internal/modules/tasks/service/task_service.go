package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"worktrack/internal/modules/tasks/domain"
	tasksout "worktrack/internal/modules/tasks/port/out"
	"worktrack/internal/platform/clock"
	apperrors "worktrack/internal/platform/errors"
)

// TaskService keeps an incrementally loaded feed of tasks per project type and
// only reads further batches when a requested page is not covered yet.
type TaskService struct {
	clock    clock.Clock
	source   tasksout.TaskSource
	pageSize int
	log      *slog.Logger

	mu    sync.Mutex
	feeds map[string]*feed
}

type feed struct {
	tasks    []domain.Task
	index    map[string]int
	cursor   string
	hasMore  bool
	fetching bool
	dirty    map[string]struct{}
}

func newFeed() *feed {
	return &feed{index: map[string]int{}, hasMore: true, dirty: map[string]struct{}{}}
}

func NewTaskService(clock clock.Clock, source tasksout.TaskSource, pageSize int, log *slog.Logger) *TaskService {
	if pageSize <= 0 {
		pageSize = domain.PageSize
	}
	return &TaskService{clock: clock, source: source, pageSize: pageSize, log: log, feeds: map[string]*feed{}}
}

func (s *TaskService) PageSize() int {
	return s.pageSize
}

// Window runs the query over the loaded tasks and pages the result, fetching
// more batches while the page is not yet covered.
func (s *TaskService) Window(ctx context.Context, projectType string, filter domain.FilterSpec, activeTaskID string, page int) (domain.Window, error) {
	if strings.TrimSpace(projectType) == "" {
		return domain.Window{}, fmt.Errorf("%w: project type is required", apperrors.ErrInvalidInput)
	}
	if err := filter.Validate(); err != nil {
		return domain.Window{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	s.refreshDirty(ctx, projectType)

	for {
		if err := ctx.Err(); err != nil {
			return domain.Window{}, err
		}
		s.mu.Lock()
		f := s.feedLocked(projectType)
		sorted := domain.Execute(f.tasks, filter, activeTaskID, s.clock.Now())
		window := domain.Paginate(sorted, page, s.pageSize, f.hasMore, f.fetching)
		if !window.NeedsFetch {
			s.mu.Unlock()
			return window, nil
		}
		f.fetching = true
		cursor := f.cursor
		s.mu.Unlock()

		batch, err := s.source.ListTasks(ctx, projectType, cursor, s.pageSize)

		s.mu.Lock()
		f.fetching = false
		if err == nil {
			f.merge(batch, cursor)
		}
		s.mu.Unlock()
		if err != nil {
			return domain.Window{}, fmt.Errorf("fetch tasks: %w", err)
		}
		s.log.Debug("task batch loaded",
			slog.String("project_type", projectType),
			slog.Int("count", len(batch.Tasks)),
			slog.Bool("has_more", batch.HasMore),
		)
	}
}

// Invalidate marks one task for refresh on the next read. An empty taskID
// drops the whole feed.
func (s *TaskService) Invalidate(projectType, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if taskID == "" {
		delete(s.feeds, projectType)
		return
	}
	f, ok := s.feeds[projectType]
	if !ok {
		return
	}
	f.dirty[taskID] = struct{}{}
}

func (s *TaskService) Reset(projectType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.feeds, projectType)
}

// Loaded returns a copy of the tasks read so far for projectType.
func (s *TaskService) Loaded(projectType string) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feeds[projectType]
	if !ok {
		return nil
	}
	return slices.Clone(f.tasks)
}

func (s *TaskService) feedLocked(projectType string) *feed {
	f, ok := s.feeds[projectType]
	if !ok {
		f = newFeed()
		s.feeds[projectType] = f
	}
	return f
}

// refreshDirty rereads invalidated tasks. Failures keep the task dirty and the
// stale copy visible.
func (s *TaskService) refreshDirty(ctx context.Context, projectType string) {
	s.mu.Lock()
	f, ok := s.feeds[projectType]
	if !ok || len(f.dirty) == 0 {
		s.mu.Unlock()
		return
	}
	pending := make([]string, 0, len(f.dirty))
	for id := range f.dirty {
		pending = append(pending, id)
	}
	clear(f.dirty)
	s.mu.Unlock()
	slices.Sort(pending)

	for _, id := range pending {
		task, err := s.source.GetTask(ctx, projectType, id)
		s.mu.Lock()
		switch {
		case err == nil:
			f.put(task)
		case errors.Is(err, apperrors.ErrNotFound):
			f.remove(id)
		default:
			f.dirty[id] = struct{}{}
		}
		s.mu.Unlock()
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			s.log.Warn("task refresh failed", slog.String("task_id", id), slog.String("error", err.Error()))
		}
	}
}

func (f *feed) merge(batch domain.TaskPage, cursor string) {
	for _, task := range batch.Tasks {
		f.put(task)
	}
	// A cursor that does not advance would loop forever.
	f.hasMore = batch.HasMore && batch.NextCursor != cursor
	f.cursor = batch.NextCursor
}

func (f *feed) put(task domain.Task) {
	if task.ID == "" {
		return
	}
	if i, ok := f.index[task.ID]; ok {
		f.tasks[i] = task
		return
	}
	f.index[task.ID] = len(f.tasks)
	f.tasks = append(f.tasks, task)
}

func (f *feed) remove(id string) {
	i, ok := f.index[id]
	if !ok {
		return
	}
	f.tasks = slices.Delete(f.tasks, i, i+1)
	delete(f.index, id)
	for j := i; j < len(f.tasks); j++ {
		f.index[f.tasks[j].ID] = j
	}
}
