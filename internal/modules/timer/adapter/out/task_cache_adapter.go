package out

import (
	"context"

	tasksin "worktrack/internal/modules/tasks/port/in"
	timerout "worktrack/internal/modules/timer/port/out"
)

type TaskCacheAdapter struct {
	tasks tasksin.Usecase
}

func NewTaskCacheAdapter(tasks tasksin.Usecase) timerout.CacheInvalidator {
	return &TaskCacheAdapter{tasks: tasks}
}

func (a *TaskCacheAdapter) InvalidateTask(ctx context.Context, projectType, taskID string) error {
	return a.tasks.InvalidateTask(ctx, projectType, taskID)
}
