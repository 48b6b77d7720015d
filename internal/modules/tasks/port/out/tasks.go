package out

import (
	"context"

	"worktrack/internal/modules/tasks/domain"
)

// TaskSource reads tasks in batches. GetTask returns apperrors.ErrNotFound for
// a task that no longer exists.
type TaskSource interface {
	ListTasks(ctx context.Context, projectType, cursor string, limit int) (domain.TaskPage, error)
	GetTask(ctx context.Context, projectType, taskID string) (domain.Task, error)
}

type UserDirectory interface {
	ListUsers(ctx context.Context, projectType string) ([]domain.User, error)
}

type TaskWriter interface {
	UpsertTask(ctx context.Context, task domain.Task) error
	UpsertUser(ctx context.Context, projectType string, user domain.User) error
}
