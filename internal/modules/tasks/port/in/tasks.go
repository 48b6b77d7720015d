package in

import (
	"context"

	"worktrack/internal/modules/tasks/dto"
)

type Usecase interface {
	ListTasks(ctx context.Context, input dto.ListTasksInput) (dto.ListTasksOutput, error)
	GroupByAssignee(ctx context.Context, input dto.GroupInput) (dto.GroupOutput, error)
	GetTask(ctx context.Context, projectType, taskID string) (dto.TaskOutput, error)
	InvalidateTask(ctx context.Context, projectType, taskID string) error
	Reset(ctx context.Context, projectType string) error
	Import(ctx context.Context, input dto.ImportInput) (dto.ImportOutput, error)
}
