package in

import (
	"context"

	tasksdto "worktrack/internal/modules/tasks/dto"
	tasksin "worktrack/internal/modules/tasks/port/in"
)

type CLIHandler struct {
	usecase     tasksin.Usecase
	projectType string
	viewerID    string
}

func NewCLIHandler(usecase tasksin.Usecase, projectType, viewerID string) CLIHandler {
	return CLIHandler{usecase: usecase, projectType: projectType, viewerID: viewerID}
}

func (h CLIHandler) List(ctx context.Context, input tasksdto.ListTasksInput) (tasksdto.ListTasksOutput, error) {
	if input.ProjectType == "" {
		input.ProjectType = h.projectType
	}
	return h.usecase.ListTasks(ctx, input)
}

// Groups arranges sections for the signed-in user.
func (h CLIHandler) Groups(ctx context.Context, input tasksdto.ListTasksInput) (tasksdto.GroupOutput, error) {
	if input.ProjectType == "" {
		input.ProjectType = h.projectType
	}
	return h.usecase.GroupByAssignee(ctx, tasksdto.GroupInput{List: input, ViewerID: h.viewerID})
}

func (h CLIHandler) Get(ctx context.Context, taskID string) (tasksdto.TaskOutput, error) {
	return h.usecase.GetTask(ctx, h.projectType, taskID)
}

func (h CLIHandler) Refresh(ctx context.Context) error {
	return h.usecase.Reset(ctx, h.projectType)
}

func (h CLIHandler) Import(ctx context.Context, input tasksdto.ImportInput) (tasksdto.ImportOutput, error) {
	if input.ProjectType == "" {
		input.ProjectType = h.projectType
	}
	return h.usecase.Import(ctx, input)
}
