package in

import (
	"context"

	timerdto "worktrack/internal/modules/timer/dto"
	timerin "worktrack/internal/modules/timer/port/in"
)

type CLIHandler struct {
	usecase     timerin.Usecase
	projectType string
	userID      string
}

func NewCLIHandler(usecase timerin.Usecase, projectType, userID string) CLIHandler {
	return CLIHandler{usecase: usecase, projectType: projectType, userID: userID}
}

func (h CLIHandler) ProjectType() string {
	return h.projectType
}

func (h CLIHandler) Start(ctx context.Context, taskID string) (timerdto.StartOutput, error) {
	return h.usecase.Start(ctx, timerdto.StartInput{ProjectType: h.projectType, TaskID: taskID, UserID: h.userID})
}

func (h CLIHandler) Stop(ctx context.Context, sessionID, note string) (timerdto.StopOutput, error) {
	return h.usecase.Stop(ctx, timerdto.StopInput{ProjectType: h.projectType, SessionID: sessionID, Note: note})
}

func (h CLIHandler) GetActive(ctx context.Context) (timerdto.ActiveSessionOutput, error) {
	return h.usecase.GetActive(ctx)
}

func (h CLIHandler) Reconcile(ctx context.Context) (timerdto.ReconcileOutput, error) {
	return h.usecase.Reconcile(ctx)
}

func (h CLIHandler) Total(ctx context.Context, taskID string) (timerdto.TotalOutput, error) {
	return h.usecase.Total(ctx, timerdto.TotalInput{ProjectType: h.projectType, TaskID: taskID, UserID: h.userID})
}

func (h CLIHandler) Journal(ctx context.Context, limit int) ([]timerdto.JournalEntryOutput, error) {
	return h.usecase.Journal(ctx, limit)
}
