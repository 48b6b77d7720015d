package in

import (
	"context"

	"worktrack/internal/modules/timer/dto"
)

type Usecase interface {
	Start(ctx context.Context, input dto.StartInput) (dto.StartOutput, error)
	Stop(ctx context.Context, input dto.StopInput) (dto.StopOutput, error)
	GetActive(ctx context.Context) (dto.ActiveSessionOutput, error)
	Reconcile(ctx context.Context) (dto.ReconcileOutput, error)
	Total(ctx context.Context, input dto.TotalInput) (dto.TotalOutput, error)
	Journal(ctx context.Context, limit int) ([]dto.JournalEntryOutput, error)
}
