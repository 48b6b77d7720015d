package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"worktrack/internal/modules/timer/domain"
	timerdto "worktrack/internal/modules/timer/dto"
	timerin "worktrack/internal/modules/timer/port/in"
	timerout "worktrack/internal/modules/timer/port/out"
	"worktrack/internal/modules/timer/service"
	apperrors "worktrack/internal/platform/errors"
)

// Interactor is bound to one signed-in user for the lifetime of a process.
// Reconciliation runs at most once per Interactor, before the first read or
// transition of the active slot.
type Interactor struct {
	svc        *service.TimerService
	reconciler *service.Reconciler
	journal    timerout.SessionJournal
	cache      timerout.CacheInvalidator
	userID     string
	log        *slog.Logger

	reconcileOnce sync.Once
	reconciled    service.ReconcileResult
}

func NewInteractor(
	svc *service.TimerService,
	reconciler *service.Reconciler,
	journal timerout.SessionJournal,
	cache timerout.CacheInvalidator,
	userID string,
	log *slog.Logger,
) timerin.Usecase {
	return &Interactor{svc: svc, reconciler: reconciler, journal: journal, cache: cache, userID: userID, log: log}
}

func (i *Interactor) Start(ctx context.Context, input timerdto.StartInput) (timerdto.StartOutput, error) {
	userID, err := i.resolveUser(input.UserID)
	if err != nil {
		return timerdto.StartOutput{}, err
	}
	i.ensureReconciled(ctx)

	active, err := i.svc.Start(ctx, input.ProjectType, input.TaskID, userID)
	i.invalidate(ctx, input.ProjectType, input.TaskID)
	if err != nil {
		return timerdto.StartOutput{}, err
	}
	return timerdto.StartOutput{
		SessionID:   active.SessionID,
		TaskID:      active.TaskID,
		ProjectType: active.ProjectType,
		StartedAt:   active.StartedAt,
	}, nil
}

func (i *Interactor) Stop(ctx context.Context, input timerdto.StopInput) (timerdto.StopOutput, error) {
	i.ensureReconciled(ctx)

	result, err := i.svc.Stop(ctx, input.ProjectType, input.SessionID, input.Note)
	if result.Session.ID != "" {
		i.invalidate(ctx, result.Session.ProjectType, result.Session.TaskID)
	}
	if err != nil {
		return timerdto.StopOutput{}, err
	}

	session := result.Session
	session.UserID = i.userID
	session.Note = input.Note
	out := timerdto.StopOutput{
		SessionID:     session.ID,
		TaskID:        session.TaskID,
		DurationSec:   session.DurationSec,
		Formatted:     domain.FormatDuration(session.DurationSec),
		AlreadyClosed: result.AlreadyClosed,
	}
	if i.journal != nil && !result.AlreadyClosed && session.TaskID != "" {
		path, jerr := i.journal.Append(ctx, session)
		if jerr != nil {
			i.log.Warn("journal append failed", slog.String("session_id", session.ID), slog.String("error", jerr.Error()))
		}
		out.JournalPath = path
	}
	return out, nil
}

func (i *Interactor) GetActive(ctx context.Context) (timerdto.ActiveSessionOutput, error) {
	i.ensureReconciled(ctx)
	active, err := i.svc.Active(ctx)
	if err != nil {
		return timerdto.ActiveSessionOutput{}, err
	}
	return timerdto.ActiveSessionOutput{
		SessionID:   active.SessionID,
		TaskID:      active.TaskID,
		ProjectType: active.ProjectType,
		StartedAt:   active.StartedAt,
		Pending:     active.IsPending(),
		ElapsedSec:  i.svc.Elapsed(active),
	}, nil
}

func (i *Interactor) Reconcile(ctx context.Context) (timerdto.ReconcileOutput, error) {
	res := i.ensureReconciled(ctx)
	return timerdto.ReconcileOutput{Checked: res.Checked, Cleared: res.Cleared, Reason: res.Reason}, nil
}

func (i *Interactor) Total(ctx context.Context, input timerdto.TotalInput) (timerdto.TotalOutput, error) {
	userID := input.UserID
	if userID == "" {
		userID = i.userID
	}
	if input.TaskID == "" {
		return timerdto.TotalOutput{}, fmt.Errorf("%w: task id is required", apperrors.ErrInvalidInput)
	}
	sessions, total, err := i.svc.Total(ctx, input.ProjectType, input.TaskID, userID)
	if err != nil {
		return timerdto.TotalOutput{}, err
	}
	return timerdto.TotalOutput{
		TaskID:    input.TaskID,
		Seconds:   total,
		Formatted: domain.FormatDuration(total),
		Running:   domain.HasActiveSession(sessions),
		Sessions:  len(sessions),
	}, nil
}

func (i *Interactor) Journal(ctx context.Context, limit int) ([]timerdto.JournalEntryOutput, error) {
	if i.journal == nil {
		return nil, nil
	}
	entries, err := i.journal.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]timerdto.JournalEntryOutput, 0, len(entries))
	for _, e := range entries {
		item := timerdto.JournalEntryOutput{
			SessionID:   e.Session.ID,
			TaskID:      e.Session.TaskID,
			StartedAt:   e.Session.StartedAt,
			DurationSec: e.Session.DurationSec,
			Note:        e.Session.Note,
			Path:        e.Path,
		}
		if e.Session.EndedAt != nil {
			item.EndedAt = *e.Session.EndedAt
		}
		out = append(out, item)
	}
	return out, nil
}

func (i *Interactor) ensureReconciled(ctx context.Context) service.ReconcileResult {
	i.reconcileOnce.Do(func() {
		i.reconciled = i.reconciler.Run(ctx, i.userID)
	})
	return i.reconciled
}

func (i *Interactor) resolveUser(userID string) (string, error) {
	if userID == "" {
		userID = i.userID
	}
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", apperrors.ErrInvalidInput)
	}
	if i.userID != "" && userID != i.userID {
		return "", fmt.Errorf("%w: timer belongs to %s", apperrors.ErrInvalidInput, i.userID)
	}
	return userID, nil
}

func (i *Interactor) invalidate(ctx context.Context, projectType, taskID string) {
	if i.cache == nil {
		return
	}
	if err := i.cache.InvalidateTask(ctx, projectType, taskID); err != nil {
		i.log.Warn("invalidate task cache", slog.String("task_id", taskID), slog.String("error", err.Error()))
	}
}
