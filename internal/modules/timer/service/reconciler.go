package service

import (
	"context"
	"errors"
	"log/slog"

	timerout "worktrack/internal/modules/timer/port/out"
	apperrors "worktrack/internal/platform/errors"
)

type ReconcileResult struct {
	Checked bool
	Cleared bool
	Reason  string
}

// Reconciler repairs the local slot against the authoritative store. When the
// truth cannot be confirmed it evicts the local descriptor.
type Reconciler struct {
	active timerout.ActiveSessionStore
	remote timerout.RemoteSessionStore
	log    *slog.Logger
}

func NewReconciler(active timerout.ActiveSessionStore, remote timerout.RemoteSessionStore, log *slog.Logger) *Reconciler {
	return &Reconciler{active: active, remote: remote, log: log}
}

func (r *Reconciler) Run(ctx context.Context, userID string) ReconcileResult {
	if userID == "" {
		return ReconcileResult{Reason: "no signed-in user"}
	}
	active, err := r.active.LoadActive(ctx)
	if errors.Is(err, apperrors.ErrNoActiveSession) {
		return ReconcileResult{Reason: "no local session"}
	}
	if err != nil {
		r.log.Warn("reconcile: unreadable local session", slog.String("error", err.Error()))
		return r.evict(ctx, "unreadable local session")
	}
	if active.IsPending() {
		return ReconcileResult{Reason: "start in flight"}
	}

	running, err := r.remote.FindRunningSession(ctx, active.ProjectType, active.TaskID, userID)
	if err != nil {
		r.log.Warn("reconcile: remote check failed",
			slog.String("session_id", active.SessionID),
			slog.String("error", err.Error()),
		)
		return r.evict(ctx, "remote check failed")
	}
	if running == nil {
		return r.evict(ctx, "no running session")
	}
	if running.ID != active.SessionID {
		return r.evict(ctx, "session mismatch")
	}
	r.log.Debug("reconcile: local session confirmed", slog.String("session_id", active.SessionID))
	return ReconcileResult{Checked: true, Reason: "confirmed"}
}

func (r *Reconciler) evict(ctx context.Context, reason string) ReconcileResult {
	if err := r.active.ClearActive(ctx); err != nil {
		r.log.Error("reconcile: clear active session", slog.String("error", err.Error()))
	}
	r.log.Info("reconcile: cleared stale local session", slog.String("reason", reason))
	return ReconcileResult{Checked: true, Cleared: true, Reason: reason}
}
