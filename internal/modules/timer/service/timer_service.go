package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"worktrack/internal/modules/timer/domain"
	timerout "worktrack/internal/modules/timer/port/out"
	"worktrack/internal/platform/clock"
	apperrors "worktrack/internal/platform/errors"
)

// TimerService owns every transition of the active session slot.
type TimerService struct {
	clock  clock.Clock
	active timerout.ActiveSessionStore
	remote timerout.RemoteSessionStore
	log    *slog.Logger
}

func NewTimerService(clock clock.Clock, active timerout.ActiveSessionStore, remote timerout.RemoteSessionStore, log *slog.Logger) *TimerService {
	return &TimerService{clock: clock, active: active, remote: remote, log: log}
}

// StopResult describes a close request. Session carries whatever the local
// slot knew about the stopped session; TaskID is empty when the slot held a
// different session.
type StopResult struct {
	Session       domain.Session
	AlreadyClosed bool
}

func (s *TimerService) Start(ctx context.Context, projectType, taskID, userID string) (domain.ActiveSession, error) {
	if strings.TrimSpace(taskID) == "" || strings.TrimSpace(userID) == "" || strings.TrimSpace(projectType) == "" {
		return domain.ActiveSession{}, fmt.Errorf("%w: project type, task id and user id are required", apperrors.ErrInvalidInput)
	}
	if _, err := s.active.LoadActive(ctx); err == nil {
		return domain.ActiveSession{}, apperrors.ErrActiveSessionExists
	} else if !errors.Is(err, apperrors.ErrNoActiveSession) {
		return domain.ActiveSession{}, err
	}

	pending := domain.ActiveSession{
		SessionID:   domain.PendingSessionID,
		TaskID:      taskID,
		ProjectType: projectType,
		StartedAt:   s.clock.Now(),
	}
	if err := s.active.SaveActive(ctx, pending); err != nil {
		return domain.ActiveSession{}, err
	}

	sessionID, err := s.remote.CreateRunningSession(ctx, projectType, taskID, userID)
	if err != nil {
		s.clearQuietly(ctx, "start failed")
		return domain.ActiveSession{}, fmt.Errorf("start timer: %w", err)
	}

	started := pending
	started.SessionID = sessionID
	if err := s.active.SaveActive(ctx, started); err != nil {
		return domain.ActiveSession{}, err
	}
	s.log.Info("timer started", slog.String("session_id", sessionID), slog.String("task_id", taskID))
	return started, nil
}

// Stop closes sessionID, or the locally active session when sessionID is
// empty. When the slot holds that session (or cannot be read) it is cleared
// before the remote call so a failed close never leaves a timer looking
// active. Closing some other session leaves the running timer in place.
func (s *TimerService) Stop(ctx context.Context, projectType, sessionID, note string) (StopResult, error) {
	active, loadErr := s.active.LoadActive(ctx)
	if loadErr != nil && !errors.Is(loadErr, apperrors.ErrNoActiveSession) {
		s.log.Warn("unreadable active session", slog.String("error", loadErr.Error()))
	}
	if sessionID == "" {
		if loadErr != nil {
			return StopResult{}, apperrors.ErrNoActiveSession
		}
		if active.IsPending() {
			return StopResult{}, fmt.Errorf("%w: timer start is still pending", apperrors.ErrActiveSessionExists)
		}
		sessionID = active.SessionID
	}
	if sessionID == domain.PendingSessionID {
		return StopResult{}, fmt.Errorf("%w: cannot stop a pending session", apperrors.ErrActiveSessionExists)
	}

	holdsSession := loadErr == nil && active.SessionID == sessionID
	result := StopResult{Session: domain.Session{ID: sessionID, ProjectType: projectType}}
	if holdsSession {
		result.Session.TaskID = active.TaskID
		result.Session.ProjectType = active.ProjectType
		result.Session.StartedAt = active.StartedAt
	}

	if holdsSession || loadErr != nil {
		s.clearQuietly(ctx, "stop requested")
	}

	duration, err := s.remote.CloseSession(ctx, sessionID, note)
	switch {
	case errors.Is(err, apperrors.ErrSessionClosed):
		result.AlreadyClosed = true
	case err != nil:
		return result, fmt.Errorf("stop timer: %w", err)
	}
	endedAt := s.clock.Now()
	result.Session.EndedAt = &endedAt
	result.Session.DurationSec = duration
	s.log.Info("timer stopped",
		slog.String("session_id", sessionID),
		slog.Int64("duration_sec", duration),
		slog.Bool("already_closed", result.AlreadyClosed),
	)
	return result, nil
}

func (s *TimerService) Active(ctx context.Context) (domain.ActiveSession, error) {
	return s.active.LoadActive(ctx)
}

func (s *TimerService) Total(ctx context.Context, projectType, taskID, userID string) ([]domain.Session, int64, error) {
	sessions, err := s.remote.ListSessions(ctx, projectType, taskID, userID)
	if err != nil {
		return nil, 0, err
	}
	return sessions, domain.TotalDuration(sessions, s.clock.Now()), nil
}

func (s *TimerService) Elapsed(active domain.ActiveSession) int64 {
	return domain.Elapsed(active, s.clock.Now())
}

func (s *TimerService) clearQuietly(ctx context.Context, reason string) {
	if err := s.active.ClearActive(ctx); err != nil {
		s.log.Error("clear active session", slog.String("reason", reason), slog.String("error", err.Error()))
	}
}
