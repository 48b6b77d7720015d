package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"worktrack/internal/modules/tasks/domain"
	tasksdto "worktrack/internal/modules/tasks/dto"
	tasksin "worktrack/internal/modules/tasks/port/in"
	tasksout "worktrack/internal/modules/tasks/port/out"
	"worktrack/internal/modules/tasks/service"
	"worktrack/internal/platform/clock"
	apperrors "worktrack/internal/platform/errors"
)

type Interactor struct {
	svc    *service.TaskService
	source tasksout.TaskSource
	users  tasksout.UserDirectory
	writer tasksout.TaskWriter
	clock  clock.Clock
	log    *slog.Logger
}

func NewInteractor(
	svc *service.TaskService,
	source tasksout.TaskSource,
	users tasksout.UserDirectory,
	writer tasksout.TaskWriter,
	clock clock.Clock,
	log *slog.Logger,
) tasksin.Usecase {
	return &Interactor{svc: svc, source: source, users: users, writer: writer, clock: clock, log: log}
}

func (i *Interactor) ListTasks(ctx context.Context, input tasksdto.ListTasksInput) (tasksdto.ListTasksOutput, error) {
	window, err := i.window(ctx, input)
	if err != nil {
		return tasksdto.ListTasksOutput{}, err
	}
	return i.toListOutput(window, input.ActiveTaskID), nil
}

// GroupByAssignee groups the tasks of the requested page.
func (i *Interactor) GroupByAssignee(ctx context.Context, input tasksdto.GroupInput) (tasksdto.GroupOutput, error) {
	window, err := i.window(ctx, input.List)
	if err != nil {
		return tasksdto.GroupOutput{}, err
	}
	users, err := i.users.ListUsers(ctx, input.List.ProjectType)
	if err != nil {
		// Sections still render with raw ids.
		i.log.Warn("list users failed", slog.String("error", err.Error()))
		users = nil
	}

	sections := domain.ArrangeForViewer(domain.GroupTasksByAssignee(window.Items, users), input.ViewerID)
	now := i.clock.Now()
	out := tasksdto.GroupOutput{Page: i.toListOutput(window, input.List.ActiveTaskID)}
	for _, section := range sections {
		item := tasksdto.SectionOutput{
			AssigneeID:   section.AssigneeID,
			AssigneeName: section.AssigneeName,
			Unassigned:   section.IsUnassigned(),
		}
		for _, group := range section.Groups {
			tasks := make([]tasksdto.TaskOutput, 0, len(group.Tasks))
			for _, task := range group.Tasks {
				tasks = append(tasks, toTaskOutput(task, now, input.List.ActiveTaskID))
			}
			item.Groups = append(item.Groups, tasksdto.StatusGroupOutput{Status: group.Status, Tasks: tasks})
		}
		out.Sections = append(out.Sections, item)
	}
	return out, nil
}

func (i *Interactor) GetTask(ctx context.Context, projectType, taskID string) (tasksdto.TaskOutput, error) {
	if strings.TrimSpace(taskID) == "" {
		return tasksdto.TaskOutput{}, fmt.Errorf("%w: task id is required", apperrors.ErrInvalidInput)
	}
	task, err := i.source.GetTask(ctx, projectType, taskID)
	if err != nil {
		return tasksdto.TaskOutput{}, err
	}
	return toTaskOutput(task, i.clock.Now(), ""), nil
}

func (i *Interactor) InvalidateTask(_ context.Context, projectType, taskID string) error {
	i.svc.Invalidate(projectType, taskID)
	return nil
}

func (i *Interactor) Reset(_ context.Context, projectType string) error {
	i.svc.Reset(projectType)
	return nil
}

// Import writes tasks and users into the store and drops the cached feed.
func (i *Interactor) Import(ctx context.Context, input tasksdto.ImportInput) (tasksdto.ImportOutput, error) {
	if i.writer == nil {
		return tasksdto.ImportOutput{}, errors.New("task store is read-only")
	}
	if strings.TrimSpace(input.ProjectType) == "" {
		return tasksdto.ImportOutput{}, fmt.Errorf("%w: project type is required", apperrors.ErrInvalidInput)
	}
	now := i.clock.Now()
	out := tasksdto.ImportOutput{}
	for _, user := range input.Users {
		if strings.TrimSpace(user.ID) == "" {
			return out, fmt.Errorf("%w: user id is required", apperrors.ErrInvalidInput)
		}
		if err := i.writer.UpsertUser(ctx, input.ProjectType, domain.User{ID: user.ID, Name: user.Name}); err != nil {
			return out, fmt.Errorf("import user %s: %w", user.ID, err)
		}
		out.Users++
	}
	for _, item := range input.Tasks {
		task, err := fromImport(input.ProjectType, item, now)
		if err != nil {
			return out, err
		}
		if err := i.writer.UpsertTask(ctx, task); err != nil {
			return out, fmt.Errorf("import task %s: %w", item.ID, err)
		}
		out.Tasks++
	}
	i.svc.Reset(input.ProjectType)
	return out, nil
}

func (i *Interactor) window(ctx context.Context, input tasksdto.ListTasksInput) (domain.Window, error) {
	page := input.Page
	if page == 0 {
		page = 1
	}
	filter := domain.FilterSpec{
		Status:           domain.StatusFilter(input.Status),
		AssigneeIDs:      input.AssigneeIDs,
		LabelIDs:         input.LabelIDs,
		TimerActive:      input.TimerActive,
		ItUpDateMonth:    input.ItUpDateMonth,
		ReleaseDateMonth: input.ReleaseDateMonth,
		Title:            input.Title,
	}
	return i.svc.Window(ctx, input.ProjectType, filter, input.ActiveTaskID, page)
}

func (i *Interactor) toListOutput(window domain.Window, activeTaskID string) tasksdto.ListTasksOutput {
	now := i.clock.Now()
	tasks := make([]tasksdto.TaskOutput, 0, len(window.Items))
	for _, task := range window.Items {
		tasks = append(tasks, toTaskOutput(task, now, activeTaskID))
	}
	return tasksdto.ListTasksOutput{
		Tasks:      tasks,
		Page:       window.Page,
		PageSize:   window.PageSize,
		CanGoNext:  window.CanGoNext,
		CanGoPrev:  window.CanGoPrev,
		Loading:    window.Loading,
		Empty:      window.Empty,
		Known:      window.Known,
		HasMore:    window.HasMore,
		RangeLabel: window.RangeLabel,
	}
}

func toTaskOutput(task domain.Task, now time.Time, activeTaskID string) tasksdto.TaskOutput {
	return tasksdto.TaskOutput{
		ID:             task.ID,
		Title:          task.Title,
		FlowStatus:     string(task.FlowStatus),
		ProgressStatus: task.ProgressStatus,
		Priority:       task.Priority,
		AssigneeIDs:    task.AssigneeIDs,
		LabelIDs:       task.LabelIDs,
		ItUpDate:       domain.FormatDate(task.ItUpDate),
		ReleaseDate:    domain.FormatDate(task.ReleaseDate),
		DueDate:        domain.FormatDate(task.DueDate),
		Order:          task.Order,
		UpdatedAt:      task.UpdatedAt,
		HasActiveTimer: task.HasActiveTimer,
		IsNew:          domain.IsNew(task, now),
		IsActive:       activeTaskID != "" && task.ID == activeTaskID,
	}
}

func fromImport(projectType string, item tasksdto.ImportTask, now time.Time) (domain.Task, error) {
	if strings.TrimSpace(item.ID) == "" {
		return domain.Task{}, fmt.Errorf("%w: task id is required", apperrors.ErrInvalidInput)
	}
	flow := domain.FlowStatus(item.FlowStatus)
	if flow == "" {
		flow = domain.FlowTodo
	}
	task := domain.Task{
		ID:             item.ID,
		ProjectType:    projectType,
		Title:          item.Title,
		FlowStatus:     flow,
		ProgressStatus: item.ProgressStatus,
		Priority:       item.Priority,
		AssigneeIDs:    item.AssigneeIDs,
		LabelIDs:       item.LabelIDs,
		ItUpDate:       domain.ParseDate(item.ItUpDate),
		ReleaseDate:    domain.ParseDate(item.ReleaseDate),
		DueDate:        domain.ParseDate(item.DueDate),
		Order:          item.Order,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if flow.IsCompleted() {
		task.CompletedAt = &now
	}
	return task, nil
}
