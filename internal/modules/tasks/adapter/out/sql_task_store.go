package out

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"worktrack/internal/modules/tasks/domain"
	tasksout "worktrack/internal/modules/tasks/port/out"
	apperrors "worktrack/internal/platform/errors"
)

// SQLTaskStore reads tasks from the shared database. The cursor is a row
// offset in (sort_order, id) order. Rows with undecodable columns fall back to
// empty values instead of failing the batch.
type SQLTaskStore struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLTaskStore(db *sql.DB, log *slog.Logger) *SQLTaskStore {
	return &SQLTaskStore{db: db, log: log}
}

var (
	_ tasksout.TaskSource    = (*SQLTaskStore)(nil)
	_ tasksout.UserDirectory = (*SQLTaskStore)(nil)
	_ tasksout.TaskWriter    = (*SQLTaskStore)(nil)
)

const taskSelect = `SELECT t.project_type, t.id, t.title, t.flow_status, t.progress_status, t.priority,
 t.assignee_ids, t.label_ids, t.it_up_date, t.release_date, t.due_date, t.sort_order,
 t.created_at, t.updated_at, t.completed_at,
 CASE WHEN EXISTS (SELECT 1 FROM sessions s WHERE s.project_type = t.project_type AND s.task_id = t.id AND s.ended_at IS NULL) THEN 1 ELSE 0 END
 FROM tasks t`

func (s *SQLTaskStore) ListTasks(ctx context.Context, projectType, cursor string, limit int) (domain.TaskPage, error) {
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return domain.TaskPage{}, fmt.Errorf("%w: bad cursor %q", apperrors.ErrInvalidInput, cursor)
		}
		offset = n
	}
	if limit <= 0 {
		limit = domain.PageSize
	}

	rows, err := s.db.QueryContext(ctx,
		taskSelect+` WHERE t.project_type = ? ORDER BY t.sort_order ASC, t.id ASC LIMIT ? OFFSET ?`,
		projectType, limit+1, offset,
	)
	if err != nil {
		return domain.TaskPage{}, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	page := domain.TaskPage{}
	for rows.Next() {
		task, err := s.scanTask(rows)
		if err != nil {
			return domain.TaskPage{}, fmt.Errorf("scan task: %w", err)
		}
		page.Tasks = append(page.Tasks, task)
	}
	if err := rows.Err(); err != nil {
		return domain.TaskPage{}, fmt.Errorf("list tasks: %w", err)
	}
	if len(page.Tasks) > limit {
		page.Tasks = page.Tasks[:limit]
		page.HasMore = true
		page.NextCursor = strconv.Itoa(offset + limit)
	}
	return page, nil
}

func (s *SQLTaskStore) GetTask(ctx context.Context, projectType, taskID string) (domain.Task, error) {
	task, err := s.scanTask(s.db.QueryRowContext(ctx, taskSelect+` WHERE t.project_type = ? AND t.id = ?`, projectType, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, fmt.Errorf("%w: task %s", apperrors.ErrNotFound, taskID)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *SQLTaskStore) ListUsers(ctx context.Context, projectType string) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM users WHERE project_type = ? ORDER BY id ASC`, projectType)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Name); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

// UpsertTask keeps the original created_at of an existing row.
func (s *SQLTaskStore) UpsertTask(ctx context.Context, task domain.Task) error {
	assignees, err := encodeIDs(task.AssigneeIDs)
	if err != nil {
		return err
	}
	labels, err := encodeIDs(task.LabelIDs)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert task: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE project_type = ? AND id = ?`, task.ProjectType, task.ID).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tasks (project_type, id, title, flow_status, progress_status, priority, assignee_ids, label_ids,
 it_up_date, release_date, due_date, sort_order, created_at, updated_at, completed_at)
 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ProjectType, task.ID, task.Title, string(task.FlowStatus), nullString(task.ProgressStatus), nullString(task.Priority),
			assignees, labels, nullString(domain.FormatDate(task.ItUpDate)), nullString(domain.FormatDate(task.ReleaseDate)),
			nullString(domain.FormatDate(task.DueDate)), task.Order, unix(&task.CreatedAt), unix(&task.UpdatedAt), unix(task.CompletedAt),
		)
	case err == nil:
		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET title = ?, flow_status = ?, progress_status = ?, priority = ?, assignee_ids = ?, label_ids = ?,
 it_up_date = ?, release_date = ?, due_date = ?, sort_order = ?, updated_at = ?, completed_at = ?
 WHERE project_type = ? AND id = ?`,
			task.Title, string(task.FlowStatus), nullString(task.ProgressStatus), nullString(task.Priority),
			assignees, labels, nullString(domain.FormatDate(task.ItUpDate)), nullString(domain.FormatDate(task.ReleaseDate)),
			nullString(domain.FormatDate(task.DueDate)), task.Order, unix(&task.UpdatedAt), unix(task.CompletedAt),
			task.ProjectType, task.ID,
		)
	}
	if err != nil {
		return fmt.Errorf("upsert task %s: %w", task.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit task %s: %w", task.ID, err)
	}
	return nil
}

func (s *SQLTaskStore) UpsertUser(ctx context.Context, projectType string, user domain.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE project_type = ? AND id = ?`, projectType, user.ID).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `INSERT INTO users (project_type, id, name) VALUES (?, ?, ?)`, projectType, user.ID, user.Name)
	case err == nil:
		_, err = tx.ExecContext(ctx, `UPDATE users SET name = ? WHERE project_type = ? AND id = ?`, user.Name, projectType, user.ID)
	}
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLTaskStore) scanTask(row rowScanner) (domain.Task, error) {
	var (
		task                               domain.Task
		title, progress, priority          sql.NullString
		assignees, labels                  sql.NullString
		itUp, release, due                 sql.NullString
		order, created, updated, completed sql.NullInt64
		flow                               string
		active                             int64
	)
	if err := row.Scan(&task.ProjectType, &task.ID, &title, &flow, &progress, &priority,
		&assignees, &labels, &itUp, &release, &due, &order,
		&created, &updated, &completed, &active); err != nil {
		return domain.Task{}, err
	}
	task.Title = title.String
	task.FlowStatus = domain.FlowStatus(flow)
	task.ProgressStatus = progress.String
	task.Priority = priority.String
	task.AssigneeIDs = s.decodeIDs(task.ID, "assignee_ids", assignees)
	task.LabelIDs = s.decodeIDs(task.ID, "label_ids", labels)
	task.ItUpDate = domain.ParseDate(itUp.String)
	task.ReleaseDate = domain.ParseDate(release.String)
	task.DueDate = domain.ParseDate(due.String)
	task.Order = int(order.Int64)
	task.CreatedAt = time.Unix(created.Int64, 0).UTC()
	task.UpdatedAt = time.Unix(updated.Int64, 0).UTC()
	if completed.Valid {
		t := time.Unix(completed.Int64, 0).UTC()
		task.CompletedAt = &t
	}
	task.HasActiveTimer = active > 0
	return task, nil
}

func (s *SQLTaskStore) decodeIDs(taskID, column string, raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return []string{}
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw.String), &ids); err != nil {
		s.log.Warn("malformed task column", slog.String("task_id", taskID), slog.String("column", column))
		return []string{}
	}
	if ids == nil {
		return []string{}
	}
	return ids
}

func encodeIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode ids: %w", err)
	}
	return string(raw), nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func unix(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.Unix()
}
