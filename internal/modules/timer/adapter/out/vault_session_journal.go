package out

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"worktrack/internal/modules/timer/domain"
	timerout "worktrack/internal/modules/timer/port/out"
	"worktrack/internal/platform/markdown"
	"worktrack/internal/platform/slug"
)

// VaultSessionJournal writes one markdown note per closed session under
// <vault>/sessions/YYYY/MM/DD.
type VaultSessionJournal struct {
	vaultPath string
}

func NewVaultSessionJournal(vaultPath string) timerout.SessionJournal {
	return &VaultSessionJournal{vaultPath: vaultPath}
}

type journalMeta struct {
	SchemaVersion int    `yaml:"schema_version"`
	ID            string `yaml:"id"`
	TaskID        string `yaml:"task_id"`
	ProjectType   string `yaml:"project_type"`
	UserID        string `yaml:"user_id"`
	StartedAt     string `yaml:"started_at"`
	EndedAt       string `yaml:"ended_at"`
	DurationSec   int64  `yaml:"duration_sec"`
	Duration      string `yaml:"duration"`
	Note          string `yaml:"note,omitempty"`
}

func (j *VaultSessionJournal) Append(_ context.Context, session domain.Session) (string, error) {
	date := session.StartedAt
	if date.IsZero() && session.EndedAt != nil {
		date = *session.EndedAt
	}
	dir := filepath.Join(j.vaultPath, "sessions", date.Format("2006"), date.Format("01"), date.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create journal dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s-%s.md", date.Format("150405"), slug.Make(session.TaskID), slug.Make(session.ID))
	path := filepath.Join(dir, name)

	meta := journalMeta{
		SchemaVersion: domain.SchemaVersion,
		ID:            session.ID,
		TaskID:        session.TaskID,
		ProjectType:   session.ProjectType,
		UserID:        session.UserID,
		StartedAt:     session.StartedAt.Format(time.RFC3339),
		DurationSec:   session.DurationSec,
		Duration:      domain.FormatDuration(session.DurationSec),
		Note:          session.Note,
	}
	if session.EndedAt != nil {
		meta.EndedAt = session.EndedAt.Format(time.RFC3339)
	}
	body := fmt.Sprintf("# Session %s\n\n- Task: %s\n- Duration: %s\n", session.ID, session.TaskID, meta.Duration)
	if strings.TrimSpace(session.Note) != "" {
		body += "\n## Note\n\n" + session.Note + "\n"
	}
	rendered, err := markdown.RenderFrontmatter(meta, body)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write session note: %w", err)
	}
	return path, nil
}

// List returns the newest entries first. Notes that cannot be parsed are
// skipped.
func (j *VaultSessionJournal) List(_ context.Context, limit int) ([]domain.JournalEntry, error) {
	root := filepath.Join(j.vaultPath, "sessions")
	var out []domain.JournalEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		meta := journalMeta{}
		if _, err := markdown.SplitFrontmatter(string(content), &meta); err != nil || meta.ID == "" {
			return nil
		}
		out = append(out, domain.JournalEntry{Session: meta.toDomain(), Path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk journal: %w", err)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].Session.StartedAt.Equal(out[b].Session.StartedAt) {
			return out[a].Session.StartedAt.After(out[b].Session.StartedAt)
		}
		return out[a].Path > out[b].Path
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m journalMeta) toDomain() domain.Session {
	s := domain.Session{
		ID:          m.ID,
		TaskID:      m.TaskID,
		ProjectType: m.ProjectType,
		UserID:      m.UserID,
		DurationSec: m.DurationSec,
		Note:        m.Note,
	}
	s.StartedAt, _ = time.Parse(time.RFC3339, m.StartedAt)
	if ended, err := time.Parse(time.RFC3339, m.EndedAt); err == nil {
		s.EndedAt = &ended
	}
	return s
}
