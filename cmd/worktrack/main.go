package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"worktrack/internal/bootstrap"
	tasksdto "worktrack/internal/modules/tasks/dto"
	"worktrack/internal/platform/config"
	"worktrack/internal/platform/database"
	apperrors "worktrack/internal/platform/errors"
	"worktrack/internal/platform/logging"
	"worktrack/internal/platform/periodic"
	"worktrack/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalOptions struct {
	vaultPath   string
	userID      string
	projectType string
	remoteURL   string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "worktrack",
		Short:         "Task list and work timer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.vaultPath, "vault", ".", "workspace directory holding config, timer state and journal")
	root.PersistentFlags().StringVar(&opts.userID, "user", "", "signed-in user id")
	root.PersistentFlags().StringVar(&opts.projectType, "project", "", "project type")
	root.PersistentFlags().StringVar(&opts.remoteURL, "remote", "", "worktrack API base url (uses the local database when empty)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(newTUICmd(opts))
	root.AddCommand(newTimerCmd(opts))
	root.AddCommand(newTaskCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newMigrateCmd(opts))
	return root
}

func loadConfig(opts *globalOptions) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.vaultPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if opts.userID != "" {
		cfg.UserID = opts.userID
	}
	if opts.projectType != "" {
		cfg.ProjectType = opts.projectType
	}
	if opts.remoteURL != "" {
		cfg.RemoteURL = opts.remoteURL
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, logging.New(os.Stderr, cfg.LogLevel), nil
}

func loadApp(ctx context.Context, opts *globalOptions) (*bootstrap.App, error) {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg, log)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newTUICmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run worktrack terminal UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			return bootstrap.RunTUI(app)
		},
	}
}

// ─── timer ───────────────────────────────────────────────────────────────────

func newTimerCmd(opts *globalOptions) *cobra.Command {
	timer := &cobra.Command{Use: "timer", Short: "Work timer lifecycle"}

	start := &cobra.Command{
		Use:   "start <task-id>",
		Short: "Start a timer on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.TimerCLI.Start(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "timer started: %s task=%s at=%s\n", out.SessionID, out.TaskID, out.StartedAt.Format(time.RFC3339))
			return nil
		},
	}

	var sessionID, note string
	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running timer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.TimerCLI.Stop(cmd.Context(), sessionID, note)
			if err != nil {
				return err
			}
			if out.AlreadyClosed {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "timer already closed remotely: %s\n", out.SessionID)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "timer stopped: %s task=%s duration=%s journal=%s\n", out.SessionID, out.TaskID, out.Formatted, out.JournalPath)
			return nil
		},
	}
	stop.Flags().StringVar(&sessionID, "session-id", "", "optional session id (defaults to the running timer)")
	stop.Flags().StringVar(&note, "note", "", "note recorded in the journal")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the running timer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			return printStatus(cmd.Context(), cmd, app)
		},
	}

	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Check the local timer against the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.TimerCLI.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "checked=%t cleared=%t reason=%s\n", out.Checked, out.Cleared, out.Reason)
			return nil
		},
	}

	total := &cobra.Command{
		Use:   "total <task-id>",
		Short: "Show time spent on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.TimerCLI.Total(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "task=%s total=%s sessions=%d running=%t\n", out.TaskID, out.Formatted, out.Sessions, out.Running)
			return nil
		},
	}

	var interval time.Duration
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print the running timer until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", interval)
			}
			ctx, cancel := signalContext()
			defer cancel()
			app, err := loadApp(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()
			return periodic.Run(ctx, interval, func(ctx context.Context) error {
				return printStatus(ctx, cmd, app)
			})
		},
	}
	watch.Flags().DurationVar(&interval, "interval", time.Second, "refresh interval")

	var limit int
	journal := &cobra.Command{
		Use:   "journal",
		Short: "List recent journal entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			entries, err := app.TimerCLI.Journal(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%ds\t%s\n", e.StartedAt.Format(time.RFC3339), e.TaskID, e.DurationSec, e.Note)
			}
			return nil
		},
	}
	journal.Flags().IntVar(&limit, "limit", 20, "maximum entries")

	timer.AddCommand(start, stop, status, reconcile, total, watch, journal)
	return timer
}

func printStatus(ctx context.Context, cmd *cobra.Command, app *bootstrap.App) error {
	active, err := app.TimerCLI.GetActive(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoActiveSession) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no timer running")
			return nil
		}
		return err
	}
	state := "running"
	if active.Pending {
		state = "pending"
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s task=%s elapsed=%ds\n", state, active.SessionID, active.TaskID, active.ElapsedSec)
	return nil
}

// ─── tasks ───────────────────────────────────────────────────────────────────

type listFlags struct {
	status    string
	assignees []string
	labels    []string
	timer     string
	itUp      string
	release   string
	title     string
	active    string
	page      int
}

func (f *listFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.status, "status", "not-completed", "not-completed, completed or all")
	cmd.Flags().StringSliceVar(&f.assignees, "assignee", nil, "assignee ids (any match)")
	cmd.Flags().StringSliceVar(&f.labels, "label", nil, "label ids (any match)")
	cmd.Flags().StringVar(&f.timer, "timer", "", "filter by running timer (true|false)")
	cmd.Flags().StringVar(&f.itUp, "it-up", "", "IT up month (YYYY-MM)")
	cmd.Flags().StringVar(&f.release, "release", "", "release month (YYYY-MM)")
	cmd.Flags().StringVar(&f.title, "title", "", "title substring")
	cmd.Flags().StringVar(&f.active, "active", "", "task id pinned to the top")
	cmd.Flags().IntVar(&f.page, "page", 1, "1-based page")
}

func (f listFlags) input() (tasksdto.ListTasksInput, error) {
	input := tasksdto.ListTasksInput{
		Status:           f.status,
		AssigneeIDs:      f.assignees,
		LabelIDs:         f.labels,
		ItUpDateMonth:    f.itUp,
		ReleaseDateMonth: f.release,
		Title:            f.title,
		ActiveTaskID:     f.active,
		Page:             f.page,
	}
	if f.timer != "" {
		v, err := strconv.ParseBool(f.timer)
		if err != nil {
			return tasksdto.ListTasksInput{}, fmt.Errorf("--timer: %w", err)
		}
		input.TimerActive = &v
	}
	return input, nil
}

func newTaskCmd(opts *globalOptions) *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Browse project tasks"}

	var lf listFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List one page of tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, err := lf.input()
			if err != nil {
				return err
			}
			app, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.TasksCLI.List(cmd.Context(), input)
			if err != nil {
				return err
			}
			for _, t := range out.Tasks {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), formatTask(t))
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.RangeLabel)
			return nil
		},
	}
	lf.bind(list)

	var gf listFlags
	groups := &cobra.Command{
		Use:   "groups",
		Short: "Show one page of tasks grouped by assignee and status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, err := gf.input()
			if err != nil {
				return err
			}
			app, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.TasksCLI.Groups(cmd.Context(), input)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, section := range out.Sections {
				_, _ = fmt.Fprintf(w, "%s (%s)\n", section.AssigneeName, section.AssigneeID)
				for _, group := range section.Groups {
					_, _ = fmt.Fprintf(w, "  %s\n", group.Status)
					for _, t := range group.Tasks {
						_, _ = fmt.Fprintf(w, "    %s\n", formatTask(t))
					}
				}
			}
			_, _ = fmt.Fprintln(w, out.Page.RangeLabel)
			return nil
		},
	}
	gf.bind(groups)

	get := &cobra.Command{
		Use:   "get <task-id>",
		Short: "Show a single task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			t, err := app.TasksCLI.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "id: %s\ntitle: %s\nstatus: %s\nassignees: %s\nlabels: %s\nit_up: %s\nrelease: %s\ndue: %s\ntimer: %t\n",
				t.ID, t.Title, t.FlowStatus, strings.Join(t.AssigneeIDs, ","), strings.Join(t.LabelIDs, ","), t.ItUpDate, t.ReleaseDate, t.DueDate, t.HasActiveTimer)
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Load tasks and users from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			var input tasksdto.ImportInput
			if err := yaml.Unmarshal(payload, &input); err != nil {
				return fmt.Errorf("decode import file: %w", err)
			}
			app, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.TasksCLI.Import(cmd.Context(), input)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported tasks=%d users=%d\n", out.Tasks, out.Users)
			return nil
		},
	}

	task.AddCommand(list, groups, get, importCmd)
	return task
}

func formatTask(t tasksdto.TaskOutput) string {
	marker := " "
	switch {
	case t.IsActive:
		marker = "●"
	case t.HasActiveTimer:
		marker = "○"
	}
	newMark := ""
	if t.IsNew {
		newMark = " NEW"
	}
	return fmt.Sprintf("%s %s\t%s\t%s\t%s%s", marker, t.ID, t.FlowStatus, strings.Join(t.AssigneeIDs, ","), t.Title, newMark)
}

// ─── server ──────────────────────────────────────────────────────────────────

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the worktrack API from the local database",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			cfg, log, err := loadConfig(opts)
			if err != nil {
				return err
			}
			cfg.RemoteURL = ""
			if addr != "" {
				cfg.ListenAddr = addr
			}
			app, err := bootstrap.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()
			handler, err := app.Handler()
			if err != nil {
				return err
			}
			return server.New(cfg.ListenAddr, handler, log).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to listen_addr from config)")
	return cmd
}

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(opts)
			if err != nil {
				return err
			}
			db, err := database.Open(cmd.Context(), cfg.Driver, cfg.DataSource())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db, cfg.Driver, log); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", cfg.Driver)
			return nil
		},
	}
}
