package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"

	tasksinadapter "worktrack/internal/modules/tasks/adapter/in"
	tasksoutadapter "worktrack/internal/modules/tasks/adapter/out"
	tasksout "worktrack/internal/modules/tasks/port/out"
	tasksservice "worktrack/internal/modules/tasks/service"
	tasksusecase "worktrack/internal/modules/tasks/usecase"
	timerinadapter "worktrack/internal/modules/timer/adapter/in"
	timeroutadapter "worktrack/internal/modules/timer/adapter/out"
	timerout "worktrack/internal/modules/timer/port/out"
	timerservice "worktrack/internal/modules/timer/service"
	timerusecase "worktrack/internal/modules/timer/usecase"
	"worktrack/internal/platform/clock"
	"worktrack/internal/platform/config"
	"worktrack/internal/platform/database"
	"worktrack/internal/platform/id"
	"worktrack/internal/platform/remote"
	"worktrack/internal/server"
	uiapp "worktrack/internal/ui/app"
)

type App struct {
	TimerCLI timerinadapter.CLIHandler
	TasksCLI tasksinadapter.CLIHandler

	cfg    config.Config
	log    *slog.Logger
	db     *sql.DB
	stores server.Stores
}

// New wires the application against the remote API when RemoteURL is set and
// against the local database otherwise.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	clk := clock.SystemClock{}
	app := &App{cfg: cfg, log: log}

	var (
		sessions timerout.RemoteSessionStore
		source   tasksout.TaskSource
		users    tasksout.UserDirectory
		writer   tasksout.TaskWriter
	)
	if cfg.RemoteURL != "" {
		client := remote.NewClient(cfg.RemoteURL, log)
		taskStore := tasksoutadapter.NewHTTPTaskStore(client, log)
		sessions = timeroutadapter.NewHTTPSessionStore(client)
		source, users, writer = taskStore, taskStore, taskStore
	} else {
		db, err := database.Open(ctx, cfg.Driver, cfg.DataSource())
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := database.Migrate(ctx, db, cfg.Driver, log); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		app.db = db
		taskStore := tasksoutadapter.NewSQLTaskStore(db, log)
		sessions = timeroutadapter.NewSQLSessionStore(db, clk, id.UUID{})
		source, users, writer = taskStore, taskStore, taskStore
		app.stores = server.Stores{
			Sessions: sessions,
			Tasks:    taskStore,
			Users:    taskStore,
			Writer:   taskStore,
			Ping:     db.PingContext,
		}
	}

	tasksSvc := tasksservice.NewTaskService(clk, source, cfg.PageSize, log)
	tasksUC := tasksusecase.NewInteractor(tasksSvc, source, users, writer, clk, log)

	active := timeroutadapter.NewFileActiveSessionStore(cfg.VaultPath, cfg.UserID)
	timerUC := timerusecase.NewInteractor(
		timerservice.NewTimerService(clk, active, sessions, log),
		timerservice.NewReconciler(active, sessions, log),
		timeroutadapter.NewVaultSessionJournal(cfg.VaultPath),
		timeroutadapter.NewTaskCacheAdapter(tasksUC),
		cfg.UserID,
		log,
	)

	app.TimerCLI = timerinadapter.NewCLIHandler(timerUC, cfg.ProjectType, cfg.UserID)
	app.TasksCLI = tasksinadapter.NewCLIHandler(tasksUC, cfg.ProjectType, cfg.UserID)
	return app, nil
}

// Handler exposes the local stores over HTTP. It is only available when the
// app owns a database.
func (a *App) Handler() (http.Handler, error) {
	if a.db == nil {
		return nil, fmt.Errorf("serve requires a local database; unset remote_url")
	}
	return server.NewRouter(a.stores, a.log), nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func RunTUI(app *App) error {
	model := uiapp.NewModel(app.TasksCLI, app.TimerCLI)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
