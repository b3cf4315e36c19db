// Package cli implements the taskctl terminal client.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/isdelr/ender-tasks/internal/client/api"
	"github.com/isdelr/ender-tasks/internal/client/session"
	"github.com/isdelr/ender-tasks/internal/client/storage"
	"github.com/isdelr/ender-tasks/internal/client/tasksync"
	"github.com/isdelr/ender-tasks/internal/database"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in; run `taskctl login` first")

// App wires the client components for one command invocation.
type App struct {
	out    io.Writer
	prompt *prompter

	configPath string
	apiURL     string
	dbPath     string

	cfg     Config
	db      *sql.DB
	client  *api.Client
	session *session.Session
	tasks   *tasksync.Service
}

// New creates an App reading answers from in and writing to out.
func New(in io.Reader, out io.Writer) *App {
	return &App{out: out, prompt: newPrompter(in, out)}
}

// Command builds the root command.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Manage your tasks from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath(), "config file")
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "API base URL (overrides config)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "local cache path (overrides config)")

	root.AddCommand(a.signupCmd())
	root.AddCommand(a.loginCmd())
	root.AddCommand(a.logoutCmd())
	root.AddCommand(a.whoamiCmd())
	root.AddCommand(a.listCmd())
	root.AddCommand(a.addCmd())
	root.AddCommand(a.showCmd())
	root.AddCommand(a.updateCmd())
	root.AddCommand(a.deleteCmd())
	root.AddCommand(a.statsCmd())
	root.AddCommand(a.watchCmd())

	return root
}

// Close releases the local cache.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *App) open(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	a.cfg = cfg

	ctx := cmd.Context()
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	a.db = db
	repo := storage.NewSQLiteRepository(db)

	anonymous := api.New(cfg.APIURL, api.WithTimeout(cfg.Timeout))
	a.session = session.New(anonymous, repo)
	if err := a.session.Init(ctx); err != nil {
		return err
	}
	a.client = anonymous.WithToken(a.session)
	a.tasks = tasksync.New(a.client, repo)
	return nil
}

func (a *App) requireLogin() error {
	if !a.session.State().Authenticated {
		return errNotLoggedIn
	}
	return nil
}

// explain turns client errors into something a user can act on.
func (a *App) explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, api.ErrUnauthorized):
		return fmt.Errorf("session expired or invalid; run `taskctl login` again")
	case errors.Is(err, api.ErrUnavailable):
		return fmt.Errorf("cannot reach %s: %w", a.cfg.APIURL, err)
	case errors.Is(err, context.Canceled):
		return err
	}
	return errors.New(api.MessageOf(err))
}
