package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/isdelr/ender-tasks/internal/client/api"
	"github.com/isdelr/ender-tasks/internal/client/tasksync"
	"github.com/isdelr/ender-tasks/internal/models"
	"github.com/spf13/cobra"
)

func (a *App) listCmd() *cobra.Command {
	var (
		status   string
		search   string
		upcoming bool
		overdue  bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			if err := a.tasks.Refresh(cmd.Context()); err != nil {
				return a.explain(err)
			}

			now := time.Now()
			tasks := a.tasks.Tasks()
			if status != "" {
				s := models.TaskStatus(status)
				if !s.Valid() {
					return fmt.Errorf("unknown status %q", status)
				}
				tasks = tasksync.ByStatus(tasks, s)
			}
			if search != "" {
				tasks = tasksync.Search(tasks, search)
			}
			if upcoming {
				tasks = tasksync.Upcoming(tasks, now)
			}
			if overdue {
				tasks = tasksync.Overdue(tasks, now)
			}

			if asJSON {
				return writeJSON(a.out, tasks)
			}
			printTasks(a.out, tasks, now)
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "only tasks with this status (pending, in-progress, completed)")
	cmd.Flags().StringVarP(&search, "search", "q", "", "only tasks whose title or description contains this text")
	cmd.Flags().BoolVar(&upcoming, "upcoming", false, "only open tasks due within 7 days")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only open tasks past their due date")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func (a *App) addCmd() *cobra.Command {
	var title, description, due, status, image string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			dueDate, err := parseDue(due)
			if err != nil {
				return err
			}
			input := models.TaskInput{
				Title:       title,
				Description: description,
				DueDate:     &dueDate,
				Status:      models.TaskStatus(status),
			}
			if image != "" {
				if input.Image, err = imageDataURI(image); err != nil {
					return err
				}
			}

			task, err := a.tasks.Create(cmd.Context(), input)
			if err != nil {
				return a.explain(err)
			}
			fmt.Fprintf(a.out, "Created task %d: %s\n", task.ID, task.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "task title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVarP(&status, "status", "s", "", "initial status (default pending)")
	cmd.Flags().StringVar(&image, "image", "", "attach an image file")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func (a *App) showCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			// Prime the snapshot so Get has something to fall back on.
			if err := a.tasks.Refresh(cmd.Context()); err != nil {
				return a.explain(err)
			}
			task, err := a.tasks.Get(cmd.Context(), id)
			if err != nil {
				if errors.Is(err, tasksync.ErrNotCached) {
					return fmt.Errorf("task %d not found", id)
				}
				return a.explain(err)
			}
			if asJSON {
				return writeJSON(a.out, task)
			}
			printTask(a.out, task, time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func (a *App) updateCmd() *cobra.Command {
	var title, description, due, status, image string
	var clearImage bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var patch models.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("status") {
				s := models.TaskStatus(status)
				patch.Status = &s
			}
			if flags.Changed("due") {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				patch.DueDate = &d
			}
			switch {
			case clearImage && image != "":
				return errors.New("--image and --clear-image are mutually exclusive")
			case clearImage:
				patch.Image = models.ClearString()
			case image != "":
				uri, err := imageDataURI(image)
				if err != nil {
					return err
				}
				patch.Image = models.SetString(uri)
			}

			task, err := a.tasks.Update(cmd.Context(), id, patch)
			if err != nil {
				return a.explain(err)
			}
			fmt.Fprintf(a.out, "Updated task %d: %s [%s]\n", task.ID, task.Title, task.Status)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&due, "due", "", "new due date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVarP(&status, "status", "s", "", "new status (pending, in-progress, completed)")
	cmd.Flags().StringVar(&image, "image", "", "replace the attached image")
	cmd.Flags().BoolVar(&clearImage, "clear-image", false, "remove the attached image")
	return cmd
}

func (a *App) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.tasks.Delete(cmd.Context(), id); err != nil {
				return a.explain(err)
			}
			fmt.Fprintf(a.out, "Deleted task %d\n", id)
			return nil
		},
	}
}

func (a *App) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			stats, err := a.client.Stats(cmd.Context())
			if err == nil {
				printStats(a.out, stats, true)
				return nil
			}
			if !errors.Is(err, api.ErrUnavailable) {
				return a.explain(err)
			}

			// Offline: count what the cache has.
			if err := a.tasks.Refresh(cmd.Context()); err != nil {
				return a.explain(err)
			}
			c := a.tasks.Counts()
			printStats(a.out, models.TaskStats{
				Total:      c.Total,
				Pending:    c.Pending,
				InProgress: c.InProgress,
				Completed:  c.Completed,
				Overdue:    len(a.tasks.Overdue()),
			}, false)
			return nil
		},
	}
}

func (a *App) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print task changes as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Watching for task changes (Ctrl+C to stop)...")
			err := a.client.Watch(cmd.Context(), func(ev api.Event) {
				fmt.Fprintf(a.out, "%s  %-13s #%d %s\n", time.Now().Format("15:04:05"), ev.Action, ev.Task.ID, ev.Task.Title)
			})
			return a.explain(err)
		},
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
