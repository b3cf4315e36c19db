package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/isdelr/ender-tasks/internal/models"
)

const dueLayout = "2006-01-02 15:04"

func printTasks(w io.Writer, tasks []models.Task, now time.Time) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tDUE\tTITLE")
	for _, t := range tasks {
		due := t.DueDate.Local().Format(dueLayout)
		if t.IsOverdue(now) {
			due += " (overdue)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.ID, t.Status, due, t.Title)
	}
	tw.Flush()
}

func printTask(w io.Writer, t models.Task, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", t.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", t.Title)
	fmt.Fprintf(tw, "Description:\t%s\n", t.Description)
	fmt.Fprintf(tw, "Status:\t%s\n", t.Status)
	due := t.DueDate.Local().Format(dueLayout)
	if t.IsOverdue(now) {
		due += " (overdue)"
	}
	fmt.Fprintf(tw, "Due:\t%s\n", due)
	if t.Image != "" {
		fmt.Fprintf(tw, "Image:\t%d bytes attached\n", len(t.Image))
	}
	fmt.Fprintf(tw, "Created:\t%s\n", t.CreatedAt.Local().Format(dueLayout))
	fmt.Fprintf(tw, "Updated:\t%s\n", t.UpdatedAt.Local().Format(dueLayout))
	tw.Flush()
}

func printStats(w io.Writer, s models.TaskStats, online bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total:\t%d\n", s.Total)
	fmt.Fprintf(tw, "Pending:\t%d\n", s.Pending)
	fmt.Fprintf(tw, "In progress:\t%d\n", s.InProgress)
	fmt.Fprintf(tw, "Completed:\t%d\n", s.Completed)
	fmt.Fprintf(tw, "Overdue:\t%d\n", s.Overdue)
	if online {
		fmt.Fprintf(tw, "System health:\t%.1f%%\n", s.SystemHealth)
	} else {
		fmt.Fprintln(tw, "(offline, counted from local cache)")
	}
	tw.Flush()
}
