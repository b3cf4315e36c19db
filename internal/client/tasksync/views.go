package tasksync

import (
	"strings"
	"time"

	"github.com/isdelr/ender-tasks/internal/models"
)

// UpcomingWindow is how far ahead Upcoming looks.
const UpcomingWindow = 7 * 24 * time.Hour

// Counts tallies tasks by status.
type Counts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// ByStatus returns the tasks with the given status.
func ByStatus(tasks []models.Task, status models.TaskStatus) []models.Task {
	return filter(tasks, func(t models.Task) bool { return t.Status == status })
}

// Search matches query case-insensitively against title and description.
func Search(tasks []models.Task, query string) []models.Task {
	q := strings.ToLower(query)
	return filter(tasks, func(t models.Task) bool {
		return strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q)
	})
}

// Upcoming returns open tasks due within the next week, bounds inclusive.
func Upcoming(tasks []models.Task, now time.Time) []models.Task {
	end := now.Add(UpcomingWindow)
	return filter(tasks, func(t models.Task) bool {
		return t.Status != models.StatusCompleted && !t.DueDate.Before(now) && !t.DueDate.After(end)
	})
}

// Overdue returns open tasks due before now.
func Overdue(tasks []models.Task, now time.Time) []models.Task {
	return filter(tasks, func(t models.Task) bool { return t.IsOverdue(now) })
}

// Count tallies tasks by status.
func Count(tasks []models.Task) Counts {
	c := Counts{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case models.StatusPending:
			c.Pending++
		case models.StatusInProgress:
			c.InProgress++
		case models.StatusCompleted:
			c.Completed++
		}
	}
	return c
}

func filter(tasks []models.Task, keep func(models.Task) bool) []models.Task {
	out := make([]models.Task, 0)
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
