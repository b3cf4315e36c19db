package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/isdelr/ender-tasks/internal/models"
	"github.com/isdelr/ender-tasks/internal/validator"
)

// Task change event types.
const (
	TaskCreated = "task.created"
	TaskUpdated = "task.updated"
	TaskDeleted = "task.deleted"
)

// TaskEvent describes a successful mutation of a task.
type TaskEvent struct {
	Type string
	Task models.Task
}

// TaskServiceProvider defines the interface for task services. Every method
// is scoped to ownerID; tasks belonging to other users are reported as not found.
type TaskServiceProvider interface {
	List(ownerID int) []models.Task
	Create(ownerID int, input models.TaskInput) (models.Task, error)
	Get(ownerID, id int) (models.Task, error)
	Update(ownerID, id int, patch models.TaskPatch) (models.Task, error)
	Delete(ownerID, id int) error
	Stats(ownerID int, now time.Time) models.TaskStats
	ListOverdue(now time.Time) []models.Task
}

// TaskService keeps tasks in memory in insertion order.
type TaskService struct {
	mu        sync.RWMutex
	tasks     []models.Task
	nextID    int
	now       func() time.Time
	listeners []func(TaskEvent)
}

// NewTaskService creates a new TaskService.
func NewTaskService() *TaskService {
	return &TaskService{nextID: 1, now: time.Now}
}

// OnChange registers fn to be called after every successful mutation.
// Listeners run synchronously and must not call back into the service.
func (s *TaskService) OnChange(fn func(TaskEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// List returns all tasks owned by ownerID.
func (s *TaskService) List(ownerID int) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]models.Task, 0)
	for _, t := range s.tasks {
		if t.UserID == ownerID {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// Create validates input and appends a new task for ownerID.
func (s *TaskService) Create(ownerID int, input models.TaskInput) (models.Task, error) {
	v := validator.New()
	v.CheckRequired(input.Title, "title")
	v.CheckRequired(input.Description, "description")
	v.Check(input.DueDate != nil, "dueDate", "must be provided")
	v.Check(input.Status == "" || input.Status.Valid(), "status", "must be one of pending, in-progress, completed")
	if !v.Valid() {
		return models.Task{}, newValidationError(v)
	}

	status := input.Status
	if status == "" {
		status = models.StatusPending
	}

	s.mu.Lock()
	now := s.now()
	task := models.Task{
		ID:          s.nextID,
		UserID:      ownerID,
		Title:       input.Title,
		Description: input.Description,
		DueDate:     *input.DueDate,
		Status:      status,
		Image:       input.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextID++
	s.tasks = append(s.tasks, task)
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, TaskEvent{Type: TaskCreated, Task: task})
	return task, nil
}

// Get retrieves a single task by its ID.
func (s *TaskService) Get(ownerID, id int) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(ownerID, id)
	if i < 0 {
		return models.Task{}, fmt.Errorf("%w: id %d", ErrTaskNotFound, id)
	}
	return s.tasks[i], nil
}

// Update merges patch into the stored task. Empty scalar fields are ignored;
// Image is replaced whenever it is present in the patch, including when cleared.
func (s *TaskService) Update(ownerID, id int, patch models.TaskPatch) (models.Task, error) {
	if patch.Status != nil && *patch.Status != "" && !patch.Status.Valid() {
		v := validator.New()
		v.Check(false, "status", "must be one of pending, in-progress, completed")
		return models.Task{}, newValidationError(v)
	}

	s.mu.Lock()
	i := s.indexOf(ownerID, id)
	if i < 0 {
		s.mu.Unlock()
		return models.Task{}, fmt.Errorf("%w: id %d", ErrTaskNotFound, id)
	}

	task := s.tasks[i]
	if patch.Title != nil && strings.TrimSpace(*patch.Title) != "" {
		task.Title = *patch.Title
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) != "" {
		task.Description = *patch.Description
	}
	if patch.DueDate != nil && !patch.DueDate.IsZero() {
		task.DueDate = *patch.DueDate
	}
	if patch.Status != nil && *patch.Status != "" {
		task.Status = *patch.Status
	}
	if patch.Image.Present {
		task.Image = patch.Image.Value
	}

	now := s.now()
	if !now.After(task.UpdatedAt) {
		now = task.UpdatedAt.Add(time.Nanosecond)
	}
	task.UpdatedAt = now

	s.tasks[i] = task
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, TaskEvent{Type: TaskUpdated, Task: task})
	return task, nil
}

// Delete removes a task.
func (s *TaskService) Delete(ownerID, id int) error {
	s.mu.Lock()
	i := s.indexOf(ownerID, id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: id %d", ErrTaskNotFound, id)
	}
	task := s.tasks[i]
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, TaskEvent{Type: TaskDeleted, Task: task})
	return nil
}

// Stats counts ownerID's tasks by status.
func (s *TaskService) Stats(ownerID int, now time.Time) models.TaskStats {
	var stats models.TaskStats
	for _, t := range s.List(ownerID) {
		stats.Total++
		switch t.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusCompleted:
			stats.Completed++
		}
		if t.IsOverdue(now) {
			stats.Overdue++
		}
	}
	return stats
}

// ListOverdue returns every user's overdue tasks.
func (s *TaskService) ListOverdue(now time.Time) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var overdue []models.Task
	for _, t := range s.tasks {
		if t.IsOverdue(now) {
			overdue = append(overdue, t)
		}
	}
	return overdue
}

// indexOf must be called with s.mu held.
func (s *TaskService) indexOf(ownerID, id int) int {
	for i, t := range s.tasks {
		if t.ID == id && t.UserID == ownerID {
			return i
		}
	}
	return -1
}

func notify(listeners []func(TaskEvent), ev TaskEvent) {
	for _, fn := range listeners {
		fn(ev)
	}
}
