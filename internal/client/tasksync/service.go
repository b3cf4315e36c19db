// Package tasksync mirrors the user's tasks from the server into a local
// cache and serves them from there when the server cannot be reached.
package tasksync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/ender-tasks/internal/client/storage"
	"github.com/isdelr/ender-tasks/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrNotCached is returned by Get when the server is unreachable and the
// task is not in the local snapshot either.
var ErrNotCached = errors.New("task not available offline")

// TaskAPI is the part of the REST API the sync service needs.
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	GetTask(ctx context.Context, id int) (models.Task, error)
	CreateTask(ctx context.Context, input models.TaskInput) (models.Task, error)
	UpdateTask(ctx context.Context, id int, patch models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, id int) error
}

type listener struct {
	id int
	fn func([]models.Task)
}

// Service is safe for concurrent use.
type Service struct {
	api  TaskAPI
	repo storage.Repository
	now  func() time.Time

	// writeMu serializes local mutations so concurrent writes are not lost.
	writeMu sync.Mutex

	mu        sync.RWMutex
	tasks     []models.Task
	listeners []listener
	nextID    int
}

func New(taskAPI TaskAPI, repo storage.Repository) *Service {
	return &Service{api: taskAPI, repo: repo, now: time.Now, tasks: []models.Task{}}
}

// Refresh replaces the snapshot with the server's list. When the server call
// fails the persisted mirror is used instead, so Refresh only fails on a
// cancelled context.
func (s *Service) Refresh(ctx context.Context) error {
	tasks, err := s.api.ListTasks(ctx)
	if err == nil {
		if perr := s.persist(ctx, tasks); perr != nil {
			log.Warn().Err(perr).Msg("Failed to update local task cache")
		}
		s.replace(tasks)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	log.Warn().Err(err).Msg("Failed to load tasks from server, loading from local cache")
	s.replace(s.loadMirror(ctx))
	return nil
}

// Get asks the server for a task and falls back to the snapshot on failure.
func (s *Service) Get(ctx context.Context, id int) (models.Task, error) {
	task, err := s.api.GetTask(ctx, id)
	if err == nil {
		return task, nil
	}
	log.Debug().Err(err).Int("task_id", id).Msg("Failed to get task from server, using snapshot")

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, fmt.Errorf("%w: id %d: %v", ErrNotCached, id, err)
}

// Create adds a task on the server and appends it to the snapshot.
func (s *Service) Create(ctx context.Context, input models.TaskInput) (models.Task, error) {
	task, err := s.api.CreateTask(ctx, input)
	if err != nil {
		return models.Task{}, err
	}
	s.mutate(ctx, func(tasks []models.Task) []models.Task {
		return append(tasks, task)
	})
	return task, nil
}

// Update patches a task on the server and replaces it in the snapshot.
func (s *Service) Update(ctx context.Context, id int, patch models.TaskPatch) (models.Task, error) {
	task, err := s.api.UpdateTask(ctx, id, patch)
	if err != nil {
		return models.Task{}, err
	}
	s.mutate(ctx, func(tasks []models.Task) []models.Task {
		for i := range tasks {
			if tasks[i].ID == id {
				tasks[i] = task
			}
		}
		return tasks
	})
	return task, nil
}

// Delete removes a task on the server and from the snapshot.
func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.api.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.mutate(ctx, func(tasks []models.Task) []models.Task {
		kept := tasks[:0]
		for _, t := range tasks {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		return kept
	})
	return nil
}

// Tasks returns a copy of the snapshot.
func (s *Service) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.tasks)
}

// Subscribe calls fn with the current snapshot and again after every change.
// The returned function removes the subscription.
func (s *Service) Subscribe(fn func([]models.Task)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	current := clone(s.tasks)
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Service) ByStatus(status models.TaskStatus) []models.Task { return ByStatus(s.Tasks(), status) }
func (s *Service) Search(query string) []models.Task               { return Search(s.Tasks(), query) }
func (s *Service) Upcoming() []models.Task                         { return Upcoming(s.Tasks(), s.now()) }
func (s *Service) Overdue() []models.Task                          { return Overdue(s.Tasks(), s.now()) }
func (s *Service) Counts() Counts                                  { return Count(s.Tasks()) }

// mutate applies fn to a copy of the snapshot, persists and publishes the
// result. A failed cache write is logged; the server already has the change.
func (s *Service) mutate(ctx context.Context, fn func([]models.Task) []models.Task) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next := fn(clone(s.tasks))
	s.mu.Unlock()

	if err := s.persist(ctx, next); err != nil {
		log.Warn().Err(err).Msg("Failed to update local task cache")
	}
	s.replace(next)
}

func (s *Service) replace(tasks []models.Task) {
	if tasks == nil {
		tasks = []models.Task{}
	}
	s.mu.Lock()
	s.tasks = tasks
	listeners := make([]listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn(clone(tasks))
	}
}

func (s *Service) persist(ctx context.Context, tasks []models.Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	return s.repo.Set(ctx, storage.KeyTasks, data)
}

// loadMirror returns the persisted tasks, or an empty list when the mirror is
// missing or unreadable.
func (s *Service) loadMirror(ctx context.Context) []models.Task {
	data, err := s.repo.Get(ctx, storage.KeyTasks)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read local task cache")
		return []models.Task{}
	}
	if len(data) == 0 {
		return []models.Task{}
	}
	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		log.Warn().Err(err).Msg("Local task cache is corrupt, ignoring it")
		return []models.Task{}
	}
	return tasks
}

func clone(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	return out
}
