package monitoring

import (
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/ender-tasks/internal/models"
	"github.com/isdelr/ender-tasks/internal/services"
	"github.com/isdelr/ender-tasks/internal/websocket"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// TaskOverdue is the websocket action sent when a task becomes overdue.
const TaskOverdue = "task.overdue"

// Notifier delivers a notification message to a user's live connections.
type Notifier interface {
	BroadcastTo(userID int, message []byte)
}

// MailSender delivers a templated email.
type MailSender interface {
	Send(to, templateFile string, data any) error
}

// UserLookup resolves a task owner so reminders can be addressed.
type UserLookup interface {
	GetUserByID(id int) (models.User, error)
}

// OverdueMonitor periodically looks for overdue tasks and alerts their owners
// once per task and due date.
type OverdueMonitor struct {
	taskSvc  services.TaskServiceProvider
	userSvc  UserLookup
	notifier Notifier
	mailer   MailSender // optional
	schedule cron.Schedule
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	notified map[int]time.Time // task ID -> due date that was alerted
}

// NewOverdueMonitor creates a monitor that runs on the standard cron spec. A nil
// mailer disables reminder emails.
func NewOverdueMonitor(spec string, taskSvc services.TaskServiceProvider, userSvc UserLookup, notifier Notifier, mailer MailSender) (*OverdueMonitor, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return &OverdueMonitor{
		taskSvc:  taskSvc,
		userSvc:  userSvc,
		notifier: notifier,
		mailer:   mailer,
		schedule: schedule,
		now:      time.Now,
		done:     make(chan struct{}),
		notified: make(map[int]time.Time),
	}, nil
}

// Run checks once immediately, then on every schedule tick until Stop.
func (m *OverdueMonitor) Run() {
	log.Info().Msg("Starting overdue task monitor...")
	m.Sweep()

	for {
		next := m.schedule.Next(m.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-m.done:
			timer.Stop()
			log.Info().Msg("Stopping overdue task monitor.")
			return
		case <-timer.C:
			m.Sweep()
		}
	}
}

// Stop halts the monitor.
func (m *OverdueMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// Sweep alerts owners of tasks that are overdue and have not been alerted for
// their current due date. It returns the number of alerts sent.
func (m *OverdueMonitor) Sweep() int {
	now := m.now()
	overdue := m.taskSvc.ListOverdue(now)

	m.mu.Lock()
	var pending []models.Task
	seen := make(map[int]bool, len(overdue))
	for _, task := range overdue {
		seen[task.ID] = true
		if due, ok := m.notified[task.ID]; ok && due.Equal(task.DueDate) {
			continue
		}
		m.notified[task.ID] = task.DueDate
		pending = append(pending, task)
	}
	// Forget tasks that were completed, rescheduled or deleted.
	for id := range m.notified {
		if !seen[id] {
			delete(m.notified, id)
		}
	}
	m.mu.Unlock()

	for _, task := range pending {
		m.alert(task)
	}
	return len(pending)
}

func (m *OverdueMonitor) alert(task models.Task) {
	log.Info().Int("task_id", task.ID).Int("user_id", task.UserID).Msg("Task is overdue")
	m.notifier.BroadcastTo(task.UserID, websocket.Encode(TaskOverdue, task))

	if m.mailer == nil {
		return
	}
	user, err := m.userSvc.GetUserByID(task.UserID)
	if err != nil {
		log.Warn().Err(err).Int("task_id", task.ID).Msg("Overdue monitor: owner not found")
		return
	}
	data := struct {
		Name string
		Task models.Task
	}{Name: user.Name, Task: task}
	if err := m.mailer.Send(user.Email, "task_overdue.tmpl", data); err != nil {
		log.Error().Err(err).Int("task_id", task.ID).Str("email", user.Email).Msg("Overdue monitor: failed to send reminder")
	}
}
