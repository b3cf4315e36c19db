package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a single to-do item owned by a user.
type Task struct {
	ID          int        `json:"id"`
	UserID      int        `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"dueDate"`
	Status      TaskStatus `json:"status"`
	Image       string     `json:"image,omitempty"` // e.g. a base64 data URI
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// IsLocal marks tasks created on a client but not yet acknowledged by the
	// server. It is never sent over the wire.
	IsLocal bool `json:"-"`
}

// IsOverdue reports whether the task is past due and not completed.
func (t Task) IsOverdue(now time.Time) bool {
	return t.Status != StatusCompleted && t.DueDate.Before(now)
}

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Status      TaskStatus `json:"status,omitempty"`
	Image       string     `json:"image,omitempty"`
}

// TaskPatch carries a partial update. Nil or empty scalar fields leave the
// stored value untouched; Image distinguishes omitted from cleared.
type TaskPatch struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	DueDate     *time.Time     `json:"dueDate,omitempty"`
	Status      *TaskStatus    `json:"status,omitempty"`
	Image       OptionalString `json:"image"`
}

// TaskStats summarizes a user's tasks by status.
type TaskStats struct {
	Total        int     `json:"total"`
	Pending      int     `json:"pending"`
	InProgress   int     `json:"inProgress"`
	Completed    int     `json:"completed"`
	Overdue      int     `json:"overdue"`
	SystemHealth float64 `json:"systemHealth,omitempty"`
}

// MarshalJSON omits Image entirely when it was not provided, and sends null
// when it is being cleared.
func (p TaskPatch) MarshalJSON() ([]byte, error) {
	type wire struct {
		Title       *string         `json:"title,omitempty"`
		Description *string         `json:"description,omitempty"`
		DueDate     *time.Time      `json:"dueDate,omitempty"`
		Status      *TaskStatus     `json:"status,omitempty"`
		Image       json.RawMessage `json:"image,omitempty"`
	}
	w := wire{
		Title:       p.Title,
		Description: p.Description,
		DueDate:     p.DueDate,
		Status:      p.Status,
	}
	if p.Image.Present {
		raw, err := p.Image.MarshalJSON()
		if err != nil {
			return nil, err
		}
		w.Image = raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON treats an empty or null dueDate as missing.
func (in *TaskInput) UnmarshalJSON(data []byte) error {
	type alias TaskInput
	aux := struct {
		*alias
		DueDate json.RawMessage `json:"dueDate"`
	}{alias: (*alias)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	due, err := decodeOptionalTime(aux.DueDate)
	if err != nil {
		return err
	}
	in.DueDate = due
	return nil
}

// UnmarshalJSON treats an empty or null dueDate as missing, leaving the
// stored due date untouched.
func (p *TaskPatch) UnmarshalJSON(data []byte) error {
	type alias TaskPatch
	aux := struct {
		*alias
		DueDate json.RawMessage `json:"dueDate"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	due, err := decodeOptionalTime(aux.DueDate)
	if err != nil {
		return err
	}
	p.DueDate = due
	return nil
}

func decodeOptionalTime(raw json.RawMessage) (*time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`)) {
		return nil, nil
	}
	var t time.Time
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
