package domain

import "time"

// Task belongs to exactly one column at any instant. Moving a task between
// columns is a single atomic reassignment of ColumnID and Position.
type Task struct {
	ID          string     `json:"id"`
	ColumnID    string     `json:"column_id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary,omitempty"`
	Description string     `json:"description,omitempty"`
	StartDate   time.Time  `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Owner       string     `json:"owner,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	Reward      float64    `json:"reward,omitempty"`
	Position    int        `json:"position"`
}

// TaskPatch carries optional field updates. Nil means "leave unchanged".
type TaskPatch struct {
	Title       *string    `json:"title"`
	Summary     *string    `json:"summary"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Owner       *string    `json:"owner"`
	AssigneeID  *string    `json:"assignee_id"`
	Reward      *float64   `json:"reward"`
}
