package domain

// Event variant tags. One event is broadcast per committed mutation.
const (
	EventColumnCreated = "column_created"
	EventColumnDeleted = "column_deleted"
	EventTaskCreated   = "task_created"
	EventTaskUpdated   = "task_updated"
	EventTaskDeleted   = "task_deleted"
	EventTaskAssigned  = "task_assigned"
	EventReorder       = "reorder"
)

// Event is a typed notification describing one committed change. Exactly
// the fields belonging to the variant named by Type are set; everything
// else is omitted from the wire form.
type Event struct {
	Type       string          `json:"type"`
	Column     *Column         `json:"column,omitempty"`
	ColumnID   string          `json:"column_id,omitempty"`
	Task       *Task           `json:"task,omitempty"`
	TaskID     string          `json:"task_id,omitempty"`
	AssigneeID string          `json:"assignee_id,omitempty"`
	Data       *ReorderRequest `json:"data,omitempty"`
}

// ReorderRequest repositions tasks across one or more columns. It doubles
// as the payload of the reorder event: the submitted arrangement is echoed
// verbatim so subscribers replace their local view wholesale.
type ReorderRequest struct {
	BoardID string        `json:"board_id"`
	Columns []ColumnOrder `json:"columns"`
}

// ColumnOrder is the complete front-to-back ordering of one column.
type ColumnOrder struct {
	ID      string   `json:"id"`
	TaskIDs []string `json:"task_ids"`
}

func ColumnCreated(col Column) Event {
	return Event{Type: EventColumnCreated, Column: &col}
}

func ColumnDeleted(columnID string) Event {
	return Event{Type: EventColumnDeleted, ColumnID: columnID}
}

func TaskCreated(t Task) Event {
	return Event{Type: EventTaskCreated, Task: &t}
}

func TaskUpdated(t Task) Event {
	return Event{Type: EventTaskUpdated, Task: &t}
}

func TaskDeleted(taskID, columnID string) Event {
	return Event{Type: EventTaskDeleted, TaskID: taskID, ColumnID: columnID}
}

func TaskAssigned(taskID, assigneeID string) Event {
	return Event{Type: EventTaskAssigned, TaskID: taskID, AssigneeID: assigneeID}
}

func Reorder(req ReorderRequest) Event {
	return Event{Type: EventReorder, Data: &req}
}
