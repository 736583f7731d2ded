package domain

// Board is the root of a realtime room; every subscription and every
// event is scoped to exactly one board.
type Board struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Role values for a board membership.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Membership links a user to a board. A membership record is required both
// for mutating a board and for subscribing to its realtime stream.
type Membership struct {
	BoardID string `json:"boardId"`
	UserID  string `json:"userId"`
	Role    string `json:"role"`
}

// BoardFull is the complete projection of a board: its columns in position
// order, each with its tasks in position order.
type BoardFull struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Columns []ColumnFull `json:"columns"`
}

type ColumnFull struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	Tasks    []Task `json:"tasks"`
}
