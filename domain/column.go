package domain

// Column is an ordered lane within a board. Positions need not be
// contiguous, only comparable within the board.
type Column struct {
	ID       string `json:"id"`
	BoardID  string `json:"boardId"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}
