package domain

// User is an account that can own and join boards.
type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name,omitempty"`
	HashedPassword string `json:"-"`
}
