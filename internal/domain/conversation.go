package domain

import "time"

// Turn is one completed exchange in a conversation. Turns are immutable
// once appended; ordering is insertion order, most recent last.
type Turn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	Timestamp time.Time `json:"timestamp"`
}

// Session tracks one user's conversation for the process lifetime.
type Session struct {
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Turns     []Turn    `json:"turns,omitempty"`
}
