package models

import "time"

// Player is one seat in a room. A player row is deleted when the player
// explicitly leaves or is kicked; disconnects only flip Connected.
type Player struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	IsHost    bool      `json:"isHost"`
	IsAI      bool      `json:"isAi"`
	UserID    string    `json:"userId,omitempty"`
	Connected bool      `json:"connected"`
	JoinedAt  time.Time `json:"joinedAt"`
	LastSeen  time.Time `json:"lastSeen"`
}
