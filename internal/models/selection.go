package models

import "time"

// Selection is a player's submitted ranked-5-items list for one round.
// Rank 1 (index 0) is most liked. Selections are insert-only: a new
// round gets a new row, existing rows are never updated.
type Selection struct {
	ID           string    `json:"id"`
	PlayerID     string    `json:"playerId"`
	RoomID       string    `json:"roomId"`
	Round        int       `json:"round"`
	TopicID      string    `json:"topicId"`
	OrderedItems []Item    `json:"orderedItems"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Guess is a non-VIP player's ranked guess at the VIP's true order for
// one round. Score is computed once at submission time and never
// recomputed.
type Guess struct {
	ID           string    `json:"id"`
	PlayerID     string    `json:"playerId"`
	RoomID       string    `json:"roomId"`
	Round        int       `json:"round"`
	VIPPlayerID  string    `json:"vipPlayerId"`
	GuessedOrder []string  `json:"guessedOrder"`
	Score        int       `json:"score"`
	CreatedAt    time.Time `json:"createdAt"`
}
