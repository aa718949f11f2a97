package models

import (
	"time"
)

// Room is a data transfer object for room state.
// All persistent state is managed in the database via RoomManager.
// This struct is used for broadcasting snapshots and passing data
// between handlers.
type Room struct {
	ID             string     `json:"id"`
	JoinCode       string     `json:"joinCode"`
	Status         RoomStatus `json:"status"`
	GamePhase      GamePhase  `json:"gamePhase"`
	CurrentRound   int        `json:"currentRound"`
	TotalRounds    int        `json:"totalRounds"`
	CurrentVIPID   string     `json:"currentVipId,omitempty"`
	VIPsCompleted  int        `json:"vipsCompleted"`
	OrganizationID string     `json:"organizationId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastActivity   time.Time  `json:"lastActivity"`
}

// IsPlaying reports whether the game has started and not yet finished.
func (r *Room) IsPlaying() bool {
	return r.Status == StatusPlaying && !r.GamePhase.IsTerminal()
}

// JoinCodeStatus is the result of server-side join-code validation.
// The client cannot safely compute any of these fields itself.
type JoinCodeStatus struct {
	RoomExists        bool       `json:"room_exists"`
	PlayerCount       int        `json:"player_count"`
	RoomStatus        RoomStatus `json:"room_status,omitempty"`
	UserAlreadyJoined bool       `json:"user_already_joined"`
}
