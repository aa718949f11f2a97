package services

import (
	"fmt"
)

// HostAuthority handles permission checks for host-gated actions. The
// host flag is read from storage on every check rather than trusted from
// the caller, so a forged request from a non-host session is refused
// server-side instead of merely hidden in the UI.
type HostAuthority struct {
	roomManager *RoomManager
}

func NewHostAuthority(rm *RoomManager) *HostAuthority {
	return &HostAuthority{
		roomManager: rm,
	}
}

// IsHost reports whether the player currently holds the host flag in the
// given room.
func (ha *HostAuthority) IsHost(roomID, playerID string) bool {
	player, err := ha.roomManager.GetPlayer(playerID)
	if err != nil {
		return false
	}
	return player.GetString("room_id") == roomID && player.GetBool("is_host")
}

// RequireHost returns an error unless the player is the room's host.
func (ha *HostAuthority) RequireHost(roomID, playerID string) error {
	if !ha.IsHost(roomID, playerID) {
		return fmt.Errorf("unauthorized: only the host can perform this action")
	}
	return nil
}

// CanStartGame checks whether the player may start the game.
func (ha *HostAuthority) CanStartGame(roomID, playerID string) bool {
	return ha.IsHost(roomID, playerID)
}

// CanAdvancePhase checks whether the player may perform phase-advancing
// writes. Phase advances are host-only; any session may still *detect*
// completion, but only the host session's write goes through.
func (ha *HostAuthority) CanAdvancePhase(roomID, playerID string) bool {
	return ha.IsHost(roomID, playerID)
}

// CanKick checks whether the player may remove another player. A player
// may always remove themself (the topic-selection timeout path).
func (ha *HostAuthority) CanKick(roomID, actorID, targetID string) bool {
	if actorID == targetID {
		return true
	}
	return ha.IsHost(roomID, actorID)
}
