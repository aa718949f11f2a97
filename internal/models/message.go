package models

type WSMessage struct {
	Type    string      `json:"type"`
	RoomID  string      `json:"roomId,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// Client → Server message types
const (
	MsgTypeSubmitSelection = "submit_selection"
	MsgTypeStageGuess      = "stage_guess"
	MsgTypeSubmitGuess     = "submit_guess"
	MsgTypeStartGame       = "start_game"
	MsgTypeNextRound       = "next_round"
	MsgTypeLeave           = "leave"
)

// Server → Client message types
const (
	MsgTypeRoomState         = "room_state" // Initial state sync on connection
	MsgTypePlayerJoined      = "player_joined"
	MsgTypePlayerLeft        = "player_left"
	MsgTypePlayerKicked      = "player_kicked"
	MsgTypePhaseChanged      = "phase_changed"
	MsgTypeSelectionReceived = "selection_received"
	MsgTypeGuessReceived     = "guess_received"
	MsgTypeHostMigrating     = "host_migrating"
	MsgTypeHostMigrated      = "host_migrated"
	MsgTypeRoundReset        = "round_reset"
	MsgTypeGameEnded         = "game_ended"
	MsgTypeError             = "error"
)
