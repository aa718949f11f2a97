package services

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"github.com/knowsyapp/knowsy-server/internal/config"
	"github.com/knowsyapp/knowsy-server/internal/models"
)

// Join codes avoid ambiguous glyphs (0/O, 1/I).
const joinCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RoomManager owns all record CRUD against the rooms, players, selections
// and guesses collections. Every mutation is a single-row write scoped by
// primary key; there is no multi-row transaction anywhere in the game
// flow, so callers must be safe under partial or duplicate application.
type RoomManager struct {
	app core.App
}

func NewRoomManager(app core.App) *RoomManager {
	return &RoomManager{
		app: app,
	}
}

// App exposes the underlying PocketBase app for services that need raw
// record access (test fixtures, host reassignment).
func (rm *RoomManager) App() core.App {
	return rm.app
}

// CreateRoom creates a new room in the waiting phase. organizationID may
// be empty for unbranded rooms.
func (rm *RoomManager) CreateRoom(organizationID string, totalRounds int) (*core.Record, error) {
	collection, err := rm.app.FindCollectionByNameOrId("rooms")
	if err != nil {
		return nil, fmt.Errorf("failed to find rooms collection: %w", err)
	}

	if totalRounds <= 0 {
		totalRounds = config.DefaultTotalRounds
	}

	record := core.NewRecord(collection)
	record.Set("join_code", rm.generateJoinCode())
	record.Set("status", string(models.StatusWaiting))
	record.Set("game_phase", string(models.PhaseWaiting))
	record.Set("current_round", 0)
	record.Set("total_rounds", totalRounds)
	record.Set("vips_completed", 0)
	if organizationID != "" {
		record.Set("organization_id", organizationID)
	}
	record.Set("last_activity", time.Now())

	if err := rm.app.Save(record); err != nil {
		return nil, fmt.Errorf("failed to save room record: %w", err)
	}

	return record, nil
}

func (rm *RoomManager) generateJoinCode() string {
	code := make([]byte, config.JoinCodeLength)
	for i := range code {
		code[i] = joinCodeCharset[rand.Intn(len(joinCodeCharset))]
	}
	return string(code)
}

// GetRoom retrieves a room by ID from the database
func (rm *RoomManager) GetRoom(id string) (*core.Record, error) {
	record, err := rm.app.FindRecordById("rooms", id)
	if err != nil {
		return nil, fmt.Errorf("room not found: %w", err)
	}
	return record, nil
}

// GetRoomByJoinCode retrieves a room by its join code.
func (rm *RoomManager) GetRoomByJoinCode(code string) (*core.Record, error) {
	records, err := rm.app.FindRecordsByFilter(
		"rooms",
		"join_code = {:code}",
		"",
		1,
		0,
		dbx.Params{"code": code},
	)
	if err != nil || len(records) == 0 {
		return nil, fmt.Errorf("room not found")
	}
	return records[0], nil
}

// ValidateJoinCode performs the server-side join-code check the client
// cannot safely replicate itself.
func (rm *RoomManager) ValidateJoinCode(code, sessionCookie string) (*models.JoinCodeStatus, error) {
	room, err := rm.GetRoomByJoinCode(code)
	if err != nil {
		return &models.JoinCodeStatus{RoomExists: false}, nil
	}

	players, err := rm.ListActivePlayers(room.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	status := &models.JoinCodeStatus{
		RoomExists:  true,
		PlayerCount: len(players),
		RoomStatus:  models.RoomStatus(room.GetString("status")),
	}
	if sessionCookie != "" {
		for _, p := range players {
			if p.GetString("session_cookie") == sessionCookie {
				status.UserAlreadyJoined = true
				break
			}
		}
	}
	return status, nil
}

// UpdateRoomActivity updates the last_activity timestamp
func (rm *RoomManager) UpdateRoomActivity(roomID string) error {
	record, err := rm.GetRoom(roomID)
	if err != nil {
		return err
	}

	record.Set("last_activity", time.Now())
	return rm.app.Save(record)
}

// UpdateRoomPhase writes the room's game phase and, when non-empty, the
// current VIP. This is the one state-changing write the whole protocol
// funnels through: callers race on it, and a racer whose observed phase
// went stale fails the transition check here instead of rewriting the
// same values.
func (rm *RoomManager) UpdateRoomPhase(roomID string, phase models.GamePhase, vipPlayerID string) error {
	room, err := rm.GetRoom(roomID)
	if err != nil {
		return err
	}

	current := models.GamePhase(room.GetString("game_phase"))
	if !current.CanTransitionTo(phase) {
		return fmt.Errorf("cannot move room from %s to %s", current, phase)
	}

	room.Set("game_phase", string(phase))
	if vipPlayerID != "" {
		room.Set("current_vip_id", vipPlayerID)
	}
	room.Set("last_activity", time.Now())

	if err := rm.app.Save(room); err != nil {
		return fmt.Errorf("failed to update room phase: %w", err)
	}
	return nil
}

// StartGame moves a waiting room into play: round 1, topic selection,
// and every player's score reset to zero.
func (rm *RoomManager) StartGame(roomID string) error {
	room, err := rm.GetRoom(roomID)
	if err != nil {
		return err
	}

	room.Set("status", string(models.StatusPlaying))
	room.Set("game_phase", string(models.PhaseTopicSelection))
	room.Set("current_round", 1)
	room.Set("vips_completed", 0)
	room.Set("current_vip_id", "")
	room.Set("last_activity", time.Now())
	if err := rm.app.Save(room); err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}

	players, err := rm.ListActivePlayers(roomID)
	if err != nil {
		return fmt.Errorf("failed to list players: %w", err)
	}
	for _, p := range players {
		p.Set("score", 0)
		if err := rm.app.Save(p); err != nil {
			return fmt.Errorf("failed to reset score for player %s: %w", p.Id, err)
		}
	}

	return nil
}

// AdvanceRoundAfterVIPLeft discards the incomplete round and returns the
// room to topic selection with the round counter bumped.
func (rm *RoomManager) AdvanceRoundAfterVIPLeft(roomID string) error {
	room, err := rm.GetRoom(roomID)
	if err != nil {
		return err
	}

	room.Set("current_round", room.GetInt("current_round")+1)
	room.Set("game_phase", string(models.PhaseTopicSelection))
	room.Set("current_vip_id", "")
	room.Set("last_activity", time.Now())

	if err := rm.app.Save(room); err != nil {
		return fmt.Errorf("failed to reset round: %w", err)
	}
	return nil
}

// CompleteScoring closes out the scoring phase: one more VIP is done,
// and the room either moves to the next round's topic selection or, when
// every planned round has run, finishes.
func (rm *RoomManager) CompleteScoring(roomID string) error {
	room, err := rm.GetRoom(roomID)
	if err != nil {
		return err
	}

	completed := room.GetInt("vips_completed") + 1
	room.Set("vips_completed", completed)

	if completed >= room.GetInt("total_rounds") {
		room.Set("game_phase", string(models.PhaseFinished))
	} else {
		room.Set("current_round", room.GetInt("current_round")+1)
		room.Set("game_phase", string(models.PhaseTopicSelection))
		room.Set("current_vip_id", "")
	}
	room.Set("last_activity", time.Now())

	if err := rm.app.Save(room); err != nil {
		return fmt.Errorf("failed to complete scoring: %w", err)
	}
	return nil
}

// EndGameEarly force-sets the room to finished. Safe to call repeatedly.
func (rm *RoomManager) EndGameEarly(roomID string) error {
	room, err := rm.GetRoom(roomID)
	if err != nil {
		return err
	}

	room.Set("game_phase", string(models.PhaseFinished))
	room.Set("last_activity", time.Now())

	if err := rm.app.Save(room); err != nil {
		return fmt.Errorf("failed to end game: %w", err)
	}
	return nil
}

// ListActivePlayers retrieves all players currently seated in a room.
// Leaving deletes the row, so presence of a row means active.
func (rm *RoomManager) ListActivePlayers(roomID string) ([]*core.Record, error) {
	records, err := rm.app.FindRecordsByFilter(
		"players",
		"room_id = {:roomId}",
		"joined_at",
		config.MaxPlayersPerRoom*2,
		0,
		dbx.Params{"roomId": roomID},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	return records, nil
}

// AddPlayer creates a new player in the database. The first player to
// join becomes the host.
func (rm *RoomManager) AddPlayer(roomID, name string, isAI bool, userID, sessionCookie string) (*core.Record, error) {
	collection, err := rm.app.FindCollectionByNameOrId("players")
	if err != nil {
		return nil, fmt.Errorf("failed to find players collection: %w", err)
	}

	existing, err := rm.ListActivePlayers(roomID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= config.MaxPlayersPerRoom {
		return nil, fmt.Errorf("room is full")
	}

	record := core.NewRecord(collection)
	record.Set("room_id", roomID)
	record.Set("name", name)
	record.Set("score", 0)
	record.Set("is_host", len(existing) == 0)
	record.Set("is_ai", isAI)
	if userID != "" {
		record.Set("user_id", userID)
	}
	record.Set("session_cookie", sessionCookie)
	record.Set("connected", !isAI)
	record.Set("joined_at", time.Now())
	record.Set("last_seen", time.Now())

	if err := rm.app.Save(record); err != nil {
		return nil, fmt.Errorf("failed to save player: %w", err)
	}

	rm.UpdateRoomActivity(roomID)

	return record, nil
}

// GetPlayer retrieves a player by ID
func (rm *RoomManager) GetPlayer(playerID string) (*core.Record, error) {
	return rm.app.FindRecordById("players", playerID)
}

// GetPlayerBySession retrieves a player by session cookie and room
func (rm *RoomManager) GetPlayerBySession(roomID, sessionCookie string) (*core.Record, error) {
	records, err := rm.app.FindRecordsByFilter(
		"players",
		"room_id = {:roomId} && session_cookie = {:session}",
		"",
		1,
		0,
		dbx.Params{
			"roomId":  roomID,
			"session": sessionCookie,
		},
	)
	if err != nil || len(records) == 0 {
		return nil, fmt.Errorf("player not found")
	}
	return records[0], nil
}

// UpdatePlayerConnection updates player connection status
func (rm *RoomManager) UpdatePlayerConnection(playerID string, connected bool) error {
	record, err := rm.app.FindRecordById("players", playerID)
	if err != nil {
		return fmt.Errorf("player not found: %w", err)
	}

	record.Set("connected", connected)
	record.Set("last_seen", time.Now())
	return rm.app.Save(record)
}

// RemovePlayer deletes a player row. The schema cascades the delete to
// that player's selections and guesses.
func (rm *RoomManager) RemovePlayer(playerID string) error {
	record, err := rm.app.FindRecordById("players", playerID)
	if err != nil {
		return fmt.Errorf("player not found: %w", err)
	}
	if err := rm.app.Delete(record); err != nil {
		return fmt.Errorf("failed to remove player: %w", err)
	}
	return nil
}

// KickInactivePlayer removes a player who timed out during topic
// selection and returns how many players remain.
func (rm *RoomManager) KickInactivePlayer(roomID, playerID string) (int, error) {
	if err := rm.RemovePlayer(playerID); err != nil {
		return 0, err
	}
	remaining, err := rm.ListActivePlayers(roomID)
	if err != nil {
		return 0, err
	}
	return len(remaining), nil
}

// AddToPlayerScore adds delta to a player's running total. This is a
// read-then-write across two round trips; concurrent updates to the SAME
// player row are guarded upstream by the unique index on guesses.
func (rm *RoomManager) AddToPlayerScore(playerID string, delta int) error {
	record, err := rm.app.FindRecordById("players", playerID)
	if err != nil {
		return fmt.Errorf("player not found: %w", err)
	}

	record.Set("score", record.GetInt("score")+delta)
	if err := rm.app.Save(record); err != nil {
		return fmt.Errorf("failed to update score: %w", err)
	}
	return nil
}

// SubmitSelection inserts a player's ranked list for the round. The
// unique index on (player_id, room_id, round) makes a double submit fail
// at the storage layer, which is the guard the UI gate is not.
func (rm *RoomManager) SubmitSelection(roomID, playerID string, round int, topicID string, items []models.Item) (*core.Record, error) {
	collection, err := rm.app.FindCollectionByNameOrId("selections")
	if err != nil {
		return nil, fmt.Errorf("failed to find selections collection: %w", err)
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal items: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("player_id", playerID)
	record.Set("room_id", roomID)
	record.Set("round", round)
	if topicID != "" {
		record.Set("topic_id", topicID)
	}
	record.Set("ordered_items", string(itemsJSON))

	if err := rm.app.Save(record); err != nil {
		return nil, fmt.Errorf("failed to save selection: %w", err)
	}

	rm.UpdateRoomActivity(roomID)
	return record, nil
}

// ListSelections retrieves all selections for a room and round.
func (rm *RoomManager) ListSelections(roomID string, round int) ([]*core.Record, error) {
	records, err := rm.app.FindRecordsByFilter(
		"selections",
		"room_id = {:roomId} && round = {:round}",
		"",
		config.MaxPlayersPerRoom*2,
		0,
		dbx.Params{"roomId": roomID, "round": round},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get selections: %w", err)
	}
	return records, nil
}

// GetSelection retrieves one player's selection for a round, or nil if
// they have not submitted.
func (rm *RoomManager) GetSelection(roomID, playerID string, round int) (*core.Record, error) {
	records, err := rm.app.FindRecordsByFilter(
		"selections",
		"room_id = {:roomId} && player_id = {:playerId} && round = {:round}",
		"",
		1,
		0,
		dbx.Params{"roomId": roomID, "playerId": playerID, "round": round},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get selection: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// SelectionItems decodes the ordered_items JSON column of a selection.
func SelectionItems(record *core.Record) ([]models.Item, error) {
	var items []models.Item
	if err := json.Unmarshal([]byte(record.GetString("ordered_items")), &items); err != nil {
		return nil, fmt.Errorf("failed to decode ordered items: %w", err)
	}
	return items, nil
}

// SubmitGuess inserts a guess row with its score already computed. The
// unique index on (player_id, room_id, round, vip_player_id) is the true
// double-submit guard.
func (rm *RoomManager) SubmitGuess(roomID, playerID string, round int, vipPlayerID string, guessedOrder []string, score int) (*core.Record, error) {
	collection, err := rm.app.FindCollectionByNameOrId("guesses")
	if err != nil {
		return nil, fmt.Errorf("failed to find guesses collection: %w", err)
	}

	orderJSON, err := json.Marshal(guessedOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal guessed order: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("player_id", playerID)
	record.Set("room_id", roomID)
	record.Set("round", round)
	record.Set("vip_player_id", vipPlayerID)
	record.Set("guessed_order", string(orderJSON))
	record.Set("score", score)

	if err := rm.app.Save(record); err != nil {
		return nil, fmt.Errorf("failed to save guess: %w", err)
	}

	rm.UpdateRoomActivity(roomID)
	return record, nil
}

// CountGuesses counts guesses for the round's current VIP.
func (rm *RoomManager) CountGuesses(roomID string, round int, vipPlayerID string) (int, error) {
	records, err := rm.app.FindRecordsByFilter(
		"guesses",
		"room_id = {:roomId} && round = {:round} && vip_player_id = {:vipId}",
		"",
		config.MaxPlayersPerRoom*2,
		0,
		dbx.Params{"roomId": roomID, "round": round, "vipId": vipPlayerID},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count guesses: %w", err)
	}
	return len(records), nil
}

// ListGuesses retrieves all guesses for the round's current VIP.
func (rm *RoomManager) ListGuesses(roomID string, round int, vipPlayerID string) ([]*core.Record, error) {
	records, err := rm.app.FindRecordsByFilter(
		"guesses",
		"room_id = {:roomId} && round = {:round} && vip_player_id = {:vipId}",
		"",
		config.MaxPlayersPerRoom*2,
		0,
		dbx.Params{"roomId": roomID, "round": round, "vipId": vipPlayerID},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get guesses: %w", err)
	}
	return records, nil
}

// ListTopics retrieves the global topic catalog plus, when set, the
// organization's own topics.
func (rm *RoomManager) ListTopics(organizationID string) ([]*core.Record, error) {
	filter := "organization_id = ''"
	params := dbx.Params{}
	if organizationID != "" {
		filter = "organization_id = '' || organization_id = {:orgId}"
		params = dbx.Params{"orgId": organizationID}
	}

	records, err := rm.app.FindRecordsByFilter("topics", filter, "name", 200, 0, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get topics: %w", err)
	}
	return records, nil
}

// ListTopicItems retrieves a topic's items in catalog order.
func (rm *RoomManager) ListTopicItems(topicID string) ([]*core.Record, error) {
	records, err := rm.app.FindRecordsByFilter(
		"topic_items",
		"topic_id = {:topicId}",
		"name",
		500,
		0,
		dbx.Params{"topicId": topicID},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get topic items: %w", err)
	}
	return records, nil
}

// HasGuessed reports whether a player already has a guess row this round.
func (rm *RoomManager) HasGuessed(roomID, playerID string, round int, vipPlayerID string) (bool, error) {
	records, err := rm.app.FindRecordsByFilter(
		"guesses",
		"room_id = {:roomId} && player_id = {:playerId} && round = {:round} && vip_player_id = {:vipId}",
		"",
		1,
		0,
		dbx.Params{"roomId": roomID, "playerId": playerID, "round": round, "vipId": vipPlayerID},
	)
	if err != nil {
		return false, fmt.Errorf("failed to check guess: %w", err)
	}
	return len(records) > 0, nil
}

// ReassignHost atomically promotes one surviving player to host after the
// previous host left. The pick happens in a single UPDATE at the storage
// layer: several sessions may observe the host's departure and all call
// this, and client-side election here would let two of them pick
// different hosts. Human players are preferred over AI seats.
func (rm *RoomManager) ReassignHost(roomID, leavingPlayerID string) (*core.Record, error) {
	_, err := rm.app.DB().NewQuery(`
		UPDATE players SET is_host = TRUE WHERE id = (
			SELECT id FROM players
			WHERE room_id = {:room} AND id != {:leaving} AND is_host = FALSE
			ORDER BY is_ai ASC, joined_at ASC, id ASC
			LIMIT 1
		) AND NOT EXISTS (
			SELECT 1 FROM players WHERE room_id = {:room} AND is_host = TRUE AND id != {:leaving}
		)
	`).Bind(dbx.Params{"room": roomID, "leaving": leavingPlayerID}).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to reassign host: %w", err)
	}

	records, err := rm.app.FindRecordsByFilter(
		"players",
		"room_id = {:roomId} && is_host = true",
		"",
		1,
		0,
		dbx.Params{"roomId": roomID},
	)
	if err != nil || len(records) == 0 {
		return nil, fmt.Errorf("no host after reassignment")
	}
	return records[0], nil
}
