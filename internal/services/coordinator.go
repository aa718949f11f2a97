package services

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"

	"github.com/pocketbase/pocketbase/core"

	"github.com/knowsyapp/knowsy-server/internal/config"
	"github.com/knowsyapp/knowsy-server/internal/models"
)

// Broadcaster fans a message out to every connection in a room. The hub
// implements it; tests substitute a recorder.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message *models.WSMessage)
}

// AIInvoker fires AI-player turns. Implementations are fire-and-forget
// and must deduplicate repeat triggers for the same phase entry.
type AIInvoker interface {
	InvokeTopicSelection(roomID, playerID string, round int)
	InvokeGuess(roomID, playerID string, round int, vipPlayerID string)
}

// TransitionGuard suppresses re-entrant phase advances from a single
// session. It is per-session, not per-room: two sessions may still race,
// and the pre-write phase re-check plus idempotent target values make
// that race harmless.
type TransitionGuard struct {
	flag atomic.Bool
}

func (g *TransitionGuard) TryLock() bool {
	return g.flag.CompareAndSwap(false, true)
}

func (g *TransitionGuard) Unlock() {
	g.flag.Store(false)
}

// GameCoordinator drives the room phase machine. Its central entry point
// is Reconcile, which every trigger (2s poll tick, record-insert
// notification) funnels into: it re-samples current truth from storage,
// recomputes completion counts from scratch, and, when the invoking
// player is the host, performs the single phase-advancing write.
// Reconcile is idempotent and safe to invoke arbitrarily often and
// concurrently.
type GameCoordinator struct {
	rm        *RoomManager
	authority *HostAuthority
	validator *SelectionValidator
	hub       Broadcaster
	ai        AIInvoker
	metrics   *Metrics
	logger    *slog.Logger
}

func NewGameCoordinator(rm *RoomManager, authority *HostAuthority, hub Broadcaster, ai AIInvoker, metrics *Metrics, logger *slog.Logger) *GameCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &GameCoordinator{
		rm:        rm,
		authority: authority,
		validator: NewSelectionValidator(),
		hub:       hub,
		ai:        ai,
		metrics:   metrics,
		logger:    logger,
	}
}

func (gc *GameCoordinator) broadcast(roomID string, msg *models.WSMessage) {
	if gc.hub != nil {
		msg.RoomID = roomID
		gc.hub.BroadcastToRoom(roomID, msg)
	}
}

// Reconcile re-reads the room and executes whatever the current phase
// requires on behalf of playerID. guard must be the invoking session's
// own TransitionGuard (nil is accepted for direct server-side calls).
func (gc *GameCoordinator) Reconcile(roomID, playerID string, guard *TransitionGuard) error {
	room, err := gc.rm.GetRoom(roomID)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	players, err := gc.rm.ListActivePlayers(roomID)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	phase := models.GamePhase(room.GetString("game_phase"))
	status := models.RoomStatus(room.GetString("status"))

	// Early termination check runs on every reconcile regardless of
	// phase. The same rule is applied again in the leave flow and the
	// kick path; any session might observe the drop first, so the
	// redundancy stays.
	if status == models.StatusPlaying && !phase.IsTerminal() && len(players) <= 1 {
		return gc.endEarly(roomID, playerID, guard)
	}

	switch phase {
	case models.PhaseTopicSelection:
		return gc.checkTopicSelectionComplete(room, players, playerID, guard)
	case models.PhaseGuessing:
		return gc.checkGuessingComplete(room, players, playerID, guard)
	default:
		return nil
	}
}

// checkTopicSelectionComplete advances to guessing once every active
// player has a selection row for the current round. Only the host
// session performs the write; everyone else just observes. The VIP is
// sampled uniformly from players WITH a selection row, so a player who
// disconnected before submitting can never become VIP.
func (gc *GameCoordinator) checkTopicSelectionComplete(room *core.Record, players []*core.Record, playerID string, guard *TransitionGuard) error {
	round := room.GetInt("current_round")

	selections, err := gc.rm.ListSelections(room.Id, round)
	if err != nil {
		return err
	}

	if len(players) <= 1 || len(selections) < len(players) {
		return nil
	}

	if !gc.authority.CanAdvancePhase(room.Id, playerID) {
		return nil
	}

	if guard != nil {
		if !guard.TryLock() {
			return nil
		}
		defer guard.Unlock()
	}

	// Re-read immediately before the write. If another session already
	// advanced, abort silently: the next poll reconciles our view.
	fresh, err := gc.rm.GetRoom(room.Id)
	if err != nil {
		return err
	}
	if models.GamePhase(fresh.GetString("game_phase")) != models.PhaseTopicSelection {
		return nil
	}

	submitted := make([]string, 0, len(selections))
	for _, sel := range selections {
		submitted = append(submitted, sel.GetString("player_id"))
	}
	vipID := submitted[rand.Intn(len(submitted))]

	if err := gc.rm.UpdateRoomPhase(room.Id, models.PhaseGuessing, vipID); err != nil {
		return err
	}

	gc.metrics.IncrementPhaseAdvances()
	gc.logger.Info("phase advanced",
		"room", room.Id, "round", round,
		"from", models.PhaseTopicSelection, "to", models.PhaseGuessing,
		"vip", vipID, "by", playerID)

	gc.broadcast(room.Id, &models.WSMessage{
		Type: models.MsgTypePhaseChanged,
		Payload: map[string]any{
			"phase":       models.PhaseGuessing,
			"round":       round,
			"vipPlayerId": vipID,
		},
	})

	gc.triggerAIGuesses(room.Id, players, round, vipID)
	return nil
}

// checkGuessingComplete advances to scoring once every non-VIP active
// player has a guess row for the current round. The VIP never guesses,
// so the denominator is active players minus one.
func (gc *GameCoordinator) checkGuessingComplete(room *core.Record, players []*core.Record, playerID string, guard *TransitionGuard) error {
	round := room.GetInt("current_round")
	vipID := room.GetString("current_vip_id")
	if vipID == "" {
		return nil
	}

	count, err := gc.rm.CountGuesses(room.Id, round, vipID)
	if err != nil {
		return err
	}

	needed := len(players) - 1
	if needed <= 0 || count < needed {
		return nil
	}

	if !gc.authority.CanAdvancePhase(room.Id, playerID) {
		return nil
	}

	if guard != nil {
		if !guard.TryLock() {
			return nil
		}
		defer guard.Unlock()
	}

	fresh, err := gc.rm.GetRoom(room.Id)
	if err != nil {
		return err
	}
	if models.GamePhase(fresh.GetString("game_phase")) != models.PhaseGuessing {
		return nil
	}

	// Scoring reveals the round: the VIP's true order plus everyone's
	// guess and score ride along on the phase broadcast.
	vipSelection, err := gc.rm.GetSelection(room.Id, vipID, round)
	if err != nil {
		return err
	}
	guesses, err := gc.rm.ListGuesses(room.Id, round, vipID)
	if err != nil {
		return err
	}

	if err := gc.rm.UpdateRoomPhase(room.Id, models.PhaseScoring, ""); err != nil {
		return err
	}

	gc.metrics.IncrementPhaseAdvances()
	gc.logger.Info("phase advanced",
		"room", room.Id, "round", round,
		"from", models.PhaseGuessing, "to", models.PhaseScoring,
		"by", playerID)

	payload := map[string]any{
		"phase":   models.PhaseScoring,
		"round":   round,
		"results": GuessesFromRecords(guesses),
	}
	if vipSelection != nil {
		if revealed, err := SelectionFromRecord(vipSelection); err == nil {
			payload["reveal"] = revealed
		}
	}

	gc.broadcast(room.Id, &models.WSMessage{
		Type:    models.MsgTypePhaseChanged,
		Payload: payload,
	})
	return nil
}

// StartGame begins play in a waiting room. Host-only.
func (gc *GameCoordinator) StartGame(roomID, playerID string) error {
	if err := gc.authority.RequireHost(roomID, playerID); err != nil {
		return err
	}

	room, err := gc.rm.GetRoom(roomID)
	if err != nil {
		return err
	}
	if models.RoomStatus(room.GetString("status")) == models.StatusPlaying {
		return fmt.Errorf("game already started")
	}

	players, err := gc.rm.ListActivePlayers(roomID)
	if err != nil {
		return err
	}
	if len(players) < config.MinPlayersToStart {
		return fmt.Errorf("need at least %d players to start", config.MinPlayersToStart)
	}

	if err := gc.rm.StartGame(roomID); err != nil {
		return err
	}

	gc.logger.Info("game started", "room", roomID, "players", len(players))
	gc.broadcast(roomID, &models.WSMessage{
		Type: models.MsgTypePhaseChanged,
		Payload: map[string]any{
			"phase": models.PhaseTopicSelection,
			"round": 1,
		},
	})

	gc.triggerAITopicSelections(roomID, players, 1)
	return nil
}

// NextRound completes the scoring phase: either the next round's topic
// selection begins or, with all rounds played, the game finishes.
// Host-only, and a no-op unless the room is actually in scoring.
func (gc *GameCoordinator) NextRound(roomID, playerID string, guard *TransitionGuard) error {
	if err := gc.authority.RequireHost(roomID, playerID); err != nil {
		return err
	}

	if guard != nil {
		if !guard.TryLock() {
			return nil
		}
		defer guard.Unlock()
	}

	room, err := gc.rm.GetRoom(roomID)
	if err != nil {
		return err
	}
	if models.GamePhase(room.GetString("game_phase")) != models.PhaseScoring {
		return nil
	}

	if err := gc.rm.CompleteScoring(roomID); err != nil {
		return err
	}
	gc.metrics.IncrementPhaseAdvances()

	fresh, err := gc.rm.GetRoom(roomID)
	if err != nil {
		return err
	}
	phase := models.GamePhase(fresh.GetString("game_phase"))
	round := fresh.GetInt("current_round")

	if phase.IsTerminal() {
		gc.logger.Info("game finished", "room", roomID, "rounds", fresh.GetInt("vips_completed"))
		gc.broadcast(roomID, &models.WSMessage{
			Type:    models.MsgTypeGameEnded,
			Payload: map[string]any{"reason": "completed"},
		})
		return nil
	}

	gc.broadcast(roomID, &models.WSMessage{
		Type: models.MsgTypePhaseChanged,
		Payload: map[string]any{
			"phase": phase,
			"round": round,
		},
	})

	players, err := gc.rm.ListActivePlayers(roomID)
	if err != nil {
		return err
	}
	gc.triggerAITopicSelections(roomID, players, round)
	return nil
}

// SubmitSelection validates and stores a player's ranked list for the
// current round. The storage-level unique index rejects a double submit
// even if the UI gate was bypassed.
func (gc *GameCoordinator) SubmitSelection(roomID, playerID, topicID string, items []models.Item) (*core.Record, error) {
	room, err := gc.rm.GetRoom(roomID)
	if err != nil {
		return nil, err
	}
	if models.GamePhase(room.GetString("game_phase")) != models.PhaseTopicSelection {
		return nil, fmt.Errorf("selections are closed")
	}

	if err := gc.validator.ValidateSelection(items); err != nil {
		return nil, err
	}

	round := room.GetInt("current_round")
	record, err := gc.rm.SubmitSelection(roomID, playerID, round, topicID, items)
	if err != nil {
		return nil, err
	}

	gc.broadcast(roomID, &models.WSMessage{
		Type: models.MsgTypeSelectionReceived,
		Payload: map[string]any{
			"playerId": playerID,
			"round":    round,
		},
	})
	return record, nil
}

// SubmitGuess validates, scores and stores a non-VIP player's guess, then
// adds the round score to the player's running total. The total is
// deliberately unclamped and can go negative.
func (gc *GameCoordinator) SubmitGuess(roomID, playerID string, guessedOrder []string) (*core.Record, int, error) {
	room, err := gc.rm.GetRoom(roomID)
	if err != nil {
		return nil, 0, err
	}
	if models.GamePhase(room.GetString("game_phase")) != models.PhaseGuessing {
		return nil, 0, fmt.Errorf("guessing is closed")
	}

	vipID := room.GetString("current_vip_id")
	if vipID == "" {
		return nil, 0, fmt.Errorf("no VIP for this round")
	}
	if playerID == vipID {
		return nil, 0, fmt.Errorf("the VIP does not guess")
	}

	if err := gc.validator.ValidateGuessOrder(guessedOrder); err != nil {
		return nil, 0, err
	}

	round := room.GetInt("current_round")
	vipSelection, err := gc.rm.GetSelection(roomID, vipID, round)
	if err != nil {
		return nil, 0, err
	}
	if vipSelection == nil {
		return nil, 0, fmt.Errorf("VIP has no selection this round")
	}

	vipItems, err := SelectionItems(vipSelection)
	if err != nil {
		return nil, 0, err
	}

	if !gc.validator.IsPermutationOf(guessedOrder, vipItems) {
		gc.logger.Warn("guess is not a permutation of the VIP selection",
			"room", roomID, "player", playerID, "round", round)
	}

	score := ScoreGuess(models.ItemIDs(vipItems), guessedOrder)

	record, err := gc.rm.SubmitGuess(roomID, playerID, round, vipID, guessedOrder, score)
	if err != nil {
		return nil, 0, err
	}

	if err := gc.rm.AddToPlayerScore(playerID, score); err != nil {
		return nil, 0, err
	}

	gc.broadcast(roomID, &models.WSMessage{
		Type: models.MsgTypeGuessReceived,
		Payload: map[string]any{
			"playerId": playerID,
			"round":    round,
		},
	})
	return record, score, nil
}

// HandlePlayerDeparture reacts to a deleted player row: host migration,
// VIP-departure round reset, and the leave-flow early-termination check.
// Invoked from the players delete hook, once per departure.
func (gc *GameCoordinator) HandlePlayerDeparture(roomID string, departed *models.Player) error {
	gc.broadcast(roomID, &models.WSMessage{
		Type: models.MsgTypePlayerLeft,
		Payload: map[string]any{
			"playerId": departed.ID,
			"name":     departed.Name,
		},
	})

	players, err := gc.rm.ListActivePlayers(roomID)
	if err != nil {
		return err
	}

	if departed.IsHost && len(players) > 0 {
		// Clients keep the migration overlay up for the grace window
		// while the new-host broadcast settles.
		gc.broadcast(roomID, &models.WSMessage{
			Type: models.MsgTypeHostMigrating,
			Payload: map[string]any{
				"graceMs": config.HostMigrationGrace.Milliseconds(),
			},
		})

		newHost, err := gc.rm.ReassignHost(roomID, departed.ID)
		if err != nil {
			return fmt.Errorf("host migration failed: %w", err)
		}

		gc.metrics.IncrementHostMigrations()
		gc.logger.Info("host migrated", "room", roomID, "from", departed.ID, "to", newHost.Id)
		gc.broadcast(roomID, &models.WSMessage{
			Type: models.MsgTypeHostMigrated,
			Payload: map[string]any{
				"playerId": newHost.Id,
				"name":     newHost.GetString("name"),
			},
		})
	}

	room, err := gc.rm.GetRoom(roomID)
	if err != nil {
		return err
	}
	phase := models.GamePhase(room.GetString("game_phase"))
	status := models.RoomStatus(room.GetString("status"))

	if status == models.StatusPlaying && !phase.IsTerminal() && len(players) <= 1 {
		if err := gc.rm.EndGameEarly(roomID); err != nil {
			return err
		}
		gc.broadcast(roomID, &models.WSMessage{
			Type:    models.MsgTypeGameEnded,
			Payload: map[string]any{"reason": "not_enough_players"},
		})
		return nil
	}

	// VIP left mid-guessing: discard the incomplete round.
	if phase == models.PhaseGuessing && room.GetString("current_vip_id") == departed.ID {
		if err := gc.rm.AdvanceRoundAfterVIPLeft(roomID); err != nil {
			return err
		}

		fresh, err := gc.rm.GetRoom(roomID)
		if err != nil {
			return err
		}
		round := fresh.GetInt("current_round")

		gc.logger.Info("round discarded, VIP left", "room", roomID, "round", round)
		gc.broadcast(roomID, &models.WSMessage{
			Type: models.MsgTypeRoundReset,
			Payload: map[string]any{
				"phase": models.PhaseTopicSelection,
				"round": round,
			},
		})
		gc.triggerAITopicSelections(roomID, players, round)
	}

	return nil
}

// KickInactivePlayer removes a player who never submitted during topic
// selection and, when that leaves one or zero seats, ends the game.
func (gc *GameCoordinator) KickInactivePlayer(roomID, actorID, targetID string) (int, error) {
	if !gc.authority.CanKick(roomID, actorID, targetID) {
		return 0, fmt.Errorf("unauthorized kick")
	}

	remaining, err := gc.rm.KickInactivePlayer(roomID, targetID)
	if err != nil {
		return 0, err
	}

	gc.broadcast(roomID, &models.WSMessage{
		Type: models.MsgTypePlayerKicked,
		Payload: map[string]any{
			"playerId": targetID,
			"reason":   "inactive",
		},
	})

	// Third early-termination call site, on purpose.
	room, err := gc.rm.GetRoom(roomID)
	if err != nil {
		return remaining, err
	}
	phase := models.GamePhase(room.GetString("game_phase"))
	if models.RoomStatus(room.GetString("status")) == models.StatusPlaying && !phase.IsTerminal() && remaining <= 1 {
		if err := gc.rm.EndGameEarly(roomID); err != nil {
			return remaining, err
		}
		gc.broadcast(roomID, &models.WSMessage{
			Type:    models.MsgTypeGameEnded,
			Payload: map[string]any{"reason": "not_enough_players"},
		})
	}

	return remaining, nil
}

func (gc *GameCoordinator) endEarly(roomID, playerID string, guard *TransitionGuard) error {
	if !gc.authority.CanAdvancePhase(roomID, playerID) {
		return nil
	}
	if guard != nil {
		if !guard.TryLock() {
			return nil
		}
		defer guard.Unlock()
	}

	// Re-read before the write: another session may have finished the
	// game already. The write itself is idempotent anyway.
	room, err := gc.rm.GetRoom(roomID)
	if err != nil {
		return err
	}
	if models.GamePhase(room.GetString("game_phase")).IsTerminal() {
		return nil
	}

	if err := gc.rm.EndGameEarly(roomID); err != nil {
		return err
	}

	gc.logger.Info("game ended early", "room", roomID, "by", playerID)
	gc.broadcast(roomID, &models.WSMessage{
		Type:    models.MsgTypeGameEnded,
		Payload: map[string]any{"reason": "not_enough_players"},
	})
	return nil
}

func (gc *GameCoordinator) triggerAITopicSelections(roomID string, players []*core.Record, round int) {
	if gc.ai == nil {
		return
	}
	for _, p := range players {
		if p.GetBool("is_ai") {
			gc.ai.InvokeTopicSelection(roomID, p.Id, round)
		}
	}
}

func (gc *GameCoordinator) triggerAIGuesses(roomID string, players []*core.Record, round int, vipID string) {
	if gc.ai == nil {
		return
	}
	for _, p := range players {
		if p.GetBool("is_ai") && p.Id != vipID {
			gc.ai.InvokeGuess(roomID, p.Id, round, vipID)
		}
	}
}
