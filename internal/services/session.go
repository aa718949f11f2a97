package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/knowsyapp/knowsy-server/internal/config"
	"github.com/knowsyapp/knowsy-server/internal/models"
)

// SessionConfig carries the session timings. Tests shrink these to
// milliseconds.
type SessionConfig struct {
	PollInterval          time.Duration
	TopicSelectionTimeout time.Duration
	GuessingTimeout       time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		PollInterval:          config.PollInterval,
		TopicSelectionTimeout: config.TopicSelectionTimeout,
		GuessingTimeout:       config.GuessingTimeout,
	}
}

// RoomSession enacts the per-player protocol loop: a fixed-interval poll
// tick plus a notification channel, both funneling into the same
// idempotent reconcile, plus the per-phase deadline behavior. The two
// deadline behaviors are intentionally different: a player who never
// submits a ranking is removed from the room, while a player who never
// confirms a guess has their staged order submitted for them.
type RoomSession struct {
	coordinator *GameCoordinator
	rm          *RoomManager
	logger      *slog.Logger
	cfg         SessionConfig

	roomID   string
	playerID string
	guard    TransitionGuard

	notify chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu                 sync.Mutex
	stagedGuess        []string
	selectionSubmitted bool
	guessSubmitted     bool
	kicked             bool

	observedPhase models.GamePhase
	observedRound int
	phaseDeadline time.Time
}

func newRoomSession(parent context.Context, gc *GameCoordinator, rm *RoomManager, roomID, playerID string, cfg SessionConfig, logger *slog.Logger) *RoomSession {
	ctx, cancel := context.WithCancel(parent)
	return &RoomSession{
		coordinator: gc,
		rm:          rm,
		logger:      logger,
		cfg:         cfg,
		roomID:      roomID,
		playerID:    playerID,
		notify:      make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Guard exposes the session's transition guard for host-gated writes
// performed on the session's behalf from HTTP handlers.
func (s *RoomSession) Guard() *TransitionGuard {
	return &s.guard
}

// Notify wakes the session as if a realtime record notification arrived.
// Non-blocking: a wake-up already pending covers this one too, because
// the reconcile re-samples everything from scratch.
func (s *RoomSession) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Stop cancels the session loop. In-flight storage writes are not
// cancelled; their results simply go nowhere.
func (s *RoomSession) Stop() {
	s.cancel()
}

// MarkSelectionSubmitted records that the player submitted a ranking, so
// the topic-selection deadline no longer applies to them.
func (s *RoomSession) MarkSelectionSubmitted() {
	s.mu.Lock()
	s.selectionSubmitted = true
	s.mu.Unlock()
}

// StageGuess stores the player's in-progress ordering. The guessing
// deadline submits exactly this.
func (s *RoomSession) StageGuess(order []string) {
	s.mu.Lock()
	s.stagedGuess = append([]string(nil), order...)
	s.mu.Unlock()
}

// MarkGuessSubmitted records that the player confirmed a guess.
func (s *RoomSession) MarkGuessSubmitted() {
	s.mu.Lock()
	s.guessSubmitted = true
	s.mu.Unlock()
}

func (s *RoomSession) run() {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		case <-s.notify:
		}

		if !s.tick() {
			return
		}
	}
}

// tick is one observation of current truth. Returns false when the
// session should end (room or player gone).
func (s *RoomSession) tick() bool {
	room, err := s.rm.GetRoom(s.roomID)
	if err != nil {
		s.logger.Info("room gone, ending session", "room", s.roomID, "player", s.playerID)
		return false
	}

	if _, err := s.rm.GetPlayer(s.playerID); err != nil {
		// Kicked or otherwise removed.
		return false
	}

	phase := models.GamePhase(room.GetString("game_phase"))
	round := room.GetInt("current_round")
	vipID := room.GetString("current_vip_id")
	s.observePhase(phase, round)

	if phase == models.PhaseGuessing {
		s.ensureStagedGuess(round, vipID)
	}

	s.checkDeadline(phase, vipID)

	if err := s.coordinator.Reconcile(s.roomID, s.playerID, &s.guard); err != nil {
		// Transient failures degrade to the next poll tick, which
		// naturally retries the read.
		s.logger.Warn("reconcile failed", "room", s.roomID, "player", s.playerID, "error", err)
	}

	return true
}

// observePhase resets per-phase state when the room moved to a new phase
// or round since the last observation.
func (s *RoomSession) observePhase(phase models.GamePhase, round int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if phase == s.observedPhase && round == s.observedRound {
		return
	}
	s.observedPhase = phase
	s.observedRound = round

	switch phase {
	case models.PhaseTopicSelection:
		s.selectionSubmitted = false
		s.guessSubmitted = false
		s.stagedGuess = nil
		s.kicked = false
		s.phaseDeadline = time.Now().Add(s.cfg.TopicSelectionTimeout)
	case models.PhaseGuessing:
		s.guessSubmitted = false
		s.phaseDeadline = time.Now().Add(s.cfg.GuessingTimeout)
	default:
		s.phaseDeadline = time.Time{}
	}
}

// ensureStagedGuess seeds the staged order once per round so the
// guessing deadline always has something to submit. The seed is the
// VIP's items sorted by id, which carries no ranking information: a
// player who never touches their list must not outscore one who plays.
// Runs on every tick, so a failed read at phase entry is retried
// instead of leaving the staged order empty for the deadline.
func (s *RoomSession) ensureStagedGuess(round int, vipID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if vipID == "" || vipID == s.playerID {
		return
	}
	if s.guessSubmitted || len(s.stagedGuess) > 0 {
		return
	}

	sel, err := s.rm.GetSelection(s.roomID, vipID, round)
	if err != nil || sel == nil {
		return
	}
	items, err := SelectionItems(sel)
	if err != nil {
		return
	}
	ids := models.ItemIDs(items)
	sort.Strings(ids)
	s.stagedGuess = ids
}

func (s *RoomSession) checkDeadline(phase models.GamePhase, vipID string) {
	s.mu.Lock()
	deadline := s.phaseDeadline
	selectionDone := s.selectionSubmitted
	guessDone := s.guessSubmitted
	staged := append([]string(nil), s.stagedGuess...)
	alreadyKicked := s.kicked
	s.mu.Unlock()

	if deadline.IsZero() || time.Now().Before(deadline) {
		return
	}

	switch phase {
	case models.PhaseTopicSelection:
		if selectionDone || alreadyKicked {
			return
		}
		s.mu.Lock()
		s.kicked = true
		s.mu.Unlock()

		s.logger.Info("topic selection timed out, removing player",
			"room", s.roomID, "player", s.playerID)
		if _, err := s.coordinator.KickInactivePlayer(s.roomID, s.playerID, s.playerID); err != nil {
			s.logger.Warn("self-kick failed", "room", s.roomID, "player", s.playerID, "error", err)
		}

	case models.PhaseGuessing:
		if guessDone || s.playerID == vipID || len(staged) == 0 {
			return
		}

		s.logger.Info("guessing timed out, auto-submitting staged order",
			"room", s.roomID, "player", s.playerID)
		if _, _, err := s.coordinator.SubmitGuess(s.roomID, s.playerID, staged); err != nil {
			s.logger.Warn("auto-submit failed", "room", s.roomID, "player", s.playerID, "error", err)
			return
		}
		s.MarkGuessSubmitted()
	}
}

// SessionManager owns one RoomSession per connected player and fans
// record-change notifications out to every session in a room.
type SessionManager struct {
	coordinator *GameCoordinator
	rm          *RoomManager
	logger      *slog.Logger
	cfg         SessionConfig

	ctx   context.Context
	group *errgroup.Group

	mu       sync.RWMutex
	sessions map[string]*RoomSession            // playerID -> session
	byRoom   map[string]map[string]*RoomSession // roomID -> playerID -> session
}

func NewSessionManager(ctx context.Context, gc *GameCoordinator, rm *RoomManager, cfg SessionConfig, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	group, ctx := errgroup.WithContext(ctx)
	return &SessionManager{
		coordinator: gc,
		rm:          rm,
		logger:      logger,
		cfg:         cfg,
		ctx:         ctx,
		group:       group,
		sessions:    make(map[string]*RoomSession),
		byRoom:      make(map[string]map[string]*RoomSession),
	}
}

// StartSession begins the protocol loop for a player. Starting twice for
// the same player replaces the previous session.
func (sm *SessionManager) StartSession(roomID, playerID string) *RoomSession {
	sm.mu.Lock()
	if old, ok := sm.sessions[playerID]; ok {
		old.Stop()
	}

	session := newRoomSession(sm.ctx, sm.coordinator, sm.rm, roomID, playerID, sm.cfg, sm.logger)
	sm.sessions[playerID] = session
	if sm.byRoom[roomID] == nil {
		sm.byRoom[roomID] = make(map[string]*RoomSession)
	}
	sm.byRoom[roomID][playerID] = session
	sm.mu.Unlock()

	sm.group.Go(func() error {
		session.run()
		sm.removeSession(roomID, playerID, session)
		return nil
	})

	return session
}

func (sm *SessionManager) removeSession(roomID, playerID string, session *RoomSession) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.sessions[playerID] == session {
		delete(sm.sessions, playerID)
	}
	if room, ok := sm.byRoom[roomID]; ok && room[playerID] == session {
		delete(room, playerID)
		if len(room) == 0 {
			delete(sm.byRoom, roomID)
		}
	}
}

// StopSession ends a player's session, if any.
func (sm *SessionManager) StopSession(playerID string) {
	sm.mu.RLock()
	session := sm.sessions[playerID]
	sm.mu.RUnlock()
	if session != nil {
		session.Stop()
	}
}

// GetSession returns a player's running session, or nil.
func (sm *SessionManager) GetSession(playerID string) *RoomSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[playerID]
}

// NotifyRoom wakes every session in a room, the push half of the dual
// poll-plus-push trigger.
func (sm *SessionManager) NotifyRoom(roomID string) {
	sm.mu.RLock()
	room := sm.byRoom[roomID]
	targets := make([]*RoomSession, 0, len(room))
	for _, s := range room {
		targets = append(targets, s)
	}
	sm.mu.RUnlock()

	for _, s := range targets {
		s.Notify()
	}
}

// Shutdown stops every session and waits for their loops to exit.
func (sm *SessionManager) Shutdown() error {
	sm.mu.RLock()
	for _, s := range sm.sessions {
		s.Stop()
	}
	sm.mu.RUnlock()
	return sm.group.Wait()
}
