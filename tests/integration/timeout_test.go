package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowsyapp/knowsy-server/internal/models"
	"github.com/knowsyapp/knowsy-server/internal/services"
	"github.com/knowsyapp/knowsy-server/tests/helpers"
)

func fastSessionConfig() services.SessionConfig {
	return services.SessionConfig{
		PollInterval:          20 * time.Millisecond,
		TopicSelectionTimeout: 100 * time.Millisecond,
		GuessingTimeout:       100 * time.Millisecond,
	}
}

func newSessionManager(t *testing.T, env *gameEnv) *services.SessionManager {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	sm := services.NewSessionManager(ctx, env.gc, env.rm, fastSessionConfig(), nil)
	t.Cleanup(func() {
		cancel()
		_ = sm.Shutdown()
	})
	return sm
}

func TestTopicSelectionTimeoutRemovesSilentPlayer(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	roomID, playerIDs := helpers.CreateTestRoomWithPlayers(t, env.app, 3, 5)
	require.NoError(t, env.gc.StartGame(roomID, playerIDs[0]))

	sm := newSessionManager(t, env)
	silent := playerIDs[2]
	sm.StartSession(roomID, silent)

	// The player never submits a ranking, so their own session removes
	// them when the deadline passes.
	assert.Eventually(t, func() bool {
		_, err := env.rm.GetPlayer(silent)
		return err != nil
	}, 3*time.Second, 20*time.Millisecond)

	assert.NotEmpty(t, env.bus.MessagesOfType(models.MsgTypePlayerKicked))
}

func TestTopicSelectionTimeoutSparesSubmitters(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	roomID, playerIDs := helpers.CreateTestRoomWithPlayers(t, env.app, 3, 5)
	require.NoError(t, env.gc.StartGame(roomID, playerIDs[0]))

	sm := newSessionManager(t, env)
	submitter := playerIDs[1]

	_, err := env.gc.SubmitSelection(roomID, submitter, "", helpers.CatalogItems(5))
	require.NoError(t, err)

	session := sm.StartSession(roomID, submitter)
	session.MarkSelectionSubmitted()

	time.Sleep(400 * time.Millisecond)

	_, err = env.rm.GetPlayer(submitter)
	assert.NoError(t, err)
}

func TestGuessingTimeoutSubmitsStagedOrder(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	roomID, playerIDs := helpers.CreateTestRoomWithPlayers(t, env.app, 3, 5)
	vipID := env.advanceToGuessing(t, roomID, playerIDs)

	var guesser string
	for _, id := range playerIDs {
		if id != vipID {
			guesser = id
			break
		}
	}

	sm := newSessionManager(t, env)
	session := sm.StartSession(roomID, guesser)

	// The player staged the first two items swapped relative to the
	// VIP's true order. The deadline must submit exactly this: two
	// middle matches plus the last endpoint, 1+1+2.
	staged := models.ItemIDs(helpers.CatalogItems(5))
	staged[0], staged[1] = staged[1], staged[0]
	session.StageGuess(staged)

	assert.Eventually(t, func() bool {
		guessed, err := env.rm.HasGuessed(roomID, guesser, 1, vipID)
		return err == nil && guessed
	}, 3*time.Second, 20*time.Millisecond)

	player, err := env.rm.GetPlayer(guesser)
	require.NoError(t, err)
	assert.Equal(t, 4, player.GetInt("score"))
}

func TestGuessingTimeoutSeedCarriesNoRanking(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	roomID, playerIDs := helpers.CreateTestRoomWithPlayers(t, env.app, 3, 5)

	// Everyone ranks the catalog items in reverse id order, so the VIP's
	// true order differs from the id-sorted seed everywhere but the
	// middle.
	items := helpers.CatalogItems(5)
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	vipID := env.advanceToGuessingWith(t, roomID, playerIDs, items)

	var guesser string
	for _, id := range playerIDs {
		if id != vipID {
			guesser = id
			break
		}
	}

	sm := newSessionManager(t, env)
	sm.StartSession(roomID, guesser)

	// The player never touches their list. The auto-submitted seed lines
	// up with the true order only at the middle position: going silent
	// scores 1, not a perfect 10.
	assert.Eventually(t, func() bool {
		guessed, err := env.rm.HasGuessed(roomID, guesser, 1, vipID)
		return err == nil && guessed
	}, 3*time.Second, 20*time.Millisecond)

	player, err := env.rm.GetPlayer(guesser)
	require.NoError(t, err)
	assert.Equal(t, 1, player.GetInt("score"))
}

func TestGuessingTimeoutNeverSubmitsForVIP(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	roomID, playerIDs := helpers.CreateTestRoomWithPlayers(t, env.app, 3, 5)
	vipID := env.advanceToGuessing(t, roomID, playerIDs)

	sm := newSessionManager(t, env)
	sm.StartSession(roomID, vipID)

	time.Sleep(400 * time.Millisecond)

	guessed, err := env.rm.HasGuessed(roomID, vipID, 1, vipID)
	require.NoError(t, err)
	assert.False(t, guessed)
	assert.Equal(t, models.PhaseGuessing, env.roomPhase(t, roomID))
}

func TestNotifyRoomWakesSessionsForFastAdvance(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	roomID, playerIDs := helpers.CreateTestRoomWithPlayers(t, env.app, 3, 5)
	hostID := playerIDs[0]
	require.NoError(t, env.gc.StartGame(roomID, hostID))

	sm := newSessionManager(t, env)
	hostSession := sm.StartSession(roomID, hostID)
	hostSession.MarkSelectionSubmitted()

	helpers.SubmitAllSelections(t, env.gc, roomID, playerIDs)

	// The push half of poll-plus-push: waking the host session makes it
	// advance without waiting for a poll tick.
	sm.NotifyRoom(roomID)

	assert.Eventually(t, func() bool {
		return env.roomPhase(t, roomID) == models.PhaseGuessing
	}, 3*time.Second, 10*time.Millisecond)
}
