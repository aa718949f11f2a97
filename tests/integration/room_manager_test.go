package integration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowsyapp/knowsy-server/internal/config"
	"github.com/knowsyapp/knowsy-server/internal/models"
	"github.com/knowsyapp/knowsy-server/internal/security"
	"github.com/knowsyapp/knowsy-server/tests/helpers"
)

func TestCreateRoomDefaults(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	room := helpers.CreateTestRoom(t, env.app, 0)

	assert.Equal(t, string(models.StatusWaiting), room.GetString("status"))
	assert.Equal(t, string(models.PhaseWaiting), room.GetString("game_phase"))
	assert.Equal(t, config.DefaultTotalRounds, room.GetInt("total_rounds"))
	assert.Zero(t, room.GetInt("current_round"))

	// The generated join code passes our own validation.
	code, err := security.ValidateJoinCode(room.GetString("join_code"))
	require.NoError(t, err)
	assert.Equal(t, room.GetString("join_code"), code)
}

func TestGetRoomByJoinCode(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	room := helpers.CreateTestRoom(t, env.app, 5)

	found, err := env.rm.GetRoomByJoinCode(room.GetString("join_code"))
	require.NoError(t, err)
	assert.Equal(t, room.Id, found.Id)

	_, err = env.rm.GetRoomByJoinCode("ZZZZ99")
	assert.Error(t, err)
}

func TestValidateJoinCodeStatus(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	room := helpers.CreateTestRoom(t, env.app, 5)
	code := room.GetString("join_code")

	_, err := env.rm.AddPlayer(room.Id, "Alice", false, "", "cookie-alice")
	require.NoError(t, err)

	status, err := env.rm.ValidateJoinCode(code, "cookie-alice")
	require.NoError(t, err)
	assert.True(t, status.RoomExists)
	assert.Equal(t, 1, status.PlayerCount)
	assert.Equal(t, models.StatusWaiting, status.RoomStatus)
	assert.True(t, status.UserAlreadyJoined)

	status, err = env.rm.ValidateJoinCode(code, "cookie-stranger")
	require.NoError(t, err)
	assert.False(t, status.UserAlreadyJoined)

	status, err = env.rm.ValidateJoinCode("ZZZZ99", "")
	require.NoError(t, err)
	assert.False(t, status.RoomExists)
}

func TestFirstPlayerBecomesHost(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	room := helpers.CreateTestRoom(t, env.app, 5)

	first, err := env.rm.AddPlayer(room.Id, "First", false, "", "s1")
	require.NoError(t, err)
	second, err := env.rm.AddPlayer(room.Id, "Second", false, "", "s2")
	require.NoError(t, err)

	assert.True(t, first.GetBool("is_host"))
	assert.False(t, second.GetBool("is_host"))
}

func TestRoomCapacity(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	room := helpers.CreateTestRoom(t, env.app, 5)

	for i := 0; i < config.MaxPlayersPerRoom; i++ {
		_, err := env.rm.AddPlayer(room.Id, "Player", false, "", "")
		require.NoError(t, err)
	}

	_, err := env.rm.AddPlayer(room.Id, "Overflow", false, "", "")
	assert.Error(t, err)
}

func TestStartGameResetsScores(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	roomID, playerIDs := helpers.CreateTestRoomWithPlayers(t, env.app, 2, 5)

	require.NoError(t, env.rm.AddToPlayerScore(playerIDs[0], 7))
	require.NoError(t, env.rm.StartGame(roomID))

	player, err := env.rm.GetPlayer(playerIDs[0])
	require.NoError(t, err)
	assert.Zero(t, player.GetInt("score"))

	room, err := env.rm.GetRoom(roomID)
	require.NoError(t, err)
	assert.Equal(t, 1, room.GetInt("current_round"))
	assert.Zero(t, room.GetInt("vips_completed"))
}

func TestUpdateRoomPhaseRejectsIllegalTransitions(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	roomID, playerIDs := helpers.CreateTestRoomWithPlayers(t, env.app, 2, 5)

	// A waiting room cannot skip ahead.
	assert.Error(t, env.rm.UpdateRoomPhase(roomID, models.PhaseGuessing, playerIDs[0]))
	assert.Error(t, env.rm.UpdateRoomPhase(roomID, models.PhaseScoring, ""))

	require.NoError(t, env.rm.StartGame(roomID))
	require.NoError(t, env.rm.UpdateRoomPhase(roomID, models.PhaseGuessing, playerIDs[0]))

	// Writing the phase the room is already in is a stale racer, not a
	// transition.
	assert.Error(t, env.rm.UpdateRoomPhase(roomID, models.PhaseGuessing, playerIDs[0]))

	require.NoError(t, env.rm.UpdateRoomPhase(roomID, models.PhaseScoring, ""))

	// Finished is reachable from anywhere, and is final.
	require.NoError(t, env.rm.UpdateRoomPhase(roomID, models.PhaseFinished, ""))
	assert.Error(t, env.rm.UpdateRoomPhase(roomID, models.PhaseTopicSelection, ""))
}

func TestListTopicsReturnsSeededCatalog(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	topics, err := env.rm.ListTopics("")
	require.NoError(t, err)
	require.NotEmpty(t, topics)

	for _, topic := range topics {
		items, err := env.rm.ListTopicItems(topic.Id)
		require.NoError(t, err)
		assert.Len(t, items, 10, "topic %q", topic.GetString("name"))
	}
}

func TestRemovePlayerCascadesRows(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	roomID, playerIDs := helpers.CreateTestRoomWithPlayers(t, env.app, 3, 5)
	require.NoError(t, env.gc.StartGame(roomID, playerIDs[0]))

	_, err := env.gc.SubmitSelection(roomID, playerIDs[1], "", helpers.CatalogItems(5))
	require.NoError(t, err)

	require.NoError(t, env.rm.RemovePlayer(playerIDs[1]))

	sel, err := env.rm.GetSelection(roomID, playerIDs[1], 1)
	require.NoError(t, err)
	assert.Nil(t, sel)
}

func TestAddToPlayerScoreAllowsNegativeTotals(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	roomID, playerIDs := helpers.CreateTestRoomWithPlayers(t, env.app, 2, 5)
	_ = roomID

	require.NoError(t, env.rm.AddToPlayerScore(playerIDs[0], -1))
	require.NoError(t, env.rm.AddToPlayerScore(playerIDs[0], -1))

	player, err := env.rm.GetPlayer(playerIDs[0])
	require.NoError(t, err)
	assert.Equal(t, -2, player.GetInt("score"))
}
