package security_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knowsyapp/knowsy-server/internal/models"
	"github.com/knowsyapp/knowsy-server/internal/security"
)

func TestValidateJoinCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid code", "ABCD23", "ABCD23", false},
		{"lowercase is normalized", "abcd23", "ABCD23", false},
		{"surrounding whitespace trimmed", "  ABCD23  ", "ABCD23", false},
		{"empty", "", "", true},
		{"too short", "AB2", "", true},
		{"too long", "ABCDEFGH2", "", true},
		{"ambiguous glyph zero", "ABC023", "", true},
		{"ambiguous glyph one", "ABC123", "", true},
		{"ambiguous glyph oh", "ABCO23", "", true},
		{"ambiguous glyph eye", "ABCI23", "", true},
		{"symbols rejected", "AB-D23", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := security.ValidateJoinCode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePlayerName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain name", "Alice", false},
		{"accented characters", "Zoë Müller", false},
		{"apostrophe and hyphen", "O'Brien-Smith", false},
		{"digits", "Player 2", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"angle brackets", "<script>", true},
		{"shell metacharacters", "a;rm -rf", true},
		{"control characters", "Bob\x00", true},
		{"too long", strings.Repeat("a", 51), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := security.ValidatePlayerName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, security.ValidateID("abc123def456ghi"))
	assert.NoError(t, security.ValidateID("0b7cdd41-9c2e-4a6f-8f2d-111111111111"))
	assert.Error(t, security.ValidateID(""))
	assert.Error(t, security.ValidateID("short"))
	assert.Error(t, security.ValidateID("has spaces here"))
}

func TestSanitizeErrorMessage(t *testing.T) {
	generic := "An error occurred while processing your request"

	assert.Equal(t, generic, security.SanitizeErrorMessage(errors.New("UNIQUE constraint failed: guesses.player_id")))
	assert.Equal(t, generic, security.SanitizeErrorMessage(errors.New("sql: no rows in result set")))
	assert.Equal(t, generic, security.SanitizeErrorMessage(errors.New("failed to save record")))
	assert.Equal(t, "room is full", security.SanitizeErrorMessage(errors.New("room is full")))
	assert.Equal(t, "", security.SanitizeErrorMessage(nil))
}

func TestIsValidMessageType(t *testing.T) {
	assert.True(t, security.IsValidMessageType(models.MsgTypeSubmitSelection))
	assert.True(t, security.IsValidMessageType(models.MsgTypeStageGuess))
	assert.True(t, security.IsValidMessageType(models.MsgTypeSubmitGuess))
	assert.True(t, security.IsValidMessageType(models.MsgTypeStartGame))
	assert.True(t, security.IsValidMessageType(models.MsgTypeNextRound))
	assert.True(t, security.IsValidMessageType(models.MsgTypeLeave))

	// Server-to-client types are not acceptable inbound.
	assert.False(t, security.IsValidMessageType(models.MsgTypePhaseChanged))
	assert.False(t, security.IsValidMessageType("drop_table"))
	assert.False(t, security.IsValidMessageType(""))
}

func TestOriginValidator(t *testing.T) {
	open := security.NewOriginValidator(nil)
	assert.True(t, open.Allow("https://anything.example.com"))
	assert.Equal(t, []string{"*"}, open.Patterns())

	ov := security.NewOriginValidator([]string{"knowsy.app", ".knowsy.app"})
	assert.True(t, ov.Allow("https://knowsy.app"))
	assert.True(t, ov.Allow("https://play.knowsy.app"))
	assert.False(t, ov.Allow("https://evil.example.com"))
	assert.False(t, ov.Allow("https://notknowsy.app"))
}
