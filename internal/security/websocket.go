package security

import (
	"net/url"
	"strings"

	"github.com/knowsyapp/knowsy-server/internal/models"
)

// WebSocket message type validation
var validMessageTypes = map[string]bool{
	models.MsgTypeSubmitSelection: true,
	models.MsgTypeStageGuess:      true,
	models.MsgTypeSubmitGuess:     true,
	models.MsgTypeStartGame:       true,
	models.MsgTypeNextRound:       true,
	models.MsgTypeLeave:           true,
}

// IsValidMessageType checks if a WebSocket message type is valid
func IsValidMessageType(msgType string) bool {
	return validMessageTypes[msgType]
}

// OriginValidator validates WebSocket connection origins
type OriginValidator struct {
	allowedPatterns []string
}

// NewOriginValidator creates a validator from a list of allowed origins.
// An empty list or a "*" entry allows everything (development mode).
func NewOriginValidator(allowed []string) *OriginValidator {
	return &OriginValidator{allowedPatterns: allowed}
}

// Allow reports whether the given Origin header value is acceptable.
func (ov *OriginValidator) Allow(origin string) bool {
	if len(ov.allowedPatterns) == 0 {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()

	for _, pattern := range ov.allowedPatterns {
		if pattern == "*" {
			return true
		}
		if strings.EqualFold(pattern, host) || strings.EqualFold(pattern, origin) {
			return true
		}
		// Allow subdomain patterns like ".knowsy.app"
		if strings.HasPrefix(pattern, ".") && strings.HasSuffix(strings.ToLower(host), strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// Patterns returns the configured origin patterns for websocket.AcceptOptions.
func (ov *OriginValidator) Patterns() []string {
	if len(ov.allowedPatterns) == 0 {
		return []string{"*"}
	}
	return ov.allowedPatterns
}
