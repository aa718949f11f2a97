package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/knowsyapp/knowsy-server/internal/config"
)

// AIService triggers AI-player turns against the external AI function
// endpoint. Invocations are fire-and-forget with bounded retries: a
// failed AI turn degrades the game (the AI player eventually times out
// like a human would) but never blocks the coordinator.
//
// Each phase entry must trigger an AI turn at most once, even though the
// coordinator may broadcast the same phase entry repeatedly; the handled
// cache keyed by phase+round (and phase+vip+round for guesses) provides
// that dedup.
type AIService struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	logger     *slog.Logger

	handled sync.Map // dedup key -> struct{}
}

func NewAIService(baseURL, authToken string, logger *slog.Logger) *AIService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AIService{
		baseURL:   baseURL,
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: config.AIInvokeTimeout,
		},
		logger: logger,
	}
}

// Enabled reports whether an AI endpoint is configured.
func (ai *AIService) Enabled() bool {
	return ai.baseURL != ""
}

// InvokeTopicSelection asks the AI endpoint to produce a ranked
// selection for the given AI player.
func (ai *AIService) InvokeTopicSelection(roomID, playerID string, round int) {
	key := fmt.Sprintf("topic:%s:%d:%s", roomID, round, playerID)
	if !ai.claim(key) {
		return
	}

	go ai.post("/ai/topic-selection", map[string]any{
		"playerId": playerID,
		"roomId":   roomID,
		"round":    round,
	}, key)
}

// InvokeGuess asks the AI endpoint to produce a guess for the given AI
// player against the round's VIP.
func (ai *AIService) InvokeGuess(roomID, playerID string, round int, vipPlayerID string) {
	key := fmt.Sprintf("guess:%s:%d:%s:%s", roomID, round, vipPlayerID, playerID)
	if !ai.claim(key) {
		return
	}

	go ai.post("/ai/guess", map[string]any{
		"playerId":    playerID,
		"roomId":      roomID,
		"round":       round,
		"vipPlayerId": vipPlayerID,
	}, key)
}

// claim marks a dedup key handled, returning false if it already was.
func (ai *AIService) claim(key string) bool {
	if !ai.Enabled() {
		return false
	}
	_, loaded := ai.handled.LoadOrStore(key, struct{}{})
	return !loaded
}

func (ai *AIService) post(path string, payload map[string]any, key string) {
	body, err := json.Marshal(payload)
	if err != nil {
		ai.logger.Error("failed to marshal AI payload", "key", key, "error", err)
		return
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = config.AIInvokeInitialWait
	policy.MaxElapsedTime = config.AIInvokeMaxElapsed

	operation := func() error {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, ai.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if ai.authToken != "" {
			req.Header.Set("Authorization", "Bearer "+ai.authToken)
		}

		resp, err := ai.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("AI endpoint returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("AI endpoint rejected request: %d", resp.StatusCode))
		}
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		// Give a later phase entry a chance to retry from scratch.
		ai.handled.Delete(key)
		ai.logger.Warn("AI invocation failed", "key", key, "error", err)
	}
}
