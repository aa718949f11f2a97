package helpers

import (
	"sync"

	"github.com/knowsyapp/knowsy-server/internal/models"
)

// RecordingBroadcaster captures broadcast messages instead of fanning
// them out over websockets.
type RecordingBroadcaster struct {
	mu       sync.Mutex
	messages []*models.WSMessage
}

func NewRecordingBroadcaster() *RecordingBroadcaster {
	return &RecordingBroadcaster{}
}

func (rb *RecordingBroadcaster) BroadcastToRoom(roomID string, message *models.WSMessage) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.messages = append(rb.messages, message)
}

// Messages returns a copy of everything broadcast so far.
func (rb *RecordingBroadcaster) Messages() []*models.WSMessage {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return append([]*models.WSMessage(nil), rb.messages...)
}

// MessagesOfType filters captured messages by type.
func (rb *RecordingBroadcaster) MessagesOfType(msgType string) []*models.WSMessage {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	var out []*models.WSMessage
	for _, m := range rb.messages {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// AITurn records one AI invocation.
type AITurn struct {
	RoomID      string
	PlayerID    string
	Round       int
	VIPPlayerID string
}

// StubAIInvoker records AI turn triggers instead of calling a service.
type StubAIInvoker struct {
	mu         sync.Mutex
	Selections []AITurn
	Guesses    []AITurn
}

func NewStubAIInvoker() *StubAIInvoker {
	return &StubAIInvoker{}
}

func (s *StubAIInvoker) InvokeTopicSelection(roomID, playerID string, round int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Selections = append(s.Selections, AITurn{RoomID: roomID, PlayerID: playerID, Round: round})
}

func (s *StubAIInvoker) InvokeGuess(roomID, playerID string, round int, vipPlayerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Guesses = append(s.Guesses, AITurn{RoomID: roomID, PlayerID: playerID, Round: round, VIPPlayerID: vipPlayerID})
}

// GuessTurns returns a copy of the recorded guess invocations.
func (s *StubAIInvoker) GuessTurns() []AITurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AITurn(nil), s.Guesses...)
}

// SelectionTurns returns a copy of the recorded selection invocations.
func (s *StubAIInvoker) SelectionTurns() []AITurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AITurn(nil), s.Selections...)
}
