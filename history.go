package agent

import (
	"github.com/unrealJuanpa/llm-deep-recall/src/models"
)

// PrimeMode selects how the instruction block is carried in history.
type PrimeMode int

const (
	// PrimeSystem carries the instructions as a single system-role message.
	PrimeSystem PrimeMode = iota
	// PrimePair carries the instructions as a user message followed by a
	// synthetic assistant acknowledgment, for models without a system role.
	PrimePair
)

// primeAck is the synthetic acknowledgment that closes the priming pair.
const primeAck = "Entendido."

// History is the persisted, ordered message log of one conversation. It is
// append-only except for the retention trim, which always preserves the
// leading instruction block. Callers serialize access; the Agent holds its
// turn mutex around every History mutation.
type History struct {
	instructions string
	mode         PrimeMode
	limit        int
	messages     []models.Message
}

// NewHistory seeds the log with the instruction block. limit is the number of
// retained (user, assistant) exchanges beyond that block.
func NewHistory(instructions string, limit int, mode PrimeMode) *History {
	if limit <= 0 {
		limit = 5
	}
	h := &History{instructions: instructions, mode: mode, limit: limit}
	h.Clear()
	return h
}

// overhead is the size of the instruction block.
func (h *History) overhead() int {
	if h.mode == PrimePair {
		return 2
	}
	return 1
}

// Clear resets the log to just the instruction block.
func (h *History) Clear() {
	if h.mode == PrimePair {
		h.messages = []models.Message{
			{Role: models.RoleUser, Content: h.instructions},
			{Role: models.RoleAssistant, Content: primeAck},
		}
		return
	}
	h.messages = []models.Message{
		{Role: models.RoleSystem, Content: h.instructions},
	}
}

// Append adds one message to the log.
func (h *History) Append(msg models.Message) {
	h.messages = append(h.messages, msg)
}

// Messages returns a copy of the log, instruction block first.
func (h *History) Messages() []models.Message {
	return append([]models.Message(nil), h.messages...)
}

// Len reports the current number of messages, instruction block included.
func (h *History) Len() int {
	return len(h.messages)
}

// Trim drops the oldest exchanges beyond the retention limit. The instruction
// block is never evicted and an exchange is never cut in half.
func (h *History) Trim() {
	keep := h.overhead()
	tail := h.messages[keep:]
	maxTail := h.limit * 2
	if len(tail) <= maxTail {
		return
	}
	start := len(tail) - maxTail
	// Exchanges alternate (user, assistant) from the start of the tail;
	// an odd cut would orphan an assistant message.
	if start%2 != 0 {
		start++
	}
	h.messages = append(h.messages[:keep:keep], tail[start:]...)
}
