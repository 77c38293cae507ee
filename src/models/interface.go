package models

import "context"

// Message roles understood by the chat endpoints.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry in a conversation.
type Message struct {
	Role    string
	Content string
}

// StreamChunk carries one increment of a streaming completion.
// Done is set on the final chunk, which also carries the accumulated text.
type StreamChunk struct {
	Delta    string
	FullText string
	Done     bool
	Err      error
}

// Agent is the inference endpoint contract: given role-tagged messages,
// produce a role-tagged completion, synchronously or as a token stream.
type Agent interface {
	Chat(ctx context.Context, messages []Message) (Message, error)
	ChatStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error)
}

// Switchable is implemented by models whose underlying model id can be
// swapped between turns.
type Switchable interface {
	SetModel(name string)
	ModelName() string
}
