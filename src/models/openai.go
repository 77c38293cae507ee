package models

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// OpenAILLM targets any OpenAI-compatible chat endpoint. Local servers such as
// llama.cpp, vLLM and LM Studio expose this surface, so it doubles as the
// second local-inference provider next to Ollama.
type OpenAILLM struct {
	Client *openai.Client

	mu    sync.RWMutex
	model string
}

// NewOpenAILLM builds a client for baseURL (empty keeps the official default).
// The API key comes from OPENAI_API_KEY; local servers usually accept any value.
func NewOpenAILLM(baseURL, model string) *OpenAILLM {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey = "local"
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAILLM{
		Client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// SetModel swaps the model id used for subsequent completions.
func (o *OpenAILLM) SetModel(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.model = name
}

// ModelName reports the model id currently in use.
func (o *OpenAILLM) ModelName() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.model
}

// Chat requests one non-streaming completion over the message window.
func (o *OpenAILLM) Chat(ctx context.Context, messages []Message) (Message, error) {
	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.ModelName(),
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return Message{}, err
	}
	if len(resp.Choices) == 0 {
		return Message{}, errors.New("no choices in completion")
	}
	choice := resp.Choices[0].Message
	role := choice.Role
	if role == "" {
		role = RoleAssistant
	}
	return Message{Role: role, Content: choice.Content}, nil
}

// ChatStream emits completion deltas as they arrive.
func (o *OpenAILLM) ChatStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	stream, err := o.Client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    o.ModelName(),
		Messages: toOpenAIMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		defer stream.Close()
		var sb strings.Builder
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				ch <- StreamChunk{Done: true, FullText: sb.String()}
				return
			}
			if err != nil {
				ch <- StreamChunk{Done: true, FullText: sb.String(), Err: err}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta != "" {
				sb.WriteString(delta)
				ch <- StreamChunk{Delta: delta}
			}
		}
	}()

	return ch, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		switch role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		default:
			role = openai.ChatMessageRoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
