package models

import (
	"context"
	"fmt"
	"strings"
)

// DummyLLM is a lightweight model implementation useful for exercising the
// agent loop without a running inference server. It answers every window by
// calling the terminal tool with an echo of the last user message.
type DummyLLM struct {
	Prefix string
}

func NewDummyLLM(prefix string) *DummyLLM {
	if strings.TrimSpace(prefix) == "" {
		prefix = "eco:"
	}
	return &DummyLLM{Prefix: prefix}
}

func (d *DummyLLM) Chat(_ context.Context, messages []Message) (Message, error) {
	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser && strings.TrimSpace(messages[i].Content) != "" {
			last = strings.TrimSpace(messages[i].Content)
			break
		}
	}
	if last == "" {
		last = "<empty window>"
	}
	content := fmt.Sprintf("reply('%s %s')", d.Prefix, strings.ReplaceAll(last, "'", ""))
	return Message{Role: RoleAssistant, Content: content}, nil
}

// ChatStream simulates streaming by splitting the response into word-level chunks.
func (d *DummyLLM) ChatStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	msg, _ := d.Chat(ctx, messages)

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		words := strings.Fields(msg.Content)
		for i, w := range words {
			delta := w
			if i < len(words)-1 {
				delta += " "
			}
			ch <- StreamChunk{Delta: delta}
		}
		ch <- StreamChunk{Done: true, FullText: msg.Content}
	}()
	return ch, nil
}
