package agent

import (
	"context"
	"strings"

	"github.com/unrealJuanpa/llm-deep-recall/src/models"
)

// complete requests one completion over the working window. With streaming
// enabled the increments are forwarded to OnDelta as they arrive, but the
// round only proceeds once the stream signals completion: partial tokens are
// never individually actionable by the parser.
func (a *Agent) complete(ctx context.Context, window []models.Message) (string, error) {
	if !a.stream {
		msg, err := a.model.Chat(ctx, window)
		if err != nil {
			return "", err
		}
		return msg.Content, nil
	}

	stream, err := a.model.ChatStream(ctx, window)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		if chunk.Delta != "" {
			sb.WriteString(chunk.Delta)
			if a.onDelta != nil {
				a.onDelta(chunk.Delta)
			}
		}
		if chunk.Done && chunk.FullText != "" {
			return chunk.FullText, nil
		}
	}
	return sb.String(), nil
}
