package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// ---------------------------- Ollama -----------------------------------------

// OllamaLLM talks to a locally hosted Ollama server over its chat API.
type OllamaLLM struct {
	Client *ollama.Client

	mu         sync.RWMutex
	model      string
	httpClient *http.Client
	host       string
}

// NewOllamaLLM builds a client for the given host (empty means OLLAMA_HOST or
// the default local endpoint). The HTTP timeout is the only timeout the agent
// core relies on; the loop itself is bounded by its iteration counter.
func NewOllamaLLM(host, model string) (*OllamaLLM, error) {
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://localhost:11434"
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	httpClient := &http.Client{
		Timeout: 60 * time.Second,
	}

	return &OllamaLLM{
		Client:     ollama.NewClient(u, httpClient),
		model:      model,
		httpClient: httpClient,
		host:       host,
	}, nil
}

// SetModel swaps the model id used for subsequent completions.
func (o *OllamaLLM) SetModel(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.model = name
}

// ModelName reports the model id currently in use.
func (o *OllamaLLM) ModelName() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.model
}

// Host reports the configured endpoint base URL.
func (o *OllamaLLM) Host() string {
	return o.host
}

// Chat requests one non-streaming completion over the message window.
func (o *OllamaLLM) Chat(ctx context.Context, messages []Message) (Message, error) {
	stream := false
	req := &ollama.ChatRequest{
		Model:    o.ModelName(),
		Messages: toOllamaMessages(messages),
		Stream:   &stream,
	}

	var (
		text strings.Builder
		last ollama.ChatResponse
	)
	if err := o.Client.Chat(ctx, req, func(cr ollama.ChatResponse) error {
		if cr.Message.Content != "" {
			text.WriteString(cr.Message.Content)
		}
		last = cr
		return nil
	}); err != nil {
		return Message{}, err
	}

	role := last.Message.Role
	if role == "" {
		role = RoleAssistant
	}
	return Message{Role: role, Content: text.String()}, nil
}

// ChatStream leverages Ollama's native callback-based streaming. Malformed
// chunks are skipped by the client library; the final chunk carries the
// accumulated text.
func (o *OllamaLLM) ChatStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	stream := true
	req := &ollama.ChatRequest{
		Model:    o.ModelName(),
		Messages: toOllamaMessages(messages),
		Stream:   &stream,
	}

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		var sb strings.Builder
		err := o.Client.Chat(ctx, req, func(cr ollama.ChatResponse) error {
			if cr.Message.Content != "" {
				sb.WriteString(cr.Message.Content)
				ch <- StreamChunk{Delta: cr.Message.Content}
			}
			return nil
		})
		if err != nil {
			ch <- StreamChunk{Done: true, FullText: sb.String(), Err: err}
			return
		}
		ch <- StreamChunk{Done: true, FullText: sb.String()}
	}()

	return ch, nil
}

func toOllamaMessages(messages []Message) []ollama.Message {
	out := make([]ollama.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, ollama.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// WebSearch queries the Ollama Web Search API and returns top results.
func (o *OllamaLLM) WebSearch(ctx context.Context, query string, limit int) ([]map[string]string, error) {
	endpoint := fmt.Sprintf("%s/api/web_search", strings.TrimRight(o.host, "/"))

	reqBody := map[string]any{"query": query}
	if limit > 0 {
		reqBody["limit"] = limit
	}
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(reqBody); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, buf)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := os.Getenv("OLLAMA_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("web search failed: %s", resp.Status)
	}

	var data struct {
		Results []map[string]string `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return data.Results, nil
}
