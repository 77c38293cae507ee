package models

import "fmt"

// NewChatModel returns a concrete Agent for the named provider.
// host is the endpoint base URL; empty falls back to provider defaults.
func NewChatModel(provider, host, model string) (Agent, error) {
	switch provider {
	case "ollama":
		return NewOllamaLLM(host, model)
	case "openai":
		return NewOpenAILLM(host, model), nil
	case "dummy":
		return NewDummyLLM(""), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}
