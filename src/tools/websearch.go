package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	agent "github.com/unrealJuanpa/llm-deep-recall"
)

// Searcher is the web search capability; models.OllamaLLM satisfies it via
// the Ollama web search API.
type Searcher interface {
	WebSearch(ctx context.Context, query string, limit int) ([]map[string]string, error)
}

const searchLimit = 5

// BuscarWeb exposes web search to the model. The call blocks the round until
// the search finishes or the transport times out.
func BuscarWeb(searcher Searcher) agent.Tool {
	return agent.NewTool("buscar_web", []string{"consulta"}, "Busca en la web y devuelve los mejores resultados.", func(ctx context.Context, args []any) (any, error) {
		query, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("se esperaba una consulta de texto, se recibió %v", args[0])
		}
		query = strings.TrimSpace(query)
		if query == "" {
			return nil, errors.New("la consulta está vacía")
		}

		results, err := searcher.WebSearch(ctx, query, searchLimit)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return "sin resultados", nil
		}

		var sb strings.Builder
		for i, r := range results {
			sb.WriteString(fmt.Sprintf("%d. %s — %s\n", i+1, r["title"], r["url"]))
			if content := strings.TrimSpace(r["content"]); content != "" {
				sb.WriteString("   ")
				sb.WriteString(snippet(content, 300))
				sb.WriteString("\n")
			}
		}
		return strings.TrimRight(sb.String(), "\n"), nil
	})
}

func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
