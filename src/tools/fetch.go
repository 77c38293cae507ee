package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	agent "github.com/unrealJuanpa/llm-deep-recall"
)

// maxFetchBytes bounds how much of a page is handed back to the model.
const maxFetchBytes = 64 * 1024

// DescargarURL fetches a URL and returns its textual body, truncated. Non-text
// payloads are described, not inlined.
func DescargarURL(client *http.Client) agent.Tool {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return agent.NewTool("descargar_url", []string{"url"}, "Descarga una URL y devuelve su contenido de texto.", func(ctx context.Context, args []any) (any, error) {
		raw, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("se esperaba una URL de texto, se recibió %v", args[0])
		}

		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("URL no válida: %q", raw)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("la descarga falló: %s", resp.Status)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
		if err != nil {
			return nil, err
		}

		contentType := resp.Header.Get("Content-Type")
		if !isTextContent(contentType, body) {
			return fmt.Sprintf("[contenido no textual: %s, %d bytes]", contentType, len(body)), nil
		}
		return string(body), nil
	})
}

func isTextContent(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "text/"),
		strings.Contains(ct, "json"),
		strings.Contains(ct, "xml"),
		strings.Contains(ct, "yaml"):
		return true
	}
	return ct == "" && utf8.Valid(body)
}
