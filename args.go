package agent

import (
	"fmt"
	"strconv"
	"strings"
)

// parseArgs turns raw argument text into a literal value sequence. Only
// literals are accepted (numbers, quoted strings, booleans, null); argument
// text is never evaluated as code.
func parseArgs(raw string) ([]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []any{}, nil
	}

	parts, err := splitTopLevel(raw)
	if err != nil {
		return nil, err
	}

	values := make([]any, 0, len(parts))
	for _, part := range parts {
		v, err := parseLiteral(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// splitTopLevel splits on commas outside quoted strings.
func splitTopLevel(raw string) ([]string, error) {
	var parts []string
	var quote byte
	escaped := false
	begin := 0
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case ',':
			parts = append(parts, raw[begin:i])
			begin = i + 1
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("cadena sin cerrar en los argumentos: %q", raw)
	}
	return append(parts, raw[begin:]), nil
}

func parseLiteral(token string) (any, error) {
	if token == "" {
		return nil, fmt.Errorf("argumento vacío")
	}

	if token[0] == '\'' || token[0] == '"' {
		return unquote(token)
	}

	switch strings.ToLower(token) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null", "nil", "none":
		return nil, nil
	}

	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return f, nil
	}

	return nil, fmt.Errorf("argumento no reconocido: %q (se aceptan números, cadenas entre comillas, true/false y null)", token)
}

// unquote strips the enclosing quotes and resolves backslash escapes.
func unquote(token string) (string, error) {
	quote := token[0]
	if len(token) < 2 || token[len(token)-1] != quote {
		return "", fmt.Errorf("cadena sin cerrar: %s", token)
	}
	body := token[1 : len(token)-1]

	var sb strings.Builder
	sb.Grow(len(body))
	escaped := false
	for i := 0; i < len(body); i++ {
		c := body[i]
		if !escaped {
			if c == '\\' {
				escaped = true
				continue
			}
			if c == quote {
				return "", fmt.Errorf("comilla sin escapar dentro de la cadena: %s", token)
			}
			sb.WriteByte(c)
			continue
		}
		escaped = false
		switch c {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '\\', '\'', '"':
			sb.WriteByte(c)
		default:
			sb.WriteByte('\\')
			sb.WriteByte(c)
		}
	}
	if escaped {
		return "", fmt.Errorf("escape incompleto al final de la cadena: %s", token)
	}
	return sb.String(), nil
}
