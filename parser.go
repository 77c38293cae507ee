package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Invocation is one structured tool call extracted from model output.
type Invocation struct {
	Name string // tool name
	Args string // raw argument text between the parentheses
	Call string // exact call text, used for de-duplication and observations
}

// Parser extracts invocations from raw completion text. The default mode
// unions three detection strategies (fenced blocks, bare lines, inline
// balanced scan); strict mode expects a single {"function": "name(args)"}
// JSON object and yields at most one invocation per completion.
type Parser struct {
	catalog    *Catalog
	strictJSON bool
}

func NewParser(catalog *Catalog, strictJSON bool) *Parser {
	return &Parser{catalog: catalog, strictJSON: strictJSON}
}

var (
	// thinkRe matches <think>...</think> reasoning blocks local models emit.
	thinkRe = regexp.MustCompile(`(?s)<think>.*?</think>\s*`)
	fenceRe = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*\\n(.*?)```")
	// callRe matches a whole trimmed line of the form ident(args).
	callRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\((.*)\)$`)
)

// Parse returns the ordered, de-duplicated invocations found in text.
func (p *Parser) Parse(text string) []Invocation {
	text = strings.TrimSpace(thinkRe.ReplaceAllString(text, ""))
	if text == "" {
		return nil
	}
	if p.strictJSON {
		return p.parseStrict(text)
	}

	var out []Invocation
	seen := make(map[string]bool)
	add := func(inv Invocation) {
		if inv.Call == "" || seen[inv.Call] {
			return
		}
		seen[inv.Call] = true
		out = append(out, inv)
	}

	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		scanLines(m[1], add)
	}
	scanLines(text, add)
	for _, name := range p.catalog.Names() {
		scanInline(text, name, add)
	}
	return out
}

// parseStrict extracts the single legacy-protocol invocation, if any.
func (p *Parser) parseStrict(text string) []Invocation {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		var payload struct {
			Function string `json:"function"`
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(&payload); err != nil {
			continue
		}
		call := strings.TrimSpace(payload.Function)
		m := callRe.FindStringSubmatch(call)
		if m == nil {
			continue
		}
		if end, ok := scanBalanced(call, len(m[1])); !ok || end != len(call)-1 {
			continue
		}
		return []Invocation{{Name: m[1], Args: m[2], Call: call}}
	}
	return nil
}

func scanLines(block string, add func(Invocation)) {
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		m := callRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		// The regex is greedy, so a prose line that merely starts with a
		// call and ends in ')' would match. Only accept the line when the
		// parenthesis after the identifier closes at the line's last byte.
		end, ok := scanBalanced(line, len(m[1]))
		if !ok || end != len(line)-1 {
			continue
		}
		add(Invocation{Name: m[1], Args: m[2], Call: line})
	}
}

// scanInline finds name(...) occurrences embedded in prose by balancing
// parentheses forward from each opening one. Quotes are honored so argument
// strings containing parentheses do not break the scan.
func scanInline(text, name string, add func(Invocation)) {
	needle := name + "("
	for start := 0; start < len(text); {
		idx := strings.Index(text[start:], needle)
		if idx < 0 {
			return
		}
		abs := start + idx
		if abs > 0 && isIdentByte(text[abs-1]) {
			start = abs + len(name)
			continue
		}
		open := abs + len(name)
		end, ok := scanBalanced(text, open)
		if !ok {
			start = open + 1
			continue
		}
		add(Invocation{
			Name: name,
			Args: text[open+1 : end],
			Call: text[abs : end+1],
		})
		start = end + 1
	}
}

// scanBalanced returns the index of the parenthesis matching the one at open.
func scanBalanced(s string, open int) (int, bool) {
	depth := 0
	var quote byte
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
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
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
